// Package vafile implements the page-oriented VA-File index: the build,
// insert, bulk-delete, vacuum and bitmap-producing scan operations from
// section 4.3, plus the bit-exact on-disk layout from section 6. Grounded
// on adam_index_va.c (vaBuild, vaInsert, vaBulkDelete, vaVacuumCleanup,
// vaBeginScan/vaRescan/vaEndScan, vaGetBitmap, bitmapSingleSearch,
// initMetabuffer/initPage/addItem); struct and locking shape borrowed from
// the teacher's pkg/hnsw/index.go and pkg/ivf/index.go (a single
// sync.RWMutex guarding the whole structure, accessor methods RLock-only).
package vafile

import (
	"fmt"
	"sync"

	"github.com/therealutkarshpriyadarshi/vafile/internal/approx"
	"github.com/therealutkarshpriyadarshi/vafile/internal/errs"
	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
)

// Magic identifies a valid meta page, section 6.
const Magic uint32 = 0xDBAC0DED

// StaleAbsolute and StaleFraction are the thresholds section 4.3 uses to
// decide whether a scan should raise a staleness warning.
const (
	StaleAbsolute = 1000
	StaleFraction = 0.2
)

// TID is an opaque heap row identifier, the Go analogue of ItemPointerData:
// a block number and an in-block offset.
type TID struct {
	Block  uint32
	Offset uint16
}

// Key packs a TID into the 64-bit integer the candidate bitmap indexes by.
func (t TID) Key() uint64 {
	return uint64(t.Block)<<16 | uint64(t.Offset)
}

// KeyToTID is the inverse of Key.
func KeyToTID(k uint64) TID {
	return TID{Block: uint32(k >> 16), Offset: uint16(k)}
}

// Tuple is one approximation entry: a heap TID plus its D-byte approximation.
type Tuple struct {
	TID TID
	Apx approx.Apx
}

// page is one data block: a tightly packed run of tuples plus its flags.
// VA_DELETED is represented as the deleted bool rather than a bit in a
// flags byte, since nothing outside this package inspects raw flag bits.
type page struct {
	tuples  []Tuple
	deleted bool
}

func (p *page) maxoff() int { return len(p.tuples) }

// Index is one VA-File relation: marks, a page store, a meta page's worth
// of bookkeeping, all guarded by a single lock. Per section 5, page-level
// locking is not worth the complexity here: the relation lock is the unit
// of contention the spec actually requires (share for scans, exclusive for
// mutation), and nothing in the design calls for finer granularity.
type Index struct {
	mu sync.RWMutex

	dim           int
	strategy      marks.Strategy
	tuplesPerPage int

	marks marks.Matrix
	pages []*page
	// ring holds indices into pages known to have room for at least one
	// more tuple; a FIFO queue standing in for notFullPage/nStart/nEnd.
	ring []int

	magic     uint32
	nChanges  uint32
	built     bool
	reltuples int64
}

// defaultPageSize and pageOverheadBytes set the data page budget:
// tuplesPerPage(dim) divides what remains after the overhead by the fixed
// tuple size, so the per-page tuple count is recomputed per relation once dim
// is known.
const defaultPageSize = 8192
const pageOverheadBytes = 24 // page header + opaque trailer, approximated

// New creates an empty, unbuilt index for the given dimensionality and
// marks strategy.
func New(dim int, strategy marks.Strategy) *Index {
	idx := &Index{
		dim:      dim,
		strategy: strategy,
		magic:    Magic,
	}
	idx.tuplesPerPage = tuplesPerPage(dim)
	return idx
}

func tuplesPerPage(dim int) int {
	tupleSize := 6 + dim // TID (4-byte block + 2-byte offset) + D bytes
	n := (defaultPageSize - pageOverheadBytes) / tupleSize
	if n < 1 {
		n = 1
	}
	return n
}

// Dim returns the relation's dimensionality.
func (idx *Index) Dim() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

// Strategy returns the marks strategy this relation was (or will be) built with.
func (idx *Index) Strategy() marks.Strategy {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.strategy
}

// Marks returns a copy of the relation's marks, or nil if unbuilt.
func (idx *Index) Marks() marks.Matrix {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.marks == nil {
		return nil
	}
	out := make(marks.Matrix, len(idx.marks))
	for i, row := range idx.marks {
		r := make([]float64, len(row))
		copy(r, row)
		out[i] = r
	}
	return out
}

// Stats summarizes a relation's current state.
type Stats struct {
	HeapTuples  int64
	IndexTuples int64
	Pages       int
	NChanges    uint32
	Stale       bool
}

// Stats reports the relation's current counts and staleness.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.statsLocked()
}

func (idx *Index) statsLocked() Stats {
	var live int64
	pages := 0
	for _, p := range idx.pages {
		if p.deleted {
			continue
		}
		pages++
		live += int64(p.maxoff())
	}
	return Stats{
		HeapTuples:  idx.reltuples,
		IndexTuples: live,
		Pages:       pages,
		NChanges:    idx.nChanges,
		Stale:       idx.isStale(),
	}
}

func (idx *Index) isStale() bool {
	if idx.nChanges > StaleAbsolute {
		return true
	}
	if idx.reltuples > 0 && float64(idx.nChanges) > StaleFraction*float64(idx.reltuples) {
		return true
	}
	return false
}

func (idx *Index) checkBuilt() error {
	if !idx.built {
		return fmt.Errorf("%w: index has not been built", errs.ErrCorrupted)
	}
	if idx.magic != Magic {
		return fmt.Errorf("%w: bad magic number", errs.ErrCorrupted)
	}
	return nil
}
