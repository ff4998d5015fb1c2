package vafile

import (
	"context"
	"fmt"

	"github.com/therealutkarshpriyadarshi/vafile/internal/approx"
	"github.com/therealutkarshpriyadarshi/vafile/internal/errs"
)

// Insert encodes vector and appends it to the relation, consulting the
// free-page ring before allocating a new page. Never reports uniqueness
// violations, per section 6.
func (idx *Index) Insert(ctx context.Context, tid TID, vector []float64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkBuilt(); err != nil {
		return err
	}

	a, err := approx.Encode(vector, idx.marks)
	if err != nil {
		return err
	}

	for len(idx.ring) > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w", errs.ErrCancelled)
		default:
		}
		pi := idx.ring[0]
		idx.ring = idx.ring[1:]
		p := idx.pages[pi]
		if p.deleted || p.maxoff() >= idx.tuplesPerPage {
			continue
		}
		p.tuples = append(p.tuples, Tuple{TID: tid, Apx: a})
		if p.maxoff() < idx.tuplesPerPage {
			idx.ring = append(idx.ring, pi)
		}
		idx.nChanges++
		idx.reltuples++
		return nil
	}

	p := &page{tuples: make([]Tuple, 0, idx.tuplesPerPage)}
	p.tuples = append(p.tuples, Tuple{TID: tid, Apx: a})
	idx.pages = append(idx.pages, p)
	newIdx := len(idx.pages) - 1
	idx.ring = idx.ring[:0]
	if p.maxoff() < idx.tuplesPerPage {
		idx.ring = append(idx.ring, newIdx)
	}
	idx.nChanges++
	idx.reltuples++
	return nil
}

// DeleteCallback reports true for a TID that should be dropped.
type DeleteCallback func(tid TID) bool

// DeleteResult reports the bulkdelete() stats from section 6.
type DeleteResult struct {
	TuplesRemoved   int64
	NumIndexTuples  int64
}

// BulkDelete compacts every data page in place, dropping tuples the
// callback rejects, then rewrites the free-page ring atomically.
func (idx *Index) BulkDelete(ctx context.Context, cb DeleteCallback) (*DeleteResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkBuilt(); err != nil {
		return nil, err
	}

	var removed int64
	for _, p := range idx.pages {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w", errs.ErrCancelled)
		default:
		}
		if p.deleted {
			continue
		}
		survivors := p.tuples[:0]
		for _, t := range p.tuples {
			if cb(t.TID) {
				removed++
				continue
			}
			survivors = append(survivors, t)
		}
		p.tuples = survivors
		if len(p.tuples) == 0 {
			p.deleted = true
		}
	}

	idx.rebuildRing()
	if removed > 0 {
		idx.nChanges += uint32(removed)
		idx.reltuples -= removed
		if idx.reltuples < 0 {
			idx.reltuples = 0
		}
	}

	st := idx.statsLocked()
	return &DeleteResult{TuplesRemoved: removed, NumIndexTuples: st.IndexTuples}, nil
}

// VacuumResult reports the vacuumcleanup() stats from section 6.
type VacuumResult struct {
	NumIndexTuples  int64
	PagesReclaimed  int
	PagesTruncated  int
}

// VacuumCleanup recounts live tuples per page, and truncates any trailing
// run of deleted pages from the relation.
func (idx *Index) VacuumCleanup(ctx context.Context) (*VacuumResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkBuilt(); err != nil {
		return nil, err
	}

	reclaimed := 0
	for _, p := range idx.pages {
		if p.deleted {
			reclaimed++
		}
	}

	truncated := 0
	for len(idx.pages) > 0 && idx.pages[len(idx.pages)-1].deleted {
		idx.pages = idx.pages[:len(idx.pages)-1]
		truncated++
	}

	idx.rebuildRing()
	st := idx.statsLocked()
	return &VacuumResult{
		NumIndexTuples: st.IndexTuples,
		PagesReclaimed: reclaimed,
		PagesTruncated: truncated,
	}, nil
}
