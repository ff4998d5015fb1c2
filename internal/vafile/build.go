package vafile

import (
	"context"
	"fmt"

	"github.com/therealutkarshpriyadarshi/vafile/internal/approx"
	"github.com/therealutkarshpriyadarshi/vafile/internal/errs"
	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
)

// Row is one base-relation row presented to Build: a heap TID and its
// feature vector (nil Vector for a NULL feature, dropped from the index).
type Row struct {
	TID    TID
	Vector []float64
}

// BuildResult reports the counts from section 6's build() contract.
type BuildResult struct {
	HeapTuples  int64
	IndexTuples int64
	Warnings    []string
}

// Build runs the mark builder over a sample of rows, then encodes and packs
// every live row into data pages. Fails if the index was already built.
func (idx *Index) Build(ctx context.Context, rows []Row, strategy marks.Strategy) (*BuildResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.built {
		return nil, fmt.Errorf("build called on a non-empty index")
	}

	sampleRows := make([]marks.Row, len(rows))
	for i, r := range rows {
		sampleRows[i] = marks.Row{Vector: r.Vector}
	}
	sampler := &marks.BatchSampler{Rows: sampleRows}

	result, err := marks.Build(ctx, sampler, strategy)
	if err != nil {
		return nil, err
	}

	idx.strategy = strategy
	idx.marks = result.Marks
	idx.dim = result.Dim
	idx.tuplesPerPage = tuplesPerPage(idx.dim)
	idx.pages = nil
	idx.ring = nil
	idx.nChanges = 0

	var indexTuples int64
	for _, r := range rows {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w", errs.ErrCancelled)
		default:
		}
		if r.Vector == nil {
			continue
		}
		a, err := approx.Encode(r.Vector, idx.marks)
		if err != nil {
			return nil, err
		}
		idx.appendDuringBuild(r.TID, a)
		indexTuples++
	}
	idx.reltuples = int64(len(rows))
	idx.built = true
	idx.rebuildRing()

	return &BuildResult{
		HeapTuples:  idx.reltuples,
		IndexTuples: indexTuples,
		Warnings:    result.Warnings,
	}, nil
}

func (idx *Index) appendDuringBuild(tid TID, a approx.Apx) {
	if len(idx.pages) == 0 || idx.pages[len(idx.pages)-1].maxoff() >= idx.tuplesPerPage {
		idx.pages = append(idx.pages, &page{tuples: make([]Tuple, 0, idx.tuplesPerPage)})
	}
	last := idx.pages[len(idx.pages)-1]
	last.tuples = append(last.tuples, Tuple{TID: tid, Apx: a})
}

// rebuildRing recomputes the free-page ring from scratch: every
// non-deleted page with room for at least one more tuple. Called after any
// bulk structural change (build, bulk-delete) to keep the invariant that
// the ring is rewritten atomically rather than incrementally patched.
func (idx *Index) rebuildRing() {
	idx.ring = idx.ring[:0]
	for i, p := range idx.pages {
		if !p.deleted && p.maxoff() < idx.tuplesPerPage {
			idx.ring = append(idx.ring, i)
		}
	}
}
