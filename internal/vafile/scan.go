package vafile

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/therealutkarshpriyadarshi/vafile/internal/distance"
	"github.com/therealutkarshpriyadarshi/vafile/internal/errs"
	"github.com/therealutkarshpriyadarshi/vafile/internal/pqueue"
)

// scanState tracks the per-scan state machine from section 4.3.
type scanState int

const (
	scanOpen scanState = iota
	scanDone
	scanClosed
)

// Scan is one index scan handle. Mark/restore is fatal, matching the
// teacher's HNSW search handle having no equivalent concept either — this
// index is forward-only.
type Scan struct {
	idx *Index

	query   []float64
	norm    float64
	weights []float64
	k       int
	input   *roaring64.Bitmap

	state scanState
}

// BeginScan opens a scan handle against idx. The handle starts empty of
// search keys; call Rescan to supply them before GetBitmap.
func (idx *Index) BeginScan() *Scan {
	return &Scan{idx: idx, state: scanOpen}
}

// Rescan replaces a scan's search keys. Valid only while the scan is open;
// resources (the handle itself) are retained across calls.
func (s *Scan) Rescan(query []float64, norm float64, weights []float64, k int, input *roaring64.Bitmap) error {
	if s.state != scanOpen {
		return fmt.Errorf("rescan called on a scan that is not open")
	}
	s.query = query
	s.norm = norm
	s.weights = weights
	s.k = k
	s.input = input
	return nil
}

// EndScan releases a scan handle.
func (s *Scan) EndScan() error {
	s.state = scanClosed
	return nil
}

// MarkPos is not supported; VA-File scans are forward-only.
func (s *Scan) MarkPos() error {
	return fmt.Errorf("markpos is not supported by this index")
}

// RestorePos is not supported; VA-File scans are forward-only.
func (s *Scan) RestorePos() error {
	return fmt.Errorf("restorepos is not supported by this index")
}

type candidate struct {
	lower float64
	upper float64
	tid   TID
}

// GetBitmap runs the filter-and-refine scan described in section 4.3 and
// returns the candidate TIDs the host must still verify, plus their count.
// The bitmap returned is fresh for this call but is meant to be OR'd into a
// caller-owned accumulator across index scans, per section 6.
func (s *Scan) GetBitmap(ctx context.Context) (*roaring64.Bitmap, int64, []string, error) {
	if s.state != scanOpen {
		return nil, 0, nil, fmt.Errorf("getbitmap called on a scan that is not open")
	}
	idx := s.idx

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := idx.checkBuilt(); err != nil {
		return nil, 0, nil, err
	}

	var warnings []string
	if idx.isStale() {
		warnings = append(warnings, "index is stale: rebuild recommended")
	}

	out := roaring64.New()

	if s.k <= 0 {
		// No limit: degrade to full sequential emission (a cost-model
		// concern, not a correctness failure, per section 4.3 step 5).
		var count int64
		for _, p := range idx.pages {
			if p.deleted {
				continue
			}
			for _, t := range p.tuples {
				if s.input != nil && !s.input.Contains(t.TID.Key()) {
					continue
				}
				out.Add(t.TID.Key())
				count++
			}
		}
		s.state = scanDone
		return out, count, warnings, nil
	}

	bounds, err := distance.Precompute(s.query, idx.marks, s.norm, s.weights)
	if err != nil {
		return nil, 0, nil, err
	}

	pq := pqueue.New(s.k)
	for _, p := range idx.pages {
		select {
		case <-ctx.Done():
			return nil, 0, nil, fmt.Errorf("%w", errs.ErrCancelled)
		default:
		}
		if p.deleted {
			continue
		}
		for _, t := range p.tuples {
			if s.input != nil && !s.input.Contains(t.TID.Key()) {
				continue
			}
			l := bounds.Lower(t.Apx)

			worst, _ := pq.Max()
			if pq.Len() < s.k || l < worst.Key {
				u := bounds.Upper(t.Apx)
				if pq.InsertCheck(u) {
					pq.Insert(u, candidate{lower: l, upper: u, tid: t.TID})
				}
			}
		}
	}

	maxU, ok := pq.Max()
	if !ok {
		s.state = scanDone
		return out, 0, warnings, nil
	}

	var count int64
	for _, p := range idx.pages {
		if p.deleted {
			continue
		}
		for _, t := range p.tuples {
			if s.input != nil && !s.input.Contains(t.TID.Key()) {
				continue
			}
			l := bounds.Lower(t.Apx)
			if l <= maxU.Key {
				out.Add(t.TID.Key())
				count++
			}
		}
	}

	s.state = scanDone
	return out, count, warnings, nil
}
