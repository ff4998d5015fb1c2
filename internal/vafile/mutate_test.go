package vafile

import (
	"context"
	"testing"

	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
)

func builtIndex(t *testing.T, n, dim int) *Index {
	t.Helper()
	idx := New(dim, marks.EquiDistant)
	rows := gridRows(n, dim)
	if _, err := idx.Build(context.Background(), rows, marks.EquiDistant); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func TestInsertIncrementsCounts(t *testing.T) {
	idx := builtIndex(t, 300, 2)
	before := idx.Stats()

	err := idx.Insert(context.Background(), TID{Block: 999, Offset: 1}, []float64{1, 2})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	after := idx.Stats()
	if after.IndexTuples != before.IndexTuples+1 {
		t.Errorf("expected index tuples to grow by 1, got %d -> %d", before.IndexTuples, after.IndexTuples)
	}
	if after.NChanges != before.NChanges+1 {
		t.Errorf("expected nChanges to grow by 1, got %d -> %d", before.NChanges, after.NChanges)
	}
}

func TestInsertReusesFreePages(t *testing.T) {
	idx := builtIndex(t, 300, 2)
	pagesBefore := len(idx.pages)

	// 300 two-dimensional tuples fill only part of one page, so the build
	// leaves that page on the free ring; the insert must land there rather
	// than allocate a new page.
	if err := idx.Insert(context.Background(), TID{Block: 1000, Offset: 0}, []float64{5, 5}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if len(idx.pages) != pagesBefore {
		t.Fatalf("expected the insert to reuse a free page, went from %d to %d pages", pagesBefore, len(idx.pages))
	}
}

func TestBulkDeleteRemovesMatchingTuples(t *testing.T) {
	idx := builtIndex(t, 500, 3)
	before := idx.Stats()

	target := TID{Block: 0, Offset: 0}
	res, err := idx.BulkDelete(context.Background(), func(tid TID) bool {
		return tid == target
	})
	if err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	if res.TuplesRemoved != 1 {
		t.Errorf("expected 1 tuple removed, got %d", res.TuplesRemoved)
	}

	after := idx.Stats()
	if after.IndexTuples != before.IndexTuples-1 {
		t.Errorf("expected index tuples to shrink by 1, got %d -> %d", before.IndexTuples, after.IndexTuples)
	}
}

func TestBulkDeleteMarksEmptyPagesDeleted(t *testing.T) {
	idx := builtIndex(t, 300, 2)
	_, err := idx.BulkDelete(context.Background(), func(tid TID) bool { return true })
	if err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	for _, p := range idx.pages {
		if !p.deleted {
			t.Fatalf("expected every page to be marked deleted after removing all tuples")
		}
	}
	st := idx.Stats()
	if st.IndexTuples != 0 {
		t.Errorf("expected 0 live tuples, got %d", st.IndexTuples)
	}
}

func TestVacuumCleanupTruncatesTrailingDeletedPages(t *testing.T) {
	idx := builtIndex(t, 300, 2)
	if _, err := idx.BulkDelete(context.Background(), func(tid TID) bool { return true }); err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	pagesBefore := len(idx.pages)

	res, err := idx.VacuumCleanup(context.Background())
	if err != nil {
		t.Fatalf("VacuumCleanup: %v", err)
	}
	if res.PagesTruncated != pagesBefore {
		t.Errorf("expected all %d pages truncated, got %d", pagesBefore, res.PagesTruncated)
	}
	if len(idx.pages) != 0 {
		t.Errorf("expected 0 remaining pages, got %d", len(idx.pages))
	}
}

func TestRingNeverReferencesDeletedOrFullPages(t *testing.T) {
	idx := builtIndex(t, 500, 2)
	if _, err := idx.BulkDelete(context.Background(), func(tid TID) bool {
		return tid.Offset == 0
	}); err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	for _, pi := range idx.ring {
		p := idx.pages[pi]
		if p.deleted {
			t.Fatalf("ring references a deleted page %d", pi)
		}
		if p.maxoff() >= idx.tuplesPerPage {
			t.Fatalf("ring references a full page %d", pi)
		}
	}
}
