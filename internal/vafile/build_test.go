package vafile

import (
	"context"
	"testing"

	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
)

func gridRows(n, dim int) []Row {
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		v := make([]float64, dim)
		for d := 0; d < dim; d++ {
			v[d] = float64((i*7 + d*13) % 200)
		}
		rows[i] = Row{TID: TID{Block: uint32(i / 10), Offset: uint16(i % 10)}, Vector: v}
	}
	return rows
}

func TestBuildPopulatesStats(t *testing.T) {
	idx := New(3, marks.EquiDistant)
	rows := gridRows(500, 3)

	res, err := idx.Build(context.Background(), rows, marks.EquiDistant)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.HeapTuples != 500 {
		t.Errorf("expected 500 heap tuples, got %d", res.HeapTuples)
	}
	if res.IndexTuples != 500 {
		t.Errorf("expected 500 index tuples, got %d", res.IndexTuples)
	}

	st := idx.Stats()
	if st.IndexTuples != 500 {
		t.Errorf("expected stats to report 500 index tuples, got %d", st.IndexTuples)
	}
	if st.NChanges != 0 {
		t.Errorf("expected 0 changes right after build, got %d", st.NChanges)
	}
}

func TestBuildSkipsNullVectors(t *testing.T) {
	idx := New(2, marks.EquiDistant)
	rows := gridRows(400, 2)
	rows[0].Vector = nil
	rows[1].Vector = nil

	res, err := idx.Build(context.Background(), rows, marks.EquiDistant)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.HeapTuples != 400 {
		t.Errorf("expected 400 heap tuples, got %d", res.HeapTuples)
	}
	if res.IndexTuples != 398 {
		t.Errorf("expected 398 index tuples (2 NULLs dropped), got %d", res.IndexTuples)
	}
}

func TestBuildTwiceFails(t *testing.T) {
	idx := New(2, marks.EquiDistant)
	rows := gridRows(300, 2)
	if _, err := idx.Build(context.Background(), rows, marks.EquiDistant); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	if _, err := idx.Build(context.Background(), rows, marks.EquiDistant); err == nil {
		t.Fatal("expected the second Build call to fail")
	}
}

func TestBuildAllPagesWithinCapacity(t *testing.T) {
	idx := New(4, marks.EquiDistant)
	rows := gridRows(2000, 4)
	if _, err := idx.Build(context.Background(), rows, marks.EquiDistant); err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, p := range idx.pages {
		if p.maxoff() > idx.tuplesPerPage {
			t.Fatalf("page holds %d tuples, exceeding capacity %d", p.maxoff(), idx.tuplesPerPage)
		}
	}
}
