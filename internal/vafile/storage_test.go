package vafile

import (
	"bytes"
	"context"
	"testing"

	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
)

func TestFlushLoadRoundTrip(t *testing.T) {
	idx := New(3, marks.EquiDistant)
	rows := gridRows(400, 3)
	if _, err := idx.Build(context.Background(), rows, marks.EquiDistant); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := idx.Insert(context.Background(), TID{Block: 777, Offset: 1}, []float64{9, 9, 9}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var buf bytes.Buffer
	if err := idx.Flush(&buf); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Dim() != idx.Dim() {
		t.Errorf("dim mismatch: %d vs %d", loaded.Dim(), idx.Dim())
	}
	if loaded.Strategy() != idx.Strategy() {
		t.Errorf("strategy mismatch: %v vs %v", loaded.Strategy(), idx.Strategy())
	}

	wantStats := idx.Stats()
	gotStats := loaded.Stats()
	if gotStats.IndexTuples != wantStats.IndexTuples {
		t.Errorf("index tuples mismatch: %d vs %d", gotStats.IndexTuples, wantStats.IndexTuples)
	}
	if gotStats.Pages != wantStats.Pages {
		t.Errorf("page count mismatch: %d vs %d", gotStats.Pages, wantStats.Pages)
	}

	wantMarks := idx.Marks()
	gotMarks := loaded.Marks()
	for d := range wantMarks {
		for p := range wantMarks[d] {
			if wantMarks[d][p] != gotMarks[d][p] {
				t.Fatalf("marks mismatch at [%d][%d]: %v vs %v", d, p, wantMarks[d][p], gotMarks[d][p])
			}
		}
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})
	if _, err := Load(&buf); err == nil {
		t.Fatal("expected an error for a corrupted stream")
	}
}

func TestFlushLoadPreservesDeletedPages(t *testing.T) {
	idx := New(2, marks.EquiDistant)
	rows := gridRows(300, 2)
	if _, err := idx.Build(context.Background(), rows, marks.EquiDistant); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := idx.BulkDelete(context.Background(), func(tid TID) bool { return tid.Offset == 0 }); err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}

	var buf bytes.Buffer
	if err := idx.Flush(&buf); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Stats().IndexTuples != idx.Stats().IndexTuples {
		t.Errorf("expected live tuple count to survive a round trip, got %d vs %d", loaded.Stats().IndexTuples, idx.Stats().IndexTuples)
	}
}
