package marks

import (
	"context"
	"math"
	"testing"
)

func sampleRows(n, dim int, gen func(i, d int) float64) []Row {
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		v := make([]float64, dim)
		for d := 0; d < dim; d++ {
			v[d] = gen(i, d)
		}
		rows[i] = Row{Vector: v}
	}
	return rows
}

func TestBuildEquidistantBoundaries(t *testing.T) {
	rows := sampleRows(300, 2, func(i, d int) float64 {
		return float64(i % 100)
	})
	sampler := &BatchSampler{Rows: rows}

	res, err := Build(context.Background(), sampler, EquiDistant)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Dim != 2 {
		t.Fatalf("expected dim 2, got %d", res.Dim)
	}
	for d := 0; d < res.Dim; d++ {
		row := res.Marks[d]
		if len(row) != MaxMarks {
			t.Fatalf("expected %d marks, got %d", MaxMarks, len(row))
		}
		if row[0] != 0 {
			t.Errorf("expected min mark 0, got %v", row[0])
		}
		if row[MaxPartitions] != 99 {
			t.Errorf("expected max mark 99, got %v", row[MaxPartitions])
		}
		for k := 1; k < len(row); k++ {
			if row[k] < row[k-1] {
				t.Fatalf("marks not non-decreasing at %d: %v < %v", k, row[k], row[k-1])
			}
		}
	}
}

func TestBuildInsufficientSamples(t *testing.T) {
	rows := sampleRows(10, 2, func(i, d int) float64 { return float64(i) })
	sampler := &BatchSampler{Rows: rows}

	_, err := Build(context.Background(), sampler, EquiDistant)
	if err == nil {
		t.Fatal("expected an error for too few samples")
	}
}

func TestBuildRejectsNaN(t *testing.T) {
	rows := sampleRows(300, 1, func(i, d int) float64 {
		if i == 0 {
			return math.NaN()
		}
		return float64(i)
	})
	sampler := &BatchSampler{Rows: rows}

	_, err := Build(context.Background(), sampler, EquiDistant)
	if err == nil {
		t.Fatal("expected an error for a NaN component")
	}
}

func TestBuildDegenerateDimension(t *testing.T) {
	rows := sampleRows(300, 2, func(i, d int) float64 {
		if d == 1 {
			return 7
		}
		return float64(i % 50)
	})
	sampler := &BatchSampler{Rows: rows}

	res, err := Build(context.Background(), sampler, EquiDistant)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for k := 0; k < MaxMarks; k++ {
		if res.Marks[1][k] != 7 {
			t.Fatalf("expected degenerate dimension to collapse to 7, got %v at %d", res.Marks[1][k], k)
		}
	}
}

func TestBuildEquifrequentNoEmptyPartitionOnSkewedData(t *testing.T) {
	n := 10000
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		var v float64
		if i < 9000 {
			v = float64(i%1000) / 10000.0 // clustered in [0, 0.1)
		} else {
			v = 0.1 + float64(i%900)/1000.0 // spread across [0.1, 1.0)
		}
		rows[i] = Row{Vector: []float64{v}}
	}
	sampler := &BatchSampler{Rows: rows}

	res, err := Build(context.Background(), sampler, EquiFrequent)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	row := res.Marks[0]
	for k := 1; k < len(row); k++ {
		if row[k] <= row[k-1] {
			t.Fatalf("equifrequent marks not strictly increasing at %d: partition %d is empty", k, k-1)
		}
	}
	firstSpan := row[1] - row[0]
	totalSpan := row[MaxPartitions] - row[0]
	if firstSpan > 0.1*totalSpan {
		t.Errorf("expected the first partition to concentrate near the cluster, got span %v of %v", firstSpan, totalSpan)
	}
}

func TestBuildRebuildIsIdempotent(t *testing.T) {
	rows := sampleRows(1000, 3, func(i, d int) float64 { return float64((i*7 + d) % 200) })
	s1 := &BatchSampler{Rows: rows}
	s2 := &BatchSampler{Rows: rows}

	r1, err := Build(context.Background(), s1, EquiDistant)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	r2, err := Build(context.Background(), s2, EquiDistant)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	for d := range r1.Marks {
		for p := range r1.Marks[d] {
			if r1.Marks[d][p] != r2.Marks[d][p] {
				t.Fatalf("rebuild not idempotent at [%d][%d]: %v vs %v", d, p, r1.Marks[d][p], r2.Marks[d][p])
			}
		}
	}
}
