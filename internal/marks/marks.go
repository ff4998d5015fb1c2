// Package marks computes per-dimension quantization boundaries ("marks")
// from a sampled set of feature rows, the first stage of building a VA-File
// relation. It is grounded on adam_index_marks.c (calculateMarks,
// getSampledRows, getMinMax, getEquidistantMarks, getFrequencies,
// getEquifrequentMarks) from the ADAM source tree this system descends from.
package marks

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/therealutkarshpriyadarshi/vafile/internal/errs"
)

const (
	// MaxPartitions is the number of cells per dimension, P in the spec.
	MaxPartitions = 63
	// MaxMarks is the number of mark values per dimension, P+1.
	MaxMarks = MaxPartitions + 1
	// NSamples is the maximum number of rows drawn for mark building.
	NSamples = 10000
	// SamplingFrequency is the histogram resolution used by EQUIFREQUENT.
	SamplingFrequency = 10000
	// MinSamples is the fewest usable (non-null) rows required to build marks.
	MinSamples = 256
)

// Strategy selects how interior marks are distributed across a dimension's range.
type Strategy int

const (
	// EquiDistant places marks at uniform intervals between min and max.
	EquiDistant Strategy = iota
	// EquiFrequent places marks so each partition holds roughly the same sample count.
	EquiFrequent
)

func (s Strategy) String() string {
	switch s {
	case EquiDistant:
		return "equidistant"
	case EquiFrequent:
		return "equifrequent"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Row is one sampled feature row. A nil Vector represents a NULL feature.
type Row struct {
	Vector []float64
}

// Sampler yields up to max rows for mark building.
type Sampler interface {
	Sample(ctx context.Context, max int) ([]Row, error)
}

// Matrix is marks[d][p], 0 <= d < D, 0 <= p <= MaxPartitions.
type Matrix [][]float64

// Result is the outcome of a successful mark build.
type Result struct {
	Marks    Matrix
	Dim      int
	Warnings []string
}

// Build runs the mark builder contract described in section 4.1: a min/max
// pass over the sample, then either the equidistant or equifrequent
// partitioning strategy.
func Build(ctx context.Context, sampler Sampler, strategy Strategy) (*Result, error) {
	rows, err := sampler.Sample(ctx, NSamples)
	if err != nil {
		return nil, err
	}

	features := make([][]float64, 0, len(rows))
	for _, r := range rows {
		if r.Vector != nil {
			features = append(features, r.Vector)
		}
	}
	if len(features) < MinSamples {
		return nil, fmt.Errorf("%w: got %d usable rows, need at least %d", errs.ErrInsufficientSamples, len(features), MinSamples)
	}

	dim := len(features[0])
	mismatch := false
	for _, f := range features[1:] {
		if len(f) != dim {
			mismatch = true
			if len(f) < dim {
				dim = len(f)
			}
		}
	}
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-length feature vectors", errs.ErrBadVector)
	}

	min := make([]float64, dim)
	max := make([]float64, dim)
	for d := 0; d < dim; d++ {
		min[d] = math.Inf(1)
		max[d] = math.Inf(-1)
	}

	n := 0
	for _, f := range features {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w", errs.ErrCancelled)
		default:
		}
		for d := 0; d < dim; d++ {
			v := f[d]
			if math.IsNaN(v) {
				return nil, fmt.Errorf("%w: NaN at dimension %d", errs.ErrBadVector, d)
			}
			if v < min[d] {
				min[d] = v
			}
			if v > max[d] {
				max[d] = v
			}
		}
		n++
	}

	var m Matrix
	switch strategy {
	case EquiFrequent:
		var err error
		m, err = buildEquifrequent(ctx, features, dim, min, max)
		if err != nil {
			return nil, err
		}
	default:
		m = buildEquidistant(dim, min, max)
	}

	res := &Result{Marks: m, Dim: dim}
	if mismatch {
		res.Warnings = append(res.Warnings, "sample rows disagreed in dimensionality; shrunk to the common prefix")
	}
	return res, nil
}

func buildEquidistant(dim int, min, max []float64) Matrix {
	m := make(Matrix, dim)
	for d := 0; d < dim; d++ {
		row := make([]float64, MaxMarks)
		row[0] = min[d]
		row[MaxPartitions] = max[d]
		span := max[d] - min[d]
		for k := 1; k < MaxPartitions; k++ {
			row[k] = min[d] + float64(k)*span/float64(MaxPartitions)
		}
		m[d] = row
	}
	return m
}

func buildEquifrequent(ctx context.Context, features [][]float64, dim int, min, max []float64) (Matrix, error) {
	freq := make([][]int, dim)
	for d := range freq {
		freq[d] = make([]int, SamplingFrequency)
	}
	counts := make([]int, dim)

	for _, f := range features {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w", errs.ErrCancelled)
		default:
		}
		for d := 0; d < dim; d++ {
			span := max[d] - min[d]
			var cell int
			if span == 0 {
				cell = 0
			} else {
				cell = int(math.Floor(SamplingFrequency * (f[d] - min[d]) / span))
				if cell < 0 {
					cell = 0
				}
				if cell > SamplingFrequency-1 {
					cell = SamplingFrequency - 1
				}
			}
			freq[d][cell]++
			counts[d]++
		}
	}

	m := make(Matrix, dim)
	for d := 0; d < dim; d++ {
		row := make([]float64, MaxMarks)
		row[0] = min[d]
		row[MaxPartitions] = max[d]
		span := max[d] - min[d]
		n := counts[d]

		k := 0
		sum := 0
		for p := 1; p < MaxPartitions; p++ {
			target := p * n / MaxPartitions
			for sum < target && k < SamplingFrequency-1 {
				sum += freq[d][k]
				k++
			}
			if span == 0 {
				row[p] = min[d]
			} else {
				row[p] = min[d] + float64(k)*span/SamplingFrequency
			}
		}
		m[d] = row
	}
	return m, nil
}

// BatchSampler adapts an in-memory batch of rows into a Sampler, reservoir
// sampling down to max entries with Algorithm R when the batch is larger.
// This is the sampling source used by Build in place of the catalog-driven
// acquire_sample_rows the original system relied on.
type BatchSampler struct {
	Rows []Row
	Rand *rand.Rand
}

func (b *BatchSampler) Sample(ctx context.Context, max int) ([]Row, error) {
	if len(b.Rows) <= max {
		out := make([]Row, len(b.Rows))
		copy(out, b.Rows)
		return out, nil
	}

	r := b.Rand
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}

	out := make([]Row, max)
	copy(out, b.Rows[:max])
	for i := max; i < len(b.Rows); i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w", errs.ErrCancelled)
		default:
		}
		j := r.Intn(i + 1)
		if j < max {
			out[j] = b.Rows[i]
		}
	}
	return out, nil
}
