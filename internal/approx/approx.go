// Package approx implements the VA-File approximation codec: turning a
// dense feature vector into a fixed-width byte-per-dimension cell index
// under a set of marks. Grounded on adam_index_va.c's set_bitstring, with
// the load/save-parameter shape borrowed from the teacher's
// internal/quantization/scalar.go (Quantize/Dequantize split).
package approx

import (
	"fmt"
	"math"

	"github.com/therealutkarshpriyadarshi/vafile/internal/errs"
	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
)

// MaxDimensions bounds D so every cell index fits in one byte's worth of
// addressing headroom reserved by the tuple layout (section 3: D <= 255).
const MaxDimensions = 255

// Apx is a fixed-width approximation: one cell index per dimension.
type Apx []byte

// Encode finds, for each dimension, the largest partition boundary not
// exceeding the feature value, clamping into [0, P-1]. Pure and
// deterministic: the same (vector, marks) pair always yields the same Apx.
func Encode(v []float64, m marks.Matrix) (Apx, error) {
	d := len(m)
	if d > MaxDimensions {
		return nil, fmt.Errorf("%w: %d dimensions exceeds the %d-dimension limit", errs.ErrBadVector, d, MaxDimensions)
	}
	if len(v) < d {
		d = len(v)
	}

	out := make(Apx, d)
	for dim := 0; dim < d; dim++ {
		val := v[dim]
		if math.IsNaN(val) {
			return nil, fmt.Errorf("%w: NaN at dimension %d", errs.ErrBadVector, dim)
		}
		row := m[dim]
		p := 0
		for k := 0; k <= marks.MaxPartitions-1; k++ {
			if row[k] <= val {
				p = k
			} else {
				break
			}
		}
		if p < 0 {
			p = 0
		}
		if p > 255 {
			p = 255
		}
		out[dim] = byte(p)
	}
	return out, nil
}

// GetWord returns the cell index for dimension d, the GET_WORD primitive
// from section 4.2.
func GetWord(a Apx, d int) byte {
	return a[d]
}
