package distance

import (
	"fmt"
	"math"
	"sync"

	"github.com/therealutkarshpriyadarshi/vafile/internal/errs"
)

// NormKind selects a normalization mapping from raw distance to [0,1].
type NormKind int

const (
	// NormNone performs no normalization.
	NormNone NormKind = iota
	// NormMinMax divides by a precomputed observed maximum.
	NormMinMax
	// NormGaussian centers and scales by a precomputed mean/standard deviation.
	NormGaussian
)

// Params holds the offline-precomputed parameters a normalization needs.
type Params struct {
	Max   float64
	Mu    float64
	Sigma float64
}

// Normalize maps a raw distance into [0,1] under kind, clamping the result.
func Normalize(d float64, kind NormKind, p Params) (float64, error) {
	switch kind {
	case NormNone:
		return d, nil
	case NormMinMax:
		if p.Max == 0 {
			return 0, fmt.Errorf("%w: minmax normalization requires a nonzero precomputed max", errs.ErrBadNormalization)
		}
		return clamp01(math.Min(1, d/p.Max)), nil
	case NormGaussian:
		if p.Sigma == 0 {
			return 0, fmt.Errorf("%w: gaussian normalization requires a nonzero precomputed sigma", errs.ErrBadNormalization)
		}
		return clamp01(((d-p.Mu)/(6*p.Sigma))+0.5), nil
	default:
		return 0, fmt.Errorf("%w: unknown normalization kind %d", errs.ErrBadNormalization, kind)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// PrecomputeParams folds an all-pairs (or sampled all-pairs) distance
// traversal into the (max, mu, sigma) triple the normalizations above need.
// sigma uses the sample standard deviation formula from section 4.4:
// sqrt((N*sum(d^2) - sum(d)^2) / (N*(N-1))).
func PrecomputeParams(distances []float64) (Params, error) {
	n := len(distances)
	if n < 2 {
		return Params{}, fmt.Errorf("%w: normalization precomputation needs at least 2 distances, got %d", errs.ErrBadNormalization, n)
	}

	var sum, sumSq, max float64
	for i, d := range distances {
		sum += d
		sumSq += d * d
		if i == 0 || d > max {
			max = d
		}
	}
	mu := sum / float64(n)
	variance := (float64(n)*sumSq - sum*sum) / (float64(n) * float64(n-1))
	if variance < 0 {
		variance = 0
	}
	return Params{Max: max, Mu: mu, Sigma: math.Sqrt(variance)}, nil
}

// Key identifies a persisted normalization parameter set. Per the open
// question resolved in DESIGN.md, parameters are keyed by relation, column,
// and the exact resolved distance signature, never assumed present by
// default.
type Key struct {
	Relation  string
	Column    string
	Signature string
}

// ParamStore persists normalization parameters across scans.
type ParamStore interface {
	Get(key Key) (Params, bool)
	Put(key Key, p Params)
}

// MemParamStore is an in-memory ParamStore; pkg/engine backs each relation's
// normalization parameters with one of these, persisted for the relation's
// lifetime alongside its marks.
type MemParamStore struct {
	mu sync.RWMutex
	m  map[Key]Params
}

// NewMemParamStore creates an empty store.
func NewMemParamStore() *MemParamStore {
	return &MemParamStore{m: make(map[Key]Params)}
}

func (s *MemParamStore) Get(key Key) (Params, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[key]
	return p, ok
}

func (s *MemParamStore) Put(key Key, p Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = p
}

// RequireParams looks up persisted parameters, failing with BadNormalization
// and a precompute hint rather than defaulting when absent.
func RequireParams(store ParamStore, key Key) (Params, error) {
	p, ok := store.Get(key)
	if !ok {
		return Params{}, fmt.Errorf("%w: no precomputed normalization parameters for %s/%s/%s; run precomputation first", errs.ErrBadNormalization, key.Relation, key.Column, key.Signature)
	}
	return p, nil
}

// Complement kinds, section 4.4.
const (
	ComplementNone     = "none"
	ComplementStandard = "standard"
	ComplementSugeno   = "sugeno"
	ComplementYager    = "yager"
)

// Complement applies one of the small set of complement transforms to a
// normalized measure m in [0,1].
func Complement(kind string, m float64, param float64) (float64, error) {
	switch kind {
	case "", ComplementNone:
		return m, nil
	case ComplementStandard:
		return 1 - m, nil
	case ComplementSugeno:
		if param <= -1 {
			return 0, fmt.Errorf("%w: sugeno lambda must be greater than -1", errs.ErrBadDistance)
		}
		return (1 - m) / (1 + param*m), nil
	case ComplementYager:
		if param <= 0 {
			return 0, fmt.Errorf("%w: yager w must be positive", errs.ErrBadDistance)
		}
		return math.Pow(1-math.Pow(m, param), 1/param), nil
	default:
		return 0, fmt.Errorf("%w: unknown complement kind %q", errs.ErrBadDistance, kind)
	}
}

// Weight applies the optional scalar multiply that precedes complement.
func Weight(m, w float64) float64 { return m * w }
