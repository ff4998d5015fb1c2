package distance

import (
	"fmt"
	"sync"

	"github.com/therealutkarshpriyadarshi/vafile/internal/errs"
)

// Kind tags a resolved distance as one of the known built-in shapes or an
// extension registered by name. This replaces the source's duck-typed,
// catalog-OID-driven lookup with a closed tagged variant plus an escape
// hatch, per the "Duck-typed callables" design note.
type Kind int

const (
	KindMinkowski Kind = iota
	KindExtension
)

// Extension is the capability interface an out-of-band distance registers
// under a name: a fixed arity and an invocation that computes a scalar
// distance from its arguments.
type Extension interface {
	Arity() int
	Invoke(args []float64) (float64, error)
}

// Request describes what a caller asked for, before resolution.
type Request struct {
	// Name, when non-empty, selects a registered Extension by name and
	// takes precedence over Norm/Weights.
	Name string

	// Norm and Weights describe a built-in Minkowski request when Name is empty.
	Norm    float64
	Weights []float64
}

// Resolved is the outcome of resolving a Request: either a built-in
// Minkowski distance (Norm/Weights populated) or a registered Extension.
type Resolved struct {
	Kind    Kind
	Norm    float64
	Weights []float64
	Ext     Extension
}

// Registry maps extension names to callables. It is built once at process
// start and consulted by Resolve; there are no back-pointers from a
// Resolved value to the registry, matching the "Cyclic references via
// catalog OIDs" design note.
type Registry struct {
	mu         sync.RWMutex
	extensions map[string]Extension
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extensions: make(map[string]Extension)}
}

// Register adds (or replaces) a named extension distance.
func (r *Registry) Register(name string, ext Extension) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extensions[name] = ext
}

// Resolve implements the precedence from section 4.4: an explicit
// named distance first, then the built-in Minkowski spec, otherwise
// BadDistance.
func (r *Registry) Resolve(req Request) (*Resolved, error) {
	if req.Name != "" {
		r.mu.RLock()
		ext, ok := r.extensions[req.Name]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: no distance registered under name %q", errs.ErrBadDistance, req.Name)
		}
		return &Resolved{Kind: KindExtension, Ext: ext}, nil
	}

	if !IsMax(req.Norm) {
		if err := validateNorm(req.Norm); err != nil {
			return nil, err
		}
	}
	if IsMax(req.Norm) && req.Weights != nil {
		return nil, fmt.Errorf("%w: the max sentinel does not support weighted distances", errs.ErrBadDistance)
	}
	return &Resolved{Kind: KindMinkowski, Norm: req.Norm, Weights: req.Weights}, nil
}

// Signature produces a stable string identifying a resolved distance, used
// as part of a normalization Key.
func (r *Resolved) Signature() string {
	if r.Kind == KindExtension {
		return "ext"
	}
	if IsMax(r.Norm) {
		return "minkowski:max"
	}
	if r.Weights != nil {
		return fmt.Sprintf("minkowski:%v:weighted", r.Norm)
	}
	return fmt.Sprintf("minkowski:%v", r.Norm)
}
