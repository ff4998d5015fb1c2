package distance

import "testing"

type constExtension struct {
	arity int
	value float64
}

func (c constExtension) Arity() int { return c.arity }
func (c constExtension) Invoke(args []float64) (float64, error) { return c.value, nil }

func TestResolveBuiltinMinkowski(t *testing.T) {
	r := NewRegistry()
	resolved, err := r.Resolve(Request{Norm: 2})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Kind != KindMinkowski {
		t.Errorf("expected KindMinkowski, got %v", resolved.Kind)
	}
}

func TestResolveNamedExtensionTakesPrecedence(t *testing.T) {
	r := NewRegistry()
	r.Register("cosine", constExtension{arity: 2, value: 0.1})
	resolved, err := r.Resolve(Request{Name: "cosine", Norm: 2})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Kind != KindExtension {
		t.Errorf("expected KindExtension, got %v", resolved.Kind)
	}
}

func TestResolveUnknownNameFails(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve(Request{Name: "nope"}); err == nil {
		t.Fatal("expected an error for an unregistered name")
	}
}

func TestResolveRejectsMaxWithWeights(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve(Request{Norm: MaxNorm, Weights: []float64{1}}); err == nil {
		t.Fatal("expected an error for max norm combined with weights")
	}
}

func TestSignatureDistinguishesVariants(t *testing.T) {
	r := NewRegistry()
	plain, _ := r.Resolve(Request{Norm: 2})
	weighted, _ := r.Resolve(Request{Norm: 2, Weights: []float64{1, 2}})
	max, _ := r.Resolve(Request{Norm: MaxNorm})

	sigs := map[string]bool{}
	for _, s := range []string{plain.Signature(), weighted.Signature(), max.Signature()} {
		if sigs[s] {
			t.Errorf("expected distinct signatures, got duplicate %q", s)
		}
		sigs[s] = true
	}
}
