package compute

import (
	"errors"
	"slices"
	"testing"
)

func TestNewFactory(t *testing.T) {
	f, err := NewFactory("cpu", Options{})
	if err != nil {
		t.Fatalf("cpu factory: %v", err)
	}
	s, err := f()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.Name() != "cpu" {
		t.Errorf("name = %q, want cpu", s.Name())
	}

	first, _ := f()
	second, _ := f()
	if first == second {
		t.Error("factory returned the same solver twice")
	}
}

func TestNewFactoryUnknown(t *testing.T) {
	if _, err := NewFactory("vulkan", Options{}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("got %v, want ErrUnknownBackend", err)
	}
}

func TestBackendsAreAccepted(t *testing.T) {
	for _, name := range Backends() {
		if _, err := NewFactory(name, Options{}); err != nil {
			t.Errorf("NewFactory(%q): %v", name, err)
		}
	}
	if !slices.Contains(Backends(), "cpu") {
		t.Error("cpu missing from backends")
	}
}

func TestGLClothUnsupported(t *testing.T) {
	g := NewGLSolver(Options{})
	if err := g.BindCloth(nil); !errors.Is(err, ErrUnsupported) {
		t.Errorf("got %v, want ErrUnsupported", err)
	}
	if err := g.Step(nil); !errors.Is(err, ErrNotBound) {
		t.Errorf("step before bind: got %v, want ErrNotBound", err)
	}
	g.Release()
}
