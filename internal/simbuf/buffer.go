package simbuf

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Buffer is the canonical host-side particle and cloth state.
//
// Positions, Velocities, Phases and ColorValues are index-aligned. The
// constraint arrays hold flattened index pairs (stretch, bend, shear) or
// triples (triangles) and are only meaningful for cloth scenes.
type Buffer struct {
	Positions   []mgl32.Vec3
	Velocities  []mgl32.Vec3
	Phases      []int32
	ColorValues []float32

	StretchIDs  []int32
	BendIDs     []int32
	ShearIDs    []int32
	TriangleIDs []int32

	Common      CommonParameters
	PhaseParams []PhaseParameters
}

// New returns an empty buffer with default common parameters.
func New() *Buffer {
	return &Buffer{
		Common: DefaultCommonParameters(),
	}
}

func (b *Buffer) NumParticles() int    { return len(b.Positions) }
func (b *Buffer) NumStretchLines() int { return len(b.StretchIDs) / 2 }
func (b *Buffer) NumBendLines() int    { return len(b.BendIDs) / 2 }
func (b *Buffer) NumShearLines() int   { return len(b.ShearIDs) / 2 }
func (b *Buffer) NumTriangles() int    { return len(b.TriangleIDs) / 3 }

// Reserve grows the capacity of every per-particle array to hold n particles.
func (b *Buffer) Reserve(n int) error {
	if n > MaxParticles {
		return fmt.Errorf("%w: %d > %d", ErrCapacity, n, MaxParticles)
	}
	if n <= cap(b.Positions) {
		return nil
	}
	b.Positions = grow(b.Positions, n)
	b.Velocities = grow(b.Velocities, n)
	b.Phases = grow(b.Phases, n)
	b.ColorValues = grow(b.ColorValues, n)
	return nil
}

func grow[T any](s []T, n int) []T {
	out := make([]T, len(s), n)
	copy(out, s)
	return out
}

// AddParticle appends one particle to all per-particle arrays and returns its index.
func (b *Buffer) AddParticle(pos, vel mgl32.Vec3, phase int32, colorValue float32) int32 {
	b.Positions = append(b.Positions, pos)
	b.Velocities = append(b.Velocities, vel)
	b.Phases = append(b.Phases, phase)
	b.ColorValues = append(b.ColorValues, colorValue)
	return int32(len(b.Positions) - 1)
}

// AddPhase registers a material and returns its phase id.
func (b *Buffer) AddPhase(p PhaseParameters) int32 {
	b.PhaseParams = append(b.PhaseParams, p)
	return int32(len(b.PhaseParams) - 1)
}

// Validate checks the buffer invariants. Constraint arrays are only checked
// for cloth.
func (b *Buffer) Validate(kind StateOfMatter) error {
	n := len(b.Positions)
	if len(b.Velocities) != n || len(b.Phases) != n || len(b.ColorValues) != n {
		return fmt.Errorf("%w: positions=%d velocities=%d phases=%d colors=%d",
			ErrLengthMismatch, n, len(b.Velocities), len(b.Phases), len(b.ColorValues))
	}

	if n > 0 && len(b.PhaseParams) == 0 {
		return ErrNoPhases
	}
	for i, ph := range b.Phases {
		if ph < 0 || int(ph) >= len(b.PhaseParams) {
			return fmt.Errorf("%w: particle %d has phase %d, %d phases defined",
				ErrPhaseRange, i, ph, len(b.PhaseParams))
		}
	}

	if kind != Cloth {
		return nil
	}

	checks := []struct {
		name  string
		ids   []int32
		arity int
	}{
		{"stretch", b.StretchIDs, 2},
		{"bend", b.BendIDs, 2},
		{"shear", b.ShearIDs, 2},
		{"triangle", b.TriangleIDs, 3},
	}
	for _, c := range checks {
		if len(c.ids)%c.arity != 0 {
			return fmt.Errorf("%w: %s has %d indices", ErrConstraintArity, c.name, len(c.ids))
		}
		for i, id := range c.ids {
			if id < 0 || int(id) >= n {
				return fmt.Errorf("%w: %s[%d] = %d with %d particles",
					ErrConstraintRange, c.name, i, id, n)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{
		Positions:   clone(b.Positions),
		Velocities:  clone(b.Velocities),
		Phases:      clone(b.Phases),
		ColorValues: clone(b.ColorValues),
		StretchIDs:  clone(b.StretchIDs),
		BendIDs:     clone(b.BendIDs),
		ShearIDs:    clone(b.ShearIDs),
		TriangleIDs: clone(b.TriangleIDs),
		Common:      b.Common.clone(),
		PhaseParams: clone(b.PhaseParams),
	}
}

func clone[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// Reset drops all particles, topology and phases and restores default parameters.
func (b *Buffer) Reset() {
	*b = Buffer{Common: DefaultCommonParameters()}
}

// View returns a read-only accessor over b.
func (b *Buffer) View() View {
	return View{b: b}
}
