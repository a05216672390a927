package simbuf

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewDefaults(t *testing.T) {
	b := New()

	if b.NumParticles() != 0 {
		t.Errorf("expected empty buffer, got %d particles", b.NumParticles())
	}

	c := b.Common
	tests := []struct {
		name string
		got  float32
		want float32
	}{
		{"radius", c.Radius, 0.1},
		{"diameter", c.Diameter, 0.2},
		{"H", c.H, 0.48},
		{"dt", c.Dt, 0.1},
		{"relaxation", c.RelaxationParameter, 1e-7},
		{"gravity.y", c.Gravity.Y(), -9.81},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if c.IterationNumber != 3 {
		t.Errorf("iterations = %d, want 3", c.IterationNumber)
	}
	if c.AnalysisBox.Min != (mgl32.Vec3{0, 0, 0}) || c.AnalysisBox.Max != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("unexpected analysis box %v", c.AnalysisBox)
	}
}

func TestDerivedCounts(t *testing.T) {
	b := New()
	b.AddPhase(DefaultPhase())
	for i := 0; i < 4; i++ {
		b.AddParticle(mgl32.Vec3{float32(i), 0, 0}, mgl32.Vec3{}, 0, 0)
	}
	b.StretchIDs = []int32{0, 1, 1, 2, 2, 3}
	b.BendIDs = []int32{0, 2}
	b.ShearIDs = []int32{0, 3, 1, 2}
	b.TriangleIDs = []int32{0, 1, 2, 1, 2, 3}

	if b.NumParticles() != 4 {
		t.Errorf("particles = %d, want 4", b.NumParticles())
	}
	if b.NumStretchLines() != 3 {
		t.Errorf("stretch = %d, want 3", b.NumStretchLines())
	}
	if b.NumBendLines() != 1 {
		t.Errorf("bend = %d, want 1", b.NumBendLines())
	}
	if b.NumShearLines() != 2 {
		t.Errorf("shear = %d, want 2", b.NumShearLines())
	}
	if b.NumTriangles() != 2 {
		t.Errorf("triangles = %d, want 2", b.NumTriangles())
	}
	if err := b.Validate(Cloth); err != nil {
		t.Errorf("valid cloth rejected: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Buffer {
		b := New()
		b.AddPhase(DefaultPhase())
		b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 0, 0)
		b.AddParticle(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{}, 0, 0)
		return b
	}

	tests := []struct {
		name   string
		mutate func(b *Buffer)
		kind   StateOfMatter
		want   error
	}{
		{"valid fluid", func(b *Buffer) {}, Fluid, nil},
		{"short velocities", func(b *Buffer) { b.Velocities = b.Velocities[:1] }, Fluid, ErrLengthMismatch},
		{"extra color", func(b *Buffer) { b.ColorValues = append(b.ColorValues, 1) }, Fluid, ErrLengthMismatch},
		{"no phases", func(b *Buffer) { b.PhaseParams = nil }, Fluid, ErrNoPhases},
		{"phase out of range", func(b *Buffer) { b.Phases[1] = 1 }, Fluid, ErrPhaseRange},
		{"negative phase", func(b *Buffer) { b.Phases[0] = -1 }, Fluid, ErrPhaseRange},
		{"odd stretch", func(b *Buffer) { b.StretchIDs = []int32{0} }, Cloth, ErrConstraintArity},
		{"bad triangle arity", func(b *Buffer) { b.TriangleIDs = []int32{0, 1} }, Cloth, ErrConstraintArity},
		{"dangling bend", func(b *Buffer) { b.BendIDs = []int32{0, 2} }, Cloth, ErrConstraintRange},
		{"fluid ignores topology", func(b *Buffer) { b.BendIDs = []int32{0, 2} }, Fluid, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := base()
			tt.mutate(b)
			err := b.Validate(tt.kind)
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReserve(t *testing.T) {
	b := New()
	if err := b.Reserve(1000); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if cap(b.Positions) < 1000 || cap(b.Velocities) < 1000 || cap(b.Phases) < 1000 || cap(b.ColorValues) < 1000 {
		t.Error("reserve did not grow every array")
	}
	if b.NumParticles() != 0 {
		t.Error("reserve must not add particles")
	}

	if err := b.Reserve(MaxParticles + 1); !errors.Is(err, ErrCapacity) {
		t.Errorf("expected ErrCapacity, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := New()
	b.AddPhase(DefaultPhase())
	b.AddParticle(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{}, 0, 5)
	b.Common.FixedBoxes = []Box{NewBox(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})}

	c := b.Clone()
	c.Positions[0] = mgl32.Vec3{9, 9, 9}
	c.Common.FixedBoxes[0].Max = mgl32.Vec3{2, 2, 2}

	if b.Positions[0] != (mgl32.Vec3{1, 2, 3}) {
		t.Error("clone shares position storage")
	}
	if b.Common.FixedBoxes[0].Max != (mgl32.Vec3{1, 1, 1}) {
		t.Error("clone shares fixed boxes")
	}
}

func TestReset(t *testing.T) {
	b := New()
	b.AddPhase(DefaultPhase())
	b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 0, 0)
	b.Common.Dt = 0.5

	b.Reset()

	if b.NumParticles() != 0 || len(b.PhaseParams) != 0 {
		t.Error("reset left data behind")
	}
	if b.Common.Dt != 0.1 {
		t.Errorf("reset dt = %v, want default", b.Common.Dt)
	}
}

func TestBoxContains(t *testing.T) {
	box := NewBox(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1})

	tests := []struct {
		p    mgl32.Vec3
		want bool
	}{
		{mgl32.Vec3{0.5, 0.5, 0.5}, true},
		{mgl32.Vec3{0, 0, 0}, true},
		{mgl32.Vec3{1, 1, 1}, true},
		{mgl32.Vec3{1.01, 0.5, 0.5}, false},
		{mgl32.Vec3{0.5, -0.1, 0.5}, false},
	}
	for _, tt := range tests {
		if got := box.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestViewReadsThrough(t *testing.T) {
	b := New()
	b.AddPhase(PhaseParameters{Kind: Cloth, Density: 500})
	b.AddParticle(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, 0, 2)
	b.AddParticle(mgl32.Vec3{2, 0, 0}, mgl32.Vec3{0, 2, 0}, 0, 3)
	b.StretchIDs = []int32{0, 1}

	v := b.View()
	if !v.Valid() || v.NumParticles() != 2 {
		t.Fatalf("unexpected view: valid=%v n=%d", v.Valid(), v.NumParticles())
	}
	if v.Velocity(1) != (mgl32.Vec3{0, 2, 0}) {
		t.Errorf("velocity = %v", v.Velocity(1))
	}
	if a, c := v.StretchLine(0); a != 0 || c != 1 {
		t.Errorf("stretch line = (%d, %d)", a, c)
	}
	if v.PhaseParams(v.Phase(0)).Density != 500 {
		t.Error("phase lookup failed")
	}

	common := v.Common()
	common.Dt = 42
	if b.Common.Dt == 42 {
		t.Error("Common() must return a copy")
	}

	var empty View
	if empty.Valid() || empty.NumParticles() != 0 {
		t.Error("zero view should be invalid and empty")
	}
}

func TestZeroViewIsSafe(t *testing.T) {
	var v View
	counts := map[string]int{
		"particles": v.NumParticles(),
		"stretch":   v.NumStretchLines(),
		"bend":      v.NumBendLines(),
		"shear":     v.NumShearLines(),
		"triangles": v.NumTriangles(),
		"phases":    v.NumPhases(),
	}
	for name, n := range counts {
		if n != 0 {
			t.Errorf("%s = %d on zero view, want 0", name, n)
		}
	}
	if c := v.Common(); c.Dt != 0 || len(c.FixedBoxes) != 0 {
		t.Errorf("Common() on zero view = %+v, want zero value", c)
	}
	if v.Snapshot() != nil {
		t.Error("Snapshot() on zero view should be nil")
	}
}
