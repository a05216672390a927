package simbuf

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxParticles caps how many particles a single buffer may reserve.
const MaxParticles = 1_000_000

type StateOfMatter int

const (
	Fluid StateOfMatter = iota
	Cloth
)

func (s StateOfMatter) String() string {
	switch s {
	case Fluid:
		return "fluid"
	case Cloth:
		return "cloth"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Box is an axis-aligned region given by its min and max corners.
type Box struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func NewBox(lo, hi mgl32.Vec3) Box {
	return Box{Min: lo, Max: hi}
}

// Contains reports whether p lies inside the box, borders included.
func (b Box) Contains(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

func (b Box) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Box) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// CommonParameters are the physical constants of one run.
// Diameter and H are not derived from Radius; each scene sets a coherent triple.
type CommonParameters struct {
	Radius              float32
	Diameter            float32
	H                   float32
	Dt                  float32
	RelaxationParameter float32
	ScorrK              float32
	ScorrDq             float32
	Gravity             mgl32.Vec3
	IterationNumber     int32
	AnalysisBox         Box
	FixedBoxes          []Box
}

func DefaultCommonParameters() CommonParameters {
	return CommonParameters{
		Radius:              0.1,
		Diameter:            0.2,
		H:                   0.48,
		Dt:                  0.1,
		RelaxationParameter: 1e-7,
		ScorrK:              0.01,
		ScorrDq:             0.1,
		Gravity:             mgl32.Vec3{0, -9.81, 0},
		IterationNumber:     3,
		AnalysisBox:         NewBox(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}),
	}
}

// Pinned reports whether p falls inside any fixed box.
func (c *CommonParameters) Pinned(p mgl32.Vec3) bool {
	for _, b := range c.FixedBoxes {
		if b.Contains(p) {
			return true
		}
	}
	return false
}

func (c CommonParameters) clone() CommonParameters {
	out := c
	if c.FixedBoxes != nil {
		out.FixedBoxes = make([]Box, len(c.FixedBoxes))
		copy(out.FixedBoxes, c.FixedBoxes)
	}
	return out
}

// PhaseParameters describe one material referenced by particle phase ids.
type PhaseParameters struct {
	Kind    StateOfMatter
	Density float32
	Color   mgl32.Vec3
}

func DefaultPhase() PhaseParameters {
	return PhaseParameters{
		Kind:    Fluid,
		Density: 1000,
		Color:   mgl32.Vec3{1, 0, 0},
	}
}
