package simbuf

import "github.com/go-gl/mathgl/mgl32"

// View is a read-only window onto a Buffer. It is valid for one frame; holders
// must not keep it across a frame boundary.
type View struct {
	b *Buffer
}

func (v View) Valid() bool { return v.b != nil }

// NumParticles and the other counts are zero on an invalid view.
func (v View) NumParticles() int {
	if v.b == nil {
		return 0
	}
	return v.b.NumParticles()
}

func (v View) NumStretchLines() int {
	if v.b == nil {
		return 0
	}
	return v.b.NumStretchLines()
}

func (v View) NumBendLines() int {
	if v.b == nil {
		return 0
	}
	return v.b.NumBendLines()
}

func (v View) NumShearLines() int {
	if v.b == nil {
		return 0
	}
	return v.b.NumShearLines()
}

func (v View) NumTriangles() int {
	if v.b == nil {
		return 0
	}
	return v.b.NumTriangles()
}

func (v View) NumPhases() int {
	if v.b == nil {
		return 0
	}
	return len(v.b.PhaseParams)
}

func (v View) Position(i int) mgl32.Vec3 { return v.b.Positions[i] }
func (v View) Velocity(i int) mgl32.Vec3 { return v.b.Velocities[i] }
func (v View) Phase(i int) int32         { return v.b.Phases[i] }
func (v View) ColorValue(i int) float32  { return v.b.ColorValues[i] }

func (v View) PhaseParams(id int32) PhaseParameters { return v.b.PhaseParams[id] }

// Common returns a copy of the common parameters, or the zero value on an
// invalid view.
func (v View) Common() CommonParameters {
	if v.b == nil {
		return CommonParameters{}
	}
	return v.b.Common.clone()
}

func (v View) StretchLine(i int) (int32, int32) {
	return v.b.StretchIDs[2*i], v.b.StretchIDs[2*i+1]
}

func (v View) Triangle(i int) (int32, int32, int32) {
	return v.b.TriangleIDs[3*i], v.b.TriangleIDs[3*i+1], v.b.TriangleIDs[3*i+2]
}

// Snapshot deep-copies the viewed buffer. It returns nil on an invalid view.
func (v View) Snapshot() *Buffer {
	if v.b == nil {
		return nil
	}
	return v.b.Clone()
}
