package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/simbuf"
)

func water() simbuf.PhaseParameters {
	return simbuf.PhaseParameters{Kind: simbuf.Fluid, Density: 1000, Color: mgl32.Vec3{0.2, 0.4, 1.0}}
}

func oil() simbuf.PhaseParameters {
	return simbuf.PhaseParameters{Kind: simbuf.Fluid, Density: 800, Color: mgl32.Vec3{1.0, 0.8, 0.1}}
}

// fluidParams sets the radius/diameter/H/dt quadruple shared by the small-scale fluid scenes.
func fluidParams(b *simbuf.Buffer) {
	b.Common.Radius = 0.01
	b.Common.Diameter = 0.02
	b.Common.H = 0.048
	b.Common.Dt = 0.001
	b.Common.IterationNumber = 4
}

const (
	dropRadius      = 0.12
	collisionRadius = 0.08
	fluidSpacing    = 0.02
)

// SphereDrop releases a ball of water into the unit box.
func SphereDrop() Descriptor {
	return New("Sphere Drop", simbuf.Fluid, sphereCount(dropRadius, fluidSpacing), func(b *simbuf.Buffer) {
		fluidParams(b)
		w := b.AddPhase(water())
		fillSphere(b, mgl32.Vec3{0.5, 0.6, 0.5}, dropRadius, fluidSpacing, mgl32.Vec3{}, w, 0)
	})
}

// SphereCollision fires two balls of different density at each other.
func SphereCollision() Descriptor {
	capacity := 2 * sphereCount(collisionRadius, fluidSpacing)
	return New("Sphere Collision", simbuf.Fluid, capacity, func(b *simbuf.Buffer) {
		fluidParams(b)
		w := b.AddPhase(water())
		o := b.AddPhase(oil())
		fillSphere(b, mgl32.Vec3{0.25, 0.5, 0.5}, collisionRadius, fluidSpacing, mgl32.Vec3{1.5, 0, 0}, w, 0)
		fillSphere(b, mgl32.Vec3{0.75, 0.5, 0.5}, collisionRadius, fluidSpacing, mgl32.Vec3{-1.5, 0, 0}, o, 1)
	})
}

const (
	damX = 20
	damY = 30
	damZ = 10
)

// DamBreak stacks a water column against the left wall of a long tank.
func DamBreak() Descriptor {
	return New("Dam Break", simbuf.Fluid, damX*damY*damZ, func(b *simbuf.Buffer) {
		fluidParams(b)
		b.Common.AnalysisBox = simbuf.NewBox(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1.6, 1.0, 0.22})
		w := b.AddPhase(water())
		r := b.Common.Radius
		fillBox(b, mgl32.Vec3{r, r, r}, damX, damY, damZ, b.Common.Diameter,
			constVec(mgl32.Vec3{}), w, func(_, j, _ int) float32 { return float32(j) })
	})
}

const (
	boxDropN = 10
)

// BoxDrop is a 10x10x10 lattice with a small outward velocity gradient.
func BoxDrop() Descriptor {
	return New("Box Drop", simbuf.Fluid, boxDropN*boxDropN*boxDropN, func(b *simbuf.Buffer) {
		b.Common.Radius = 0.01
		b.Common.Diameter = 0.02
		b.Common.H = 0.048
		b.Common.Dt = 0.0001

		w := b.AddPhase(simbuf.PhaseParameters{Kind: simbuf.Fluid, Density: 1000, Color: mgl32.Vec3{1, 0, 0}})

		r := b.Common.Radius
		vel := func(i, j, k int) mgl32.Vec3 {
			return mgl32.Vec3{float32(i) * 0.01, float32(j) * 0.01, float32(k) * 0.01}
		}
		fillBox(b, mgl32.Vec3{}, boxDropN, boxDropN, boxDropN, 2*r, vel, w,
			func(_, j, _ int) float32 { return float32(j) })
	})
}
