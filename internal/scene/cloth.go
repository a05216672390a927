package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/simbuf"
)

func clothParams(b *simbuf.Buffer, radius, dt float32, iterations int32) {
	b.Common.Radius = radius
	b.Common.Diameter = radius * 2
	b.Common.H = b.Common.Diameter * 2 * 1.2
	b.Common.Dt = dt
	b.Common.IterationNumber = iterations
	b.Common.RelaxationParameter = float32(math.Pow(float64(3.3/radius), 2))
	b.Common.ScorrK = 0.00001
	b.Common.ScorrDq = 0.3
}

const (
	clothRadius = 0.005
	clothSize   = 0.5
)

// Cloth hangs a square sheet from two pinned corners.
func Cloth() Descriptor {
	capacity := clothCount(clothSize, clothSize, 2*clothRadius)
	return New("Cloth", simbuf.Cloth, capacity, func(b *simbuf.Buffer) {
		clothParams(b, clothRadius, 0.002, 20)
		b.Common.AnalysisBox = simbuf.NewBox(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{2, 2, 2})

		origin := mgl32.Vec3{0, 1, 0}
		b.Common.FixedBoxes = []simbuf.Box{
			pinBox(origin, b.Common.Radius),
			pinBox(origin.Add(mgl32.Vec3{clothSize, 0, 0}), b.Common.Radius),
		}

		linen := b.AddPhase(simbuf.PhaseParameters{Kind: simbuf.Cloth, Density: 1000, Color: mgl32.Vec3{0.9, 0.9, 0.85}})
		createParticleCloth(b, origin, clothSize, clothSize, 1, mgl32.Vec3{}, linen)
	})
}

const (
	multiClothRadius = 0.001
	sweaterWidth     = 0.51
	sweaterDepth     = 0.3
	scarfWidth       = 0.5
	scarfDepth       = 0.3
)

// MultiCloth drops two free sheets side by side.
func MultiCloth() Descriptor {
	spacing := float32(2 * multiClothRadius)
	capacity := clothCount(sweaterWidth, sweaterDepth, spacing) + clothCount(scarfWidth, scarfDepth, spacing)
	return New("Multi Cloth", simbuf.Cloth, capacity, func(b *simbuf.Buffer) {
		clothParams(b, multiClothRadius, 0.001, 30)
		b.Common.Gravity = mgl32.Vec3{0, -10, 0}
		b.Common.AnalysisBox = simbuf.NewBox(mgl32.Vec3{-10, -10, -10}, mgl32.Vec3{10, 10, 10})

		sweater := b.AddPhase(simbuf.PhaseParameters{Kind: simbuf.Cloth, Density: 1000, Color: mgl32.Vec3{0, 0, 0}})
		scarf := b.AddPhase(simbuf.PhaseParameters{Kind: simbuf.Cloth, Density: 1000, Color: mgl32.Vec3{0.2, 0.2, 0.8}})

		createParticleCloth(b, mgl32.Vec3{0, 1.0, 0}, sweaterWidth, sweaterDepth, 1, mgl32.Vec3{}, sweater)
		createParticleCloth(b, mgl32.Vec3{0.6, 1.0, 0}, scarfWidth, scarfDepth, 1, mgl32.Vec3{}, scarf)
	})
}
