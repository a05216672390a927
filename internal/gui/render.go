package gui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/simbuf"
)

func vec(p mgl32.Vec3) rl.Vector3 { return rl.NewVector3(p[0], p[1], p[2]) }

func drawBox(b simbuf.Box, col rl.Color) {
	s := b.Size()
	rl.DrawCubeWires(vec(b.Center()), s[0], s[1], s[2], col)
}

// drawScene draws boxes, cloth stretch lines and one sphere per particle.
func drawScene(v simbuf.View) {
	if !v.Valid() {
		return
	}
	common := v.Common()
	drawBox(common.AnalysisBox, ColBox)
	for _, b := range common.FixedBoxes {
		drawBox(b, ColFixed)
	}

	for i := 0; i < v.NumStretchLines(); i++ {
		a, b := v.StretchLine(i)
		rl.DrawLine3D(vec(v.Position(int(a))), vec(v.Position(int(b))), ColCloth)
	}

	lo, hi := colorRange(v)
	r := common.Radius
	for i := 0; i < v.NumParticles(); i++ {
		col := particleColor(v.PhaseParams(v.Phase(i)).Color, v.ColorValue(i), lo, hi)
		rl.DrawSphereEx(vec(v.Position(i)), r, 4, 6, col)
	}
}

func colorRange(v simbuf.View) (float32, float32) {
	if v.NumParticles() == 0 {
		return 0, 0
	}
	lo, hi := v.ColorValue(0), v.ColorValue(0)
	for i := 1; i < v.NumParticles(); i++ {
		c := v.ColorValue(i)
		lo, hi = min(lo, c), max(hi, c)
	}
	return lo, hi
}

// particleColor shades the phase color by where value falls in [lo, hi].
func particleColor(base mgl32.Vec3, value, lo, hi float32) rl.Color {
	shade := float32(1)
	if hi > lo {
		shade = 0.4 + 0.6*(value-lo)/(hi-lo)
	}
	c := base.Mul(shade)
	to8 := func(f float32) uint8 { return uint8(mgl32.Clamp(f, 0, 1)*255 + 0.5) }
	return rl.NewColor(to8(c[0]), to8(c[1]), to8(c[2]), 255)
}
