package viz

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/simbuf"
)

var boxEdges = [12][2]int{
	{0, 1}, {1, 3}, {3, 2}, {2, 0},
	{4, 5}, {5, 7}, {7, 6}, {6, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

func boxCorners(b simbuf.Box) [8]mgl32.Vec3 {
	var out [8]mgl32.Vec3
	for i := range out {
		for a := 0; a < 3; a++ {
			if i&(1<<a) != 0 {
				out[i][a] = b.Max[a]
			} else {
				out[i][a] = b.Min[a]
			}
		}
	}
	return out
}

// DrawView draws the analysis box, fixed boxes, cloth stretch lines and every
// particle of v. It returns the number of particles that landed on the canvas.
func DrawView(c *Canvas, cam *Camera, v simbuf.View) int {
	c.Clear()
	if !v.Valid() {
		return 0
	}
	w, h := c.DotWidth(), c.DotHeight()
	rot := cam.rotation()

	line := func(a, b mgl32.Vec3) {
		x0, y0, _, f0 := cam.project(rot, a, w, h)
		x1, y1, _, f1 := cam.project(rot, b, w, h)
		if f0 && f1 && (inside(x0, y0, w, h) || inside(x1, y1, w, h)) {
			c.DrawLine(x0, y0, x1, y1)
		}
	}
	box := func(b simbuf.Box) {
		corners := boxCorners(b)
		for _, e := range boxEdges {
			line(corners[e[0]], corners[e[1]])
		}
	}

	common := v.Common()
	box(common.AnalysisBox)
	for _, b := range common.FixedBoxes {
		box(b)
	}
	for i := 0; i < v.NumStretchLines(); i++ {
		a, b := v.StretchLine(i)
		line(v.Position(int(a)), v.Position(int(b)))
	}

	visible := 0
	for i := 0; i < v.NumParticles(); i++ {
		if x, y, _, front := cam.project(rot, v.Position(i), w, h); front && inside(x, y, w, h) {
			c.Set(x, y)
			visible++
		}
	}
	return visible
}
