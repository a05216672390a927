package storage

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/simbuf"
)

// Plane selects the two axes an SVG export projects onto.
type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneZY
)

func ParsePlane(s string) (Plane, error) {
	switch strings.ToLower(s) {
	case "", "xy":
		return PlaneXY, nil
	case "xz":
		return PlaneXZ, nil
	case "zy":
		return PlaneZY, nil
	default:
		return 0, fmt.Errorf("storage: unknown plane %q", s)
	}
}

func (p Plane) axes() (int, int) {
	switch p {
	case PlaneXZ:
		return 0, 2
	case PlaneZY:
		return 2, 1
	default:
		return 0, 1
	}
}

type SVGOptions struct {
	Width  int
	Height int
	Plane  Plane
}

func (o SVGOptions) withDefaults() SVGOptions {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 800
	}
	return o
}

// WriteSVG renders v to an SVG file at path.
func WriteSVG(path string, v simbuf.View, opts SVGOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ExportSVG(f, v, opts)
}

// ExportSVG draws an orthographic projection of v: the analysis box, fixed
// boxes, cloth stretch lines and one dot per particle.
func ExportSVG(w io.Writer, v simbuf.View, opts SVGOptions) error {
	if !v.Valid() {
		return ErrEmptyView
	}
	opts = opts.withDefaults()
	common := v.Common()
	ax, ay := opts.Plane.axes()

	lo, hi := bounds(v, common.AnalysisBox)
	spanX := math.Max(float64(hi[ax]-lo[ax]), 1e-6)
	spanY := math.Max(float64(hi[ay]-lo[ay]), 1e-6)
	margin := 0.05 * float64(min(opts.Width, opts.Height))
	scale := math.Min((float64(opts.Width)-2*margin)/spanX, (float64(opts.Height)-2*margin)/spanY)

	project := func(p mgl32.Vec3) (float64, float64) {
		x := margin + float64(p[ax]-lo[ax])*scale
		y := float64(opts.Height) - margin - float64(p[ay]-lo[ay])*scale
		return x, y
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, opts.Width, opts.Height, opts.Width, opts.Height))

	writeBox := func(b simbuf.Box, stroke string) {
		x0, y0 := project(b.Min)
		x1, y1 := project(b.Max)
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="%s"/>
`, math.Min(x0, x1), math.Min(y0, y1), math.Abs(x1-x0), math.Abs(y1-y0), stroke))
	}
	writeBox(common.AnalysisBox, "#444444")
	for _, b := range common.FixedBoxes {
		writeBox(b, "#ff8800")
	}

	if n := v.NumStretchLines(); n > 0 {
		sb.WriteString(`<g stroke="#888888" stroke-width="0.5">` + "\n")
		for i := 0; i < n; i++ {
			a, b := v.StretchLine(i)
			x0, y0 := project(v.Position(int(a)))
			x1, y1 := project(v.Position(int(b)))
			sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
`, x0, y0, x1, y1))
		}
		sb.WriteString("</g>\n")
	}

	cmin, cmax := colorRange(v)
	r := math.Max(float64(common.Radius)*scale, 0.5)
	for i := 0; i < v.NumParticles(); i++ {
		x, y := project(v.Position(i))
		col := v.PhaseParams(v.Phase(i)).Color
		shade := float32(1)
		if cmax > cmin {
			shade = 0.4 + 0.6*(v.ColorValue(i)-cmin)/(cmax-cmin)
		}
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, x, y, r, hexColor(col.Mul(shade))))
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// bounds is the analysis box grown to include every finite particle.
func bounds(v simbuf.View, box simbuf.Box) (mgl32.Vec3, mgl32.Vec3) {
	lo, hi := box.Min, box.Max
	for i := 0; i < v.NumParticles(); i++ {
		p := v.Position(i)
		for a := 0; a < 3; a++ {
			if math.IsNaN(float64(p[a])) || math.IsInf(float64(p[a]), 0) {
				continue
			}
			lo[a] = min(lo[a], p[a])
			hi[a] = max(hi[a], p[a])
		}
	}
	return lo, hi
}

func colorRange(v simbuf.View) (float32, float32) {
	if v.NumParticles() == 0 {
		return 0, 0
	}
	lo, hi := v.ColorValue(0), v.ColorValue(0)
	for i := 1; i < v.NumParticles(); i++ {
		c := v.ColorValue(i)
		lo = min(lo, c)
		hi = max(hi, c)
	}
	return lo, hi
}

func hexColor(c mgl32.Vec3) string {
	to8 := func(f float32) int {
		return int(mgl32.Clamp(f, 0, 1)*255 + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", to8(c[0]), to8(c[1]), to8(c[2]))
}
