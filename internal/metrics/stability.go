package metrics

import (
	"math"

	"github.com/san-kum/particlelab/internal/simbuf"
)

// Escaped counts particles that are non-finite or outside the analysis box.
func Escaped(v simbuf.View) int {
	if v.NumParticles() == 0 {
		return 0
	}
	box := v.Common().AnalysisBox
	n := 0
	for i := 0; i < v.NumParticles(); i++ {
		p := v.Position(i)
		if !finite(p[0]) || !finite(p[1]) || !finite(p[2]) || !box.Contains(p) {
			n++
		}
	}
	return n
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// Stability reports the fraction of observed frames in which any particle
// had escaped.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{
		name: "stability",
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(v simbuf.View) {
	s.samples++
	if Escaped(v) > 0 {
		s.violations++
	}
}

// Value is 1 when no frame had escapes.
func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1
	}
	return 1 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
