package metrics

import "github.com/san-kum/particlelab/internal/simbuf"

// Energy tracks kinetic energy over time with a bounded history.
type Energy struct {
	name    string
	limit   int
	history []float64
}

func NewEnergy(limit int) *Energy {
	return &Energy{
		name:  "kinetic_energy",
		limit: limit,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(v simbuf.View) {
	e.history = append(e.history, KineticEnergy(v))
	if e.limit > 0 && len(e.history) > e.limit {
		e.history = e.history[len(e.history)-e.limit:]
	}
}

// Value returns the latest observation.
func (e *Energy) Value() float64 {
	if len(e.history) == 0 {
		return 0
	}
	return e.history[len(e.history)-1]
}

// History returns the retained observations, oldest first.
func (e *Energy) History() []float64 { return e.history }

func (e *Energy) Reset() { e.history = e.history[:0] }
