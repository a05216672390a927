package metrics

import "github.com/san-kum/particlelab/internal/simbuf"

// PeakSpeed is the largest particle speed seen since the last reset.
type PeakSpeed struct {
	name string
	peak float64
}

func NewPeakSpeed() *PeakSpeed {
	return &PeakSpeed{
		name: "peak_speed",
	}
}

func (p *PeakSpeed) Name() string { return p.name }

func (p *PeakSpeed) Observe(v simbuf.View) {
	p.peak = max(p.peak, MaxSpeed(v))
}

func (p *PeakSpeed) Value() float64 { return p.peak }

func (p *PeakSpeed) Reset() { p.peak = 0 }
