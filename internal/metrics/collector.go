package metrics

import (
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
)

// Collector feeds metrics from controller callbacks. Metrics reset on every
// activation and observe after every step.
type Collector struct {
	metrics []Metric
	last    map[string]float64
}

func NewCollector(ms ...Metric) *Collector {
	return &Collector{metrics: ms, last: make(map[string]float64)}
}

func (c *Collector) OnActivate(_ sim.Activation, v simbuf.View) {
	for _, m := range c.metrics {
		m.Reset()
		m.Observe(v)
	}
}

func (c *Collector) OnStep(_ sim.Activation, _ uint64, v simbuf.View) {
	for _, m := range c.metrics {
		m.Observe(v)
	}
}

func (c *Collector) OnDeactivate(sim.Activation, sim.Stats, error) {
	for _, m := range c.metrics {
		c.last[m.Name()] = m.Value()
	}
}

// Values returns the current metric values.
func (c *Collector) Values() map[string]float64 {
	out := make(map[string]float64, len(c.metrics))
	for _, m := range c.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Final returns the values captured when the last activation ended.
func (c *Collector) Final() map[string]float64 { return c.last }
