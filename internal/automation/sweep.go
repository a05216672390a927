package automation

import (
	"context"
	"fmt"

	"github.com/san-kum/particlelab/internal/compute"
	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/scene"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
)

// Sweepable parameters.
var sweepParams = map[string]func(p *simbuf.CommonParameters, v float32){
	"dt":         func(p *simbuf.CommonParameters, v float32) { p.Dt = v },
	"gravity_y":  func(p *simbuf.CommonParameters, v float32) { p.Gravity[1] = v },
	"scorr_k":    func(p *simbuf.CommonParameters, v float32) { p.ScorrK = v },
	"relaxation": func(p *simbuf.CommonParameters, v float32) { p.RelaxationParameter = v },
	"iterations": func(p *simbuf.CommonParameters, v float32) { p.IterationNumber = int32(v) },
}

// ParameterSweep runs one scene at evenly spaced values of a common parameter.
type ParameterSweep struct {
	Scene     string
	ParamName string
	ParamMin  float32
	ParamMax  float32
	NumSteps  int
	Frames    int
}

// SweepResult holds the final state of one sweep run.
type SweepResult struct {
	ParamValue    float32
	Steps         uint64
	KineticEnergy float64
	MaxSpeed      float64
	Escaped       int
	Stable        bool
	Err           error
}

// RunSweep executes every sweep point as an independent playing session in
// parallel.
func RunSweep(ctx context.Context, scenes *scene.Registry, factory compute.Factory, sweep ParameterSweep, opts ...sim.Option) ([]SweepResult, error) {
	set, ok := sweepParams[sweep.ParamName]
	if !ok {
		return nil, fmt.Errorf("automation: parameter %q cannot be swept", sweep.ParamName)
	}
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("automation: sweep needs at least one point")
	}
	idx, err := scenes.Index(sweep.Scene)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, sweep.NumSteps)
	jobs := make([]sim.Job, sweep.NumSteps)
	for i := range jobs {
		val := sweep.ParamMin
		if sweep.NumSteps > 1 {
			val += float32(i) * (sweep.ParamMax - sweep.ParamMin) / float32(sweep.NumSteps-1)
		}
		results[i].ParamValue = val
		res := &results[i]
		jobs[i] = sim.Job{
			Scene:  idx,
			Frames: sweep.Frames,
			Play:   true,
			Edit:   func(p *simbuf.CommonParameters) { set(p, val) },
			Inspect: func(_ sim.Activation, v simbuf.View) {
				res.KineticEnergy = metrics.KineticEnergy(v)
				res.MaxSpeed = metrics.MaxSpeed(v)
				res.Escaped = metrics.Escaped(v)
			},
		}
	}

	for i, jr := range sim.RunBatch(ctx, scenes, factory, jobs, opts...) {
		results[i].Steps = jr.Steps
		results[i].Err = jr.Err
		results[i].Stable = jr.Err == nil && results[i].Escaped == 0
	}
	return results, nil
}

// SweepParams lists the parameter names RunSweep accepts.
func SweepParams() []string {
	return []string{"dt", "gravity_y", "iterations", "relaxation", "scorr_k"}
}
