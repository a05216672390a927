package sim

import (
	"context"
	"runtime"
	"sync"

	"github.com/san-kum/particlelab/internal/compute"
	"github.com/san-kum/particlelab/internal/scene"
	"github.com/san-kum/particlelab/internal/simbuf"
)

// Job is one independent headless session.
type Job struct {
	Scene  int
	Frames int
	Play   bool
	// Edit adjusts the common parameters after activation.
	Edit func(*simbuf.CommonParameters)
	// Inspect sees the final view before shutdown.
	Inspect func(Activation, simbuf.View)
}

type JobResult struct {
	Activation Activation
	Frames     uint64
	Steps      uint64
	Err        error
}

// RunBatch runs each job on its own controller and solver, at most
// runtime.NumCPU() at a time. Each controller stays single-threaded. Observers
// passed in opts are shared by all jobs and must be safe for concurrent use.
func RunBatch(ctx context.Context, scenes *scene.Registry, factory compute.Factory, jobs []Job, opts ...Option) []JobResult {
	return RunBatchN(ctx, scenes, factory, jobs, runtime.NumCPU(), opts...)
}

// RunBatchN is RunBatch with at most limit jobs in flight.
func RunBatchN(ctx context.Context, scenes *scene.Registry, factory compute.Factory, jobs []Job, limit int, opts ...Option) []JobResult {
	if limit <= 0 {
		limit = 1
	}
	results := make([]JobResult, len(jobs))
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(idx int, job Job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = runJob(ctx, NewController(scenes, factory, opts...), job)
		}(i, job)
	}
	wg.Wait()

	return results
}

func runJob(ctx context.Context, c *Controller, job Job) JobResult {
	defer c.Shutdown()

	if err := c.Start(job.Scene); err != nil {
		return JobResult{Activation: c.Activation(), Err: err}
	}
	if job.Edit != nil {
		if err := c.EditParameters(job.Edit); err != nil {
			return JobResult{Activation: c.Activation(), Err: err}
		}
	}
	if job.Play {
		if err := c.TogglePause(); err != nil {
			return JobResult{Activation: c.Activation(), Err: err}
		}
	}

	var v simbuf.View
	for i := 0; i < job.Frames; i++ {
		var err error
		if v, err = c.Frame(ctx); err != nil {
			return JobResult{Activation: c.Activation(), Frames: c.Frames(), Steps: c.Steps(), Err: err}
		}
	}
	if job.Inspect != nil && v.Valid() {
		job.Inspect(c.Activation(), v)
	}
	return JobResult{Activation: c.Activation(), Frames: c.Frames(), Steps: c.Steps()}
}
