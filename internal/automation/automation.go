// Package automation runs YAML scripted sessions and parameter sweeps against
// the simulation controller without a display.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/scene"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
	"github.com/san-kum/particlelab/internal/storage"
	"gopkg.in/yaml.v3"
)

var ErrEmptyScenario = errors.New("automation: scenario has no steps")

// Scenario defines a scripted session.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single step in a scenario. An empty Scene keeps the
// current one; a different scene is loaded through a reload.
type ScenarioStep struct {
	Scene       string   `yaml:"scene"`
	Frames      int      `yaml:"frames"`
	Play        bool     `yaml:"play"`
	SingleSteps int      `yaml:"single_steps"`
	Dt          *float32 `yaml:"dt"`
	Snapshot    bool     `yaml:"snapshot"`
}

// StepResult is the controller state after a scenario step.
type StepResult struct {
	Scene      string
	Generation uint64
	Frames     uint64
	Steps      uint64
	SnapshotID string
	Metrics    map[string]float64
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("automation: %w", err)
	}
	return &scenario, nil
}

// Validate checks every step against the registry before anything runs.
func (s *Scenario) Validate(scenes *scene.Registry) error {
	if len(s.Steps) == 0 {
		return ErrEmptyScenario
	}
	var errs []error
	for i, step := range s.Steps {
		if step.Scene != "" {
			if _, err := scenes.Index(step.Scene); err != nil {
				errs = append(errs, fmt.Errorf("step %d: %w", i+1, err))
			}
		}
		if step.Frames < 0 || step.SingleSteps < 0 {
			errs = append(errs, fmt.Errorf("step %d: negative frame or step count", i+1))
		}
		if step.Dt != nil && *step.Dt <= 0 {
			errs = append(errs, fmt.Errorf("step %d: dt must be positive", i+1))
		}
	}
	return errors.Join(errs...)
}

// Runner executes scenarios on one controller.
type Runner struct {
	ctrl  *sim.Controller
	store *storage.Store
	log   *log.Logger
}

// NewRunner returns a runner. store may be nil when no step takes snapshots.
func NewRunner(c *sim.Controller, store *storage.Store, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{ctrl: c, store: store, log: logger}
}

// Run executes all steps in order. The controller is left running so the
// caller decides when to shut it down.
func (r *Runner) Run(ctx context.Context, s *Scenario) ([]StepResult, error) {
	if err := s.Validate(r.ctrl.Scenes()); err != nil {
		return nil, err
	}
	if r.ctrl.State() == sim.Uninitialized && s.Steps[0].Scene == "" {
		return nil, errors.New("automation: first step must name a scene")
	}

	results := make([]StepResult, 0, len(s.Steps))
	for i, step := range s.Steps {
		r.log.Info("scenario step", "n", i+1, "of", len(s.Steps), "scene", step.Scene, "frames", step.Frames)

		res, err := r.runStep(ctx, step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) runStep(ctx context.Context, step ScenarioStep) (StepResult, error) {
	c := r.ctrl
	frames := step.Frames

	if err := r.load(ctx, step.Scene, &frames); err != nil {
		return StepResult{}, err
	}
	if step.Dt != nil {
		dt := *step.Dt
		if err := c.EditParameters(func(p *simbuf.CommonParameters) { p.Dt = dt }); err != nil {
			return StepResult{}, err
		}
	}
	if err := r.setPlaying(step.Play); err != nil {
		return StepResult{}, err
	}

	for ; frames > 0; frames-- {
		if _, err := c.Frame(ctx); err != nil {
			return StepResult{}, err
		}
	}

	if step.SingleSteps > 0 {
		if err := r.setPlaying(false); err != nil {
			return StepResult{}, err
		}
		for n := 0; n < step.SingleSteps; n++ {
			if err := c.RequestStep(); err != nil {
				return StepResult{}, err
			}
			if _, err := c.Frame(ctx); err != nil {
				return StepResult{}, err
			}
		}
	}

	a := c.Activation()
	res := StepResult{
		Scene:      a.Scene,
		Generation: a.Generation,
		Frames:     c.Frames(),
		Steps:      c.Steps(),
		Metrics:    metrics.Summary(c.View()),
	}

	if step.Snapshot {
		if r.store == nil {
			return res, errors.New("automation: snapshot requested without a store")
		}
		id, err := r.store.SaveSnapshot(c.View(), storage.SnapshotMetadata{
			Scene:      a.Scene,
			Kind:       a.Kind.String(),
			Backend:    a.Backend,
			Generation: a.Generation,
			Step:       c.Steps(),
		})
		if err != nil {
			return res, err
		}
		res.SnapshotID = id
		r.log.Info("snapshot", "id", id)
	}
	return res, nil
}

// load starts or reloads name. A reload takes effect on the next frame, which
// is charged against the step's frame budget.
func (r *Runner) load(ctx context.Context, name string, frames *int) error {
	c := r.ctrl
	if name == "" {
		return nil
	}
	idx, err := c.Scenes().Index(name)
	if err != nil {
		return err
	}

	if c.State() == sim.Uninitialized {
		return c.Start(idx)
	}
	if idx == c.Activation().Index {
		return nil
	}
	if err := c.RequestReload(idx); err != nil {
		return err
	}
	if _, err := c.Frame(ctx); err != nil {
		return err
	}
	*frames = max(*frames-1, 0)
	return nil
}

func (r *Runner) setPlaying(play bool) error {
	if r.ctrl.Playing() == play {
		return nil
	}
	return r.ctrl.TogglePause()
}
