package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/particlelab/internal/compute"
	"github.com/san-kum/particlelab/internal/scene"
	"github.com/san-kum/particlelab/internal/simbuf"
)

const (
	reasonReload   = "reload"
	reasonShutdown = "shutdown"
	reasonFault    = "fault"
)

// Controller owns the active buffer and solver and sequences scene loading,
// stepping, pausing and reloads. It is driven from a single goroutine.
type Controller struct {
	scenes    *scene.Registry
	factory   compute.Factory
	log       *log.Logger
	observers []Observer

	state State
	mode  Mode

	stepRequested bool
	reloadTo      int
	reloadPending bool

	act    Activation
	buf    *simbuf.Buffer
	solver compute.Solver
	live   int

	generation uint64
	frames     uint64
	steps      uint64

	fault error
}

type Option func(*Controller)

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

func NewController(scenes *scene.Registry, factory compute.Factory, opts ...Option) *Controller {
	c := &Controller{
		scenes:  scenes,
		factory: factory,
		log:     log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddObserver registers o for all later lifecycle callbacks.
func (c *Controller) AddObserver(o Observer) { c.observers = append(c.observers, o) }

func (c *Controller) Scenes() *scene.Registry { return c.scenes }
func (c *Controller) State() State            { return c.state }
func (c *Controller) Mode() Mode              { return c.mode }
func (c *Controller) Playing() bool           { return c.state == Running && c.mode == Playing }
func (c *Controller) Generation() uint64      { return c.generation }
func (c *Controller) Frames() uint64          { return c.frames }
func (c *Controller) Steps() uint64           { return c.steps }
func (c *Controller) Err() error              { return c.fault }

// LiveSolvers reports how many solvers are bound. Never more than one.
func (c *Controller) LiveSolvers() int { return c.live }

// Activation returns the descriptor of the current binding.
func (c *Controller) Activation() Activation { return c.act }

// View returns a read-only view of the active buffer, invalid when no scene is bound.
func (c *Controller) View() simbuf.View {
	if c.buf == nil {
		return simbuf.View{}
	}
	return c.buf.View()
}

// Start loads the initial scene. Only valid once.
func (c *Controller) Start(index int) error {
	switch c.state {
	case Uninitialized:
	case ShuttingDown:
		return ErrShutdown
	default:
		return ErrAlreadyStarted
	}
	if err := c.checkIndex(index); err != nil {
		return err
	}
	return c.activate(index)
}

// TogglePause flips between Paused and Playing.
func (c *Controller) TogglePause() error {
	if err := c.usable(); err != nil {
		return err
	}
	if c.mode == Playing {
		c.mode = Paused
	} else {
		c.mode = Playing
	}
	c.log.Debug("toggle", "mode", c.mode)
	return nil
}

// RequestStep asks for one step on the next frame. While Playing the request
// is absorbed by the regular step.
func (c *Controller) RequestStep() error {
	if err := c.usable(); err != nil {
		return err
	}
	c.stepRequested = true
	return nil
}

// RequestReload schedules a switch to scene index at the next frame boundary.
func (c *Controller) RequestReload(index int) error {
	if err := c.usable(); err != nil {
		return err
	}
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.reloadTo = index
	c.reloadPending = true
	return nil
}

// EditParameters applies fn to the active common parameters. Edits reach the
// solver on the next step.
func (c *Controller) EditParameters(fn func(*simbuf.CommonParameters)) error {
	if err := c.usable(); err != nil {
		return err
	}
	fn(&c.buf.Common)
	return nil
}

// Frame runs one iteration: pending reload, optional step, then read-back.
// The returned view is valid until the next call.
func (c *Controller) Frame(ctx context.Context) (simbuf.View, error) {
	if err := c.usable(); err != nil {
		return simbuf.View{}, err
	}
	if err := ctx.Err(); err != nil {
		return simbuf.View{}, err
	}

	if c.reloadPending {
		c.reloadPending = false
		c.log.Info("reload", "from", c.act.Scene, "to", c.reloadTo)
		c.deactivate(reasonReload, nil)
		if err := c.activate(c.reloadTo); err != nil {
			return simbuf.View{}, err
		}
	}

	step := c.mode == Playing
	if c.stepRequested && c.mode == Paused {
		c.mode = Stepping
		step = true
	}
	c.stepRequested = false

	if step {
		if err := c.step(); err != nil {
			return simbuf.View{}, c.fail(FaultStep, err)
		}
		c.steps++
	}

	if err := c.readBack(); err != nil {
		return simbuf.View{}, c.fail(FaultReadBack, err)
	}

	if c.mode == Stepping {
		c.mode = Paused
	}
	c.frames++

	v := c.buf.View()
	if step {
		for _, o := range c.observers {
			o.OnStep(c.act, c.steps, v)
		}
	}
	return v, nil
}

// Shutdown releases the active scene. Terminal and idempotent.
func (c *Controller) Shutdown() {
	if c.state == ShuttingDown {
		return
	}
	c.deactivate(reasonShutdown, nil)
	c.state = ShuttingDown
	c.log.Info("shutdown", "generations", c.generation)
}

func (c *Controller) usable() error {
	switch {
	case c.state == ShuttingDown:
		return ErrShutdown
	case c.fault != nil:
		return fmt.Errorf("%w: %w", ErrFaulted, c.fault)
	case c.state != Running:
		return ErrNotRunning
	}
	return nil
}

func (c *Controller) checkIndex(index int) error {
	if index < 0 || index >= c.scenes.Len() {
		return fmt.Errorf("%w: %d of %d", ErrSceneIndex, index, c.scenes.Len())
	}
	return nil
}

// activate seeds a fresh buffer, creates a solver and binds it on the path
// matching the scene's state of matter. The solver is released on any failure.
func (c *Controller) activate(index int) (err error) {
	if c.solver != nil {
		panic("sim: activate with a live solver")
	}
	c.state = SceneLoading

	desc, err := c.scenes.At(index)
	if err != nil {
		return c.fail(FaultInit, err)
	}
	c.act = Activation{Generation: c.generation + 1, Index: index, Scene: desc.Name(), Kind: desc.Kind(), StartedAt: time.Now()}

	buf := simbuf.New()
	desc.Seed(buf)

	solver, err := c.factory()
	if err != nil {
		return c.fail(FaultInit, err)
	}
	c.live++
	defer func() {
		if err != nil {
			solver.Release()
			c.live--
		}
	}()

	if desc.Kind() == simbuf.Cloth {
		err = solver.BindCloth(buf)
	} else {
		err = solver.Bind(buf)
	}
	if err != nil {
		return c.fail(FaultInit, err)
	}

	c.generation++
	c.buf = buf
	c.solver = solver
	c.act.Backend = solver.Name()
	c.act.Particles = buf.NumParticles()
	c.act.Constraints = buf.NumStretchLines() + buf.NumBendLines() + buf.NumShearLines()
	c.frames, c.steps = 0, 0
	c.mode = Paused
	c.stepRequested = false
	c.state = Running

	c.log.Info("activated",
		"scene", c.act.Scene,
		"kind", c.act.Kind,
		"backend", c.act.Backend,
		"particles", c.act.Particles,
		"stretch", buf.NumStretchLines(),
		"bend", buf.NumBendLines(),
		"shear", buf.NumShearLines(),
		"triangles", buf.NumTriangles(),
		"generation", c.generation)

	v := buf.View()
	for _, o := range c.observers {
		o.OnActivate(c.act, v)
	}
	return nil
}

// deactivate releases the solver before the buffer is discarded.
func (c *Controller) deactivate(reason string, cause error) {
	if c.solver == nil {
		return
	}
	c.solver.Release()
	c.solver = nil
	c.live--

	stats := Stats{Frames: c.frames, Steps: c.steps, Reason: reason}
	for _, o := range c.observers {
		o.OnDeactivate(c.act, stats, cause)
	}

	c.buf.Reset()
	c.buf = nil
	c.log.Info("released", "scene", c.act.Scene, "reason", reason, "steps", c.steps, "frames", c.frames)
}

func (c *Controller) step() error {
	if c.act.Kind == simbuf.Cloth {
		return c.solver.StepCloth(c.buf)
	}
	return c.solver.Step(c.buf)
}

func (c *Controller) readBack() error {
	if c.act.Kind == simbuf.Cloth {
		return c.solver.ReadBackCloth(c.buf)
	}
	return c.solver.ReadBack(c.buf)
}

// fail records a sticky fault and tears down the active scene.
func (c *Controller) fail(kind FaultKind, err error) error {
	fe := &FaultError{
		Kind:       kind,
		Scene:      c.act.Scene,
		Generation: c.act.Generation,
		Step:       c.steps,
		Wrapped:    err,
	}
	c.fault = fe
	c.log.Error("fault", "kind", kind, "scene", c.act.Scene, "err", err)
	c.deactivate(reasonFault, fe)
	return fe
}

// IsFault reports whether err came from a solver fault.
func IsFault(err error) bool {
	var fe *FaultError
	return errors.As(err, &fe)
}
