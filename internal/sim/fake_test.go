package sim_test

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/particlelab/internal/compute"
	"github.com/san-kum/particlelab/internal/scene"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
)

var errDevice = errors.New("device lost")

// journal is the shared call log of every fake solver and frontend.
type journal struct {
	calls   []string
	created int
	live    int
	maxLive int

	failCreate bool
	failBind   bool
	failStepAt int
	failRead   bool
}

func (j *journal) record(format string, args ...any) {
	j.calls = append(j.calls, fmt.Sprintf(format, args...))
}

func (j *journal) reset() { j.calls = nil }

func (j *journal) factory() compute.Factory {
	return func() (compute.Solver, error) {
		if j.failCreate {
			return nil, compute.ErrUnavailable
		}
		j.created++
		s := &fakeSolver{j: j, id: j.created}
		j.record("create %d", s.id)
		return s, nil
	}
}

type fakeSolver struct {
	j     *journal
	id    int
	bound bool
	kind  simbuf.StateOfMatter
	n     int
	steps int
}

func (s *fakeSolver) Name() string { return "fake" }

func (s *fakeSolver) bind(b *simbuf.Buffer, kind simbuf.StateOfMatter) error {
	s.j.record("bind%s %d", suffix(kind), s.id)
	if s.j.failBind {
		return errDevice
	}
	s.bound = true
	s.kind = kind
	s.n = b.NumParticles()
	s.j.live++
	s.j.maxLive = max(s.j.maxLive, s.j.live)
	return nil
}

func (s *fakeSolver) step(kind simbuf.StateOfMatter) error {
	s.j.record("step%s %d", suffix(kind), s.id)
	if !s.bound {
		return compute.ErrNotBound
	}
	if kind != s.kind {
		return compute.ErrWrongPath
	}
	s.steps++
	if s.j.failStepAt > 0 && s.steps >= s.j.failStepAt {
		return errDevice
	}
	return nil
}

func (s *fakeSolver) readBack(b *simbuf.Buffer, kind simbuf.StateOfMatter) error {
	s.j.record("read%s %d", suffix(kind), s.id)
	if !s.bound {
		return compute.ErrNotBound
	}
	if s.j.failRead {
		return errDevice
	}
	if b.NumParticles() != s.n {
		return compute.ErrSizeMismatch
	}
	for i := range b.Positions {
		b.Positions[i] = mgl32.Vec3{0, float32(s.steps), 0}
	}
	return nil
}

func (s *fakeSolver) Bind(b *simbuf.Buffer) error          { return s.bind(b, simbuf.Fluid) }
func (s *fakeSolver) BindCloth(b *simbuf.Buffer) error     { return s.bind(b, simbuf.Cloth) }
func (s *fakeSolver) Step(*simbuf.Buffer) error            { return s.step(simbuf.Fluid) }
func (s *fakeSolver) StepCloth(*simbuf.Buffer) error       { return s.step(simbuf.Cloth) }
func (s *fakeSolver) ReadBack(b *simbuf.Buffer) error      { return s.readBack(b, simbuf.Fluid) }
func (s *fakeSolver) ReadBackCloth(b *simbuf.Buffer) error { return s.readBack(b, simbuf.Cloth) }

func (s *fakeSolver) Release() {
	s.j.record("release %d", s.id)
	if s.bound {
		s.bound = false
		s.j.live--
	}
}

func suffix(kind simbuf.StateOfMatter) string {
	if kind == simbuf.Cloth {
		return "Cloth"
	}
	return ""
}

// testScenes holds a three particle fluid, a five particle fluid and a two
// particle cloth.
func testScenes() *scene.Registry {
	fluid := func(n int) scene.SeedFunc {
		return func(b *simbuf.Buffer) {
			b.AddPhase(simbuf.DefaultPhase())
			for i := 0; i < n; i++ {
				b.AddParticle(mgl32.Vec3{float32(i) * 0.2, 0.5, 0.5}, mgl32.Vec3{}, 0, 0)
			}
		}
	}
	cloth := func(b *simbuf.Buffer) {
		b.AddPhase(simbuf.PhaseParameters{Kind: simbuf.Cloth, Density: 1})
		b.AddParticle(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{}, 0, 0)
		b.AddParticle(mgl32.Vec3{0.1, 1, 0}, mgl32.Vec3{}, 0, 1)
		b.StretchIDs = append(b.StretchIDs, 0, 1)
	}
	return scene.NewRegistry(
		scene.New("Small", simbuf.Fluid, 3, fluid(3)),
		scene.New("Large", simbuf.Fluid, 5, fluid(5)),
		scene.New("Sheet", simbuf.Cloth, 2, cloth),
	)
}

// recorder is an observer and frontend that writes into the journal.
type recorder struct {
	j          *journal
	activated  []sim.Activation
	stepped    []uint64
	ended      []sim.Stats
	endErrs    []error
	closeAfter int
	renders    int
	poll       func(frame int)
}

func (r *recorder) OnActivate(a sim.Activation, v simbuf.View) {
	r.activated = append(r.activated, a)
}

func (r *recorder) OnStep(a sim.Activation, step uint64, v simbuf.View) {
	r.stepped = append(r.stepped, step)
}

func (r *recorder) OnDeactivate(a sim.Activation, s sim.Stats, err error) {
	r.ended = append(r.ended, s)
	r.endErrs = append(r.endErrs, err)
}

func (r *recorder) ShouldClose() bool { return r.renders >= r.closeAfter }

func (r *recorder) PollEvents() {
	if r.poll != nil {
		r.poll(r.renders)
	}
}

func (r *recorder) MapBuffer(v simbuf.View) { r.j.record("map %d", v.NumParticles()) }

func (r *recorder) Render(v simbuf.View) {
	r.j.record("render %d", v.NumParticles())
	r.renders++
}
