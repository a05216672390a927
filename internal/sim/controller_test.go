package sim_test

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
)

var _ = Describe("Controller", func() {
	var (
		j   *journal
		rec *recorder
		c   *sim.Controller
		ctx context.Context
	)

	frame := func() simbuf.View {
		GinkgoHelper()
		v, err := c.Frame(ctx)
		Expect(err).NotTo(HaveOccurred())
		return v
	}

	BeforeEach(func() {
		j = &journal{}
		rec = &recorder{j: j}
		ctx = context.Background()
		quiet := log.New(GinkgoWriter)
		c = sim.NewController(testScenes(), j.factory(), sim.WithLogger(quiet), sim.WithObserver(rec))
	})

	Describe("start", func() {
		It("loads the initial scene paused", func() {
			Expect(c.State()).To(Equal(sim.Uninitialized))
			Expect(c.Start(0)).To(Succeed())

			Expect(c.State()).To(Equal(sim.Running))
			Expect(c.Mode()).To(Equal(sim.Paused))
			Expect(c.Generation()).To(Equal(uint64(1)))
			Expect(c.LiveSolvers()).To(Equal(1))
			Expect(c.View().NumParticles()).To(Equal(3))
			Expect(j.calls).To(Equal([]string{"create 1", "bind 1"}))

			Expect(rec.activated).To(HaveLen(1))
			Expect(rec.activated[0].Scene).To(Equal("Small"))
			Expect(rec.activated[0].Backend).To(Equal("fake"))
			Expect(rec.activated[0].Particles).To(Equal(3))
			Expect(rec.activated[0].StartedAt).NotTo(BeZero())
		})

		It("binds cloth scenes on the cloth path", func() {
			Expect(c.Start(2)).To(Succeed())
			frame()
			Expect(c.TogglePause()).To(Succeed())
			frame()

			Expect(j.calls).To(Equal([]string{
				"create 1", "bindCloth 1",
				"readCloth 1",
				"stepCloth 1", "readCloth 1",
			}))
			Expect(c.Activation().Constraints).To(Equal(1))
		})

		It("rejects a second start", func() {
			Expect(c.Start(0)).To(Succeed())
			Expect(c.Start(1)).To(MatchError(sim.ErrAlreadyStarted))
		})

		It("rejects an out of range scene", func() {
			Expect(c.Start(7)).To(MatchError(sim.ErrSceneIndex))
			Expect(c.State()).To(Equal(sim.Uninitialized))
		})

		It("refuses commands before start", func() {
			Expect(c.TogglePause()).To(MatchError(sim.ErrNotRunning))
			Expect(c.RequestStep()).To(MatchError(sim.ErrNotRunning))
			Expect(c.RequestReload(1)).To(MatchError(sim.ErrNotRunning))
			_, err := c.Frame(ctx)
			Expect(err).To(MatchError(sim.ErrNotRunning))
		})
	})

	Describe("pause and step", func() {
		BeforeEach(func() {
			Expect(c.Start(0)).To(Succeed())
			j.reset()
		})

		It("reads back every paused frame without stepping", func() {
			for i := 0; i < 3; i++ {
				frame()
			}
			Expect(j.calls).To(Equal([]string{"read 1", "read 1", "read 1"}))
			Expect(c.Steps()).To(BeZero())
			Expect(c.Frames()).To(Equal(uint64(3)))
		})

		It("advances exactly one step per request", func() {
			Expect(c.RequestStep()).To(Succeed())
			v := frame()
			Expect(c.Mode()).To(Equal(sim.Paused))
			Expect(c.Steps()).To(Equal(uint64(1)))
			Expect(v.Position(0).Y()).To(BeEquivalentTo(1))

			frame()
			Expect(c.Steps()).To(Equal(uint64(1)))
			Expect(j.calls).To(Equal([]string{"step 1", "read 1", "read 1"}))
			Expect(rec.stepped).To(Equal([]uint64{1}))
		})

		It("coalesces repeated requests within one frame", func() {
			Expect(c.RequestStep()).To(Succeed())
			Expect(c.RequestStep()).To(Succeed())
			frame()
			frame()
			Expect(c.Steps()).To(Equal(uint64(1)))
		})

		It("steps once per frame while playing", func() {
			Expect(c.TogglePause()).To(Succeed())
			Expect(c.Playing()).To(BeTrue())
			for i := 0; i < 4; i++ {
				frame()
			}
			Expect(c.Steps()).To(Equal(uint64(4)))
			Expect(j.calls).To(Equal([]string{
				"step 1", "read 1", "step 1", "read 1",
				"step 1", "read 1", "step 1", "read 1",
			}))

			Expect(c.TogglePause()).To(Succeed())
			frame()
			Expect(c.Steps()).To(Equal(uint64(4)))
			Expect(c.Mode()).To(Equal(sim.Paused))
		})

		It("absorbs a step request while playing", func() {
			Expect(c.TogglePause()).To(Succeed())
			Expect(c.RequestStep()).To(Succeed())
			frame()
			Expect(c.Steps()).To(Equal(uint64(1)))

			Expect(c.TogglePause()).To(Succeed())
			frame()
			Expect(c.Steps()).To(Equal(uint64(1)))
		})

		It("makes parameter edits visible to the solver", func() {
			Expect(c.EditParameters(func(p *simbuf.CommonParameters) { p.Dt = 0.5 })).To(Succeed())
			Expect(c.View().Common().Dt).To(BeEquivalentTo(0.5))
		})
	})

	Describe("reload", func() {
		BeforeEach(func() {
			Expect(c.Start(0)).To(Succeed())
			Expect(c.TogglePause()).To(Succeed())
			frame()
			j.reset()
		})

		It("waits for the next frame boundary", func() {
			Expect(c.RequestReload(1)).To(Succeed())
			Expect(c.Generation()).To(Equal(uint64(1)))
			Expect(j.calls).To(BeEmpty())
		})

		It("releases the old solver before binding the new one", func() {
			Expect(c.RequestReload(1)).To(Succeed())
			v := frame()

			Expect(j.calls).To(Equal([]string{"release 1", "create 2", "bind 2", "read 2"}))
			Expect(j.maxLive).To(Equal(1))
			Expect(c.LiveSolvers()).To(Equal(1))
			Expect(c.Mode()).To(Equal(sim.Paused))
			Expect(c.Generation()).To(Equal(uint64(2)))
			Expect(c.Steps()).To(BeZero())
			Expect(v.NumParticles()).To(Equal(5))

			Expect(rec.ended).To(HaveLen(1))
			Expect(rec.ended[0].Reason).To(Equal("reload"))
			Expect(rec.ended[0].Steps).To(Equal(uint64(1)))
			Expect(rec.endErrs[0]).NotTo(HaveOccurred())

			Expect(rec.activated).To(HaveLen(2))
			Expect(rec.activated[1].StartedAt).NotTo(BeTemporally("<", rec.activated[0].StartedAt))
		})

		It("can reload the active scene", func() {
			Expect(c.RequestReload(0)).To(Succeed())
			v := frame()
			Expect(c.Generation()).To(Equal(uint64(2)))
			Expect(v.Position(0).Y()).To(BeZero())
		})

		It("switches between fluid and cloth paths", func() {
			Expect(c.RequestReload(2)).To(Succeed())
			frame()
			Expect(c.RequestReload(0)).To(Succeed())
			frame()

			Expect(j.calls).To(Equal([]string{
				"release 1", "create 2", "bindCloth 2", "readCloth 2",
				"release 2", "create 3", "bind 3", "read 3",
			}))
			Expect(j.maxLive).To(Equal(1))
		})

		It("drops a pending step request", func() {
			Expect(c.TogglePause()).To(Succeed())
			Expect(c.RequestStep()).To(Succeed())
			Expect(c.RequestReload(1)).To(Succeed())
			frame()
			Expect(c.Steps()).To(BeZero())
		})

		It("rejects an out of range index", func() {
			Expect(c.RequestReload(-1)).To(MatchError(sim.ErrSceneIndex))
			Expect(c.RequestReload(3)).To(MatchError(sim.ErrSceneIndex))
		})
	})

	Describe("faults", func() {
		It("fails start when the solver cannot be created", func() {
			j.failCreate = true
			err := c.Start(0)

			var fe *sim.FaultError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(fe.Kind).To(Equal(sim.FaultInit))
			Expect(c.LiveSolvers()).To(BeZero())

			_, err = c.Frame(ctx)
			Expect(err).To(MatchError(sim.ErrFaulted))
		})

		It("releases the solver when bind fails", func() {
			j.failBind = true
			err := c.Start(0)

			Expect(sim.IsFault(err)).To(BeTrue())
			Expect(err).To(MatchError(errDevice))
			Expect(j.calls).To(Equal([]string{"create 1", "bind 1", "release 1"}))
			Expect(c.LiveSolvers()).To(BeZero())
			Expect(c.View().Valid()).To(BeFalse())
		})

		It("stops the session on a step fault", func() {
			j.failStepAt = 2
			Expect(c.Start(0)).To(Succeed())
			Expect(c.TogglePause()).To(Succeed())
			frame()

			_, err := c.Frame(ctx)
			var fe *sim.FaultError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(fe.Kind).To(Equal(sim.FaultStep))
			Expect(fe.Scene).To(Equal("Small"))
			Expect(fe.Step).To(Equal(uint64(1)))
			Expect(c.LiveSolvers()).To(BeZero())
			Expect(rec.ended[0].Reason).To(Equal("fault"))
			Expect(rec.endErrs[0]).To(MatchError(errDevice))

			Expect(c.TogglePause()).To(MatchError(sim.ErrFaulted))
			Expect(c.RequestReload(1)).To(MatchError(sim.ErrFaulted))
			_, err = c.Frame(ctx)
			Expect(err).To(MatchError(errDevice))
		})

		It("stops the session on a read-back fault", func() {
			Expect(c.Start(0)).To(Succeed())
			j.failRead = true
			_, err := c.Frame(ctx)

			var fe *sim.FaultError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(fe.Kind).To(Equal(sim.FaultReadBack))
			Expect(c.LiveSolvers()).To(BeZero())
		})

		It("does not fall back to the previous scene when a reload fails", func() {
			Expect(c.Start(0)).To(Succeed())
			Expect(c.RequestReload(1)).To(Succeed())
			j.failBind = true

			_, err := c.Frame(ctx)
			Expect(sim.IsFault(err)).To(BeTrue())
			Expect(c.View().Valid()).To(BeFalse())
			Expect(c.LiveSolvers()).To(BeZero())
			Expect(c.Err()).To(HaveOccurred())
		})
	})

	Describe("shutdown", func() {
		It("releases the solver once and refuses further commands", func() {
			Expect(c.Start(0)).To(Succeed())
			j.reset()
			c.Shutdown()
			c.Shutdown()

			Expect(j.calls).To(Equal([]string{"release 1"}))
			Expect(c.State()).To(Equal(sim.ShuttingDown))
			Expect(c.LiveSolvers()).To(BeZero())
			Expect(rec.ended[0].Reason).To(Equal("shutdown"))

			Expect(c.TogglePause()).To(MatchError(sim.ErrShutdown))
			Expect(c.Start(0)).To(MatchError(sim.ErrShutdown))
			_, err := c.Frame(ctx)
			Expect(err).To(MatchError(sim.ErrShutdown))
		})

		It("is safe before start", func() {
			c.Shutdown()
			Expect(c.State()).To(Equal(sim.ShuttingDown))
			Expect(j.calls).To(BeEmpty())
		})
	})

	Describe("RunLoop", func() {
		It("reads back before every render and maps once per activation", func() {
			Expect(c.Start(0)).To(Succeed())
			j.reset()

			rec.closeAfter = 4
			rec.poll = func(frame int) {
				switch frame {
				case 1:
					Expect(c.RequestStep()).To(Succeed())
				case 2:
					Expect(c.RequestReload(1)).To(Succeed())
				}
			}

			Expect(sim.RunLoop(ctx, c, rec)).To(Succeed())
			Expect(j.calls).To(Equal([]string{
				"read 1", "map 3", "render 3",
				"step 1", "read 1", "render 3",
				"release 1", "create 2", "bind 2", "read 2", "map 5", "render 5",
				"read 2", "render 5",
				"release 2",
			}))
			Expect(c.State()).To(Equal(sim.ShuttingDown))
		})

		It("returns the fault that stopped the session", func() {
			j.failStepAt = 1
			Expect(c.Start(0)).To(Succeed())
			Expect(c.TogglePause()).To(Succeed())
			rec.closeAfter = 10

			err := sim.RunLoop(ctx, c, rec)
			Expect(sim.IsFault(err)).To(BeTrue())
			Expect(rec.renders).To(BeZero())
			Expect(c.State()).To(Equal(sim.ShuttingDown))
		})

		It("stops when the context is cancelled", func() {
			Expect(c.Start(0)).To(Succeed())
			cctx, cancel := context.WithCancel(ctx)
			rec.closeAfter = 100
			rec.poll = func(frame int) {
				if frame == 2 {
					cancel()
				}
			}

			err := sim.RunLoop(cctx, c, rec)
			Expect(err).To(MatchError(context.Canceled))
			Expect(rec.renders).To(Equal(2))
			Expect(c.LiveSolvers()).To(BeZero())
		})
	})
})
