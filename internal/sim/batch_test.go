package sim_test

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/particlelab/internal/compute"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
)

var _ = Describe("CPU sessions", func() {
	var (
		factory compute.Factory
		quiet   *log.Logger
	)

	BeforeEach(func() {
		quiet = log.New(GinkgoWriter)
		var err error
		factory, err = compute.NewFactory("cpu", compute.Options{Workers: 2, Logger: quiet})
		Expect(err).NotTo(HaveOccurred())
	})

	It("runs a headless loop to completion", func() {
		c := sim.NewController(testScenes(), factory, sim.WithLogger(quiet))
		Expect(c.Start(0)).To(Succeed())
		Expect(c.TogglePause()).To(Succeed())

		var last simbuf.View
		h := &sim.Headless{
			Frames:   5,
			OnRender: func(_ int, v simbuf.View) { last = v },
		}
		Expect(sim.RunLoop(context.Background(), c, h)).To(Succeed())

		Expect(h.Rendered()).To(Equal(5))
		Expect(h.Mapped()).To(Equal(1))
		Expect(c.State()).To(Equal(sim.ShuttingDown))
		Expect(last.Valid()).To(BeTrue())
	})

	It("runs independent jobs in parallel", func() {
		var sheet int
		var dt float32
		jobs := []sim.Job{
			{Scene: 0, Frames: 3, Play: true},
			{
				Scene:  2,
				Frames: 2,
				Edit:   func(p *simbuf.CommonParameters) { p.Dt = 0.05 },
				Inspect: func(a sim.Activation, v simbuf.View) {
					sheet = v.NumStretchLines()
					dt = v.Common().Dt
				},
			},
			{Scene: 9, Frames: 1},
		}

		results := sim.RunBatch(context.Background(), testScenes(), factory, jobs, sim.WithLogger(quiet))
		Expect(results).To(HaveLen(3))

		Expect(results[0].Err).NotTo(HaveOccurred())
		Expect(results[0].Activation.Scene).To(Equal("Small"))
		Expect(results[0].Steps).To(Equal(uint64(3)))
		Expect(results[0].Frames).To(Equal(uint64(3)))

		Expect(results[1].Err).NotTo(HaveOccurred())
		Expect(results[1].Activation.Kind).To(Equal(simbuf.Cloth))
		Expect(results[1].Steps).To(BeZero())
		Expect(sheet).To(Equal(1))
		Expect(dt).To(Equal(float32(0.05)))

		Expect(results[2].Err).To(MatchError(sim.ErrSceneIndex))
	})

	It("keeps at most limit jobs in flight", func() {
		gauge := &liveGauge{}
		counted := func() (compute.Solver, error) {
			solver, err := factory()
			if err != nil {
				return nil, err
			}
			gauge.add(1)
			return gaugedSolver{Solver: solver, gauge: gauge}, nil
		}

		jobs := make([]sim.Job, 6)
		for i := range jobs {
			jobs[i] = sim.Job{Scene: i % 2, Frames: 4, Play: true}
		}

		results := sim.RunBatchN(context.Background(), testScenes(), counted, jobs, 2, sim.WithLogger(quiet))
		Expect(results).To(HaveLen(6))
		for _, r := range results {
			Expect(r.Err).NotTo(HaveOccurred())
			Expect(r.Steps).To(Equal(uint64(4)))
		}
		Expect(gauge.peak).To(BeNumerically("<=", 2))
		Expect(gauge.peak).To(BeNumerically(">=", 1))
		Expect(gauge.live).To(BeZero())
	})
})

type liveGauge struct {
	mu   sync.Mutex
	live int
	peak int
}

func (g *liveGauge) add(d int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.live += d
	g.peak = max(g.peak, g.live)
}

type gaugedSolver struct {
	compute.Solver
	gauge *liveGauge
}

func (s gaugedSolver) Release() {
	s.Solver.Release()
	s.gauge.add(-1)
}
