package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/particlelab/internal/automation"
	"github.com/san-kum/particlelab/internal/config"
	"github.com/san-kum/particlelab/internal/gui"
	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
	"github.com/san-kum/particlelab/internal/storage"
	"github.com/san-kum/particlelab/internal/viz"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runGUI(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext()
	defer cancel()

	w := s.cfg.Window
	return gui.Run(ctx, s.controller(), s.start, s.cfg.StartPlaying, gui.Options{
		Width:  int32(w.Width),
		Height: int32(w.Height),
		Title:  w.Title,
		FPS:    int32(w.TargetFPS),
		Logger: s.log,
	})
}

func runTUI(cmd *cobra.Command, args []string) error {
	s, err := newWindowlessSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext()
	defer cancel()

	return viz.Run(ctx, s.controller(), s.start, viz.Options{
		FPS:   s.cfg.Window.TargetFPS,
		Theme: theme,
		Play:  s.cfg.StartPlaying,
	})
}

func runHeadless(cmd *cobra.Command, args []string) error {
	s, err := newWindowlessSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext()
	defer cancel()

	if runAll {
		return runAllScenes(ctx, s)
	}

	energy := metrics.NewEnergy(headlessFrames)
	collector := metrics.NewCollector(energy, metrics.NewPeakSpeed(), metrics.NewStability())
	c := s.controller(sim.WithObserver(collector))

	if err := c.Start(s.start); err != nil {
		return err
	}
	if err := c.TogglePause(); err != nil {
		return err
	}

	var summary map[string]float64
	var dt float64
	h := &sim.Headless{
		Frames: headlessFrames,
		OnRender: func(frame int, v simbuf.View) {
			if frame == headlessFrames-1 {
				summary = metrics.Summary(v)
				dt = float64(v.Common().Dt)
			}
		},
	}

	a := c.Activation()
	fmt.Printf("running %s (%s, %d particles) on %s...\n", a.Scene, a.Kind, a.Particles, a.Backend)
	start := time.Now()
	if err := sim.RunLoop(ctx, c, h); err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed %d frames in %v (%.1f fps)\n", h.Rendered(), elapsed, float64(h.Rendered())/elapsed.Seconds())
	if hist := energy.History(); len(hist) > 1 {
		fmt.Println(asciigraph.Plot(hist, asciigraph.Height(8), asciigraph.Width(60), asciigraph.Caption("kinetic energy")))
		if freq, _ := metrics.DominantFrequency(hist, dt); freq > 0 {
			fmt.Printf("energy oscillation: %.3f Hz (simulated time)\n", freq)
		}
	}
	fmt.Println("\nfinal frame:")
	printMetrics(summary)
	fmt.Println("\nsession:")
	printMetrics(collector.Final())
	return nil
}

func runAllScenes(ctx context.Context, s *session) error {
	summaries := make([]map[string]float64, s.scenes.Len())
	jobs := make([]sim.Job, s.scenes.Len())
	for i := range jobs {
		jobs[i] = sim.Job{
			Scene:  i,
			Frames: headlessFrames,
			Play:   true,
			Inspect: func(a sim.Activation, v simbuf.View) {
				summaries[a.Index] = metrics.Summary(v)
			},
		}
	}

	start := time.Now()
	results := sim.RunBatch(ctx, s.scenes, s.factory, jobs, s.observers()...)
	fmt.Printf("ran %d scenes x %d frames in %v\n\n", len(jobs), headlessFrames, time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENE\tKIND\tBACKEND\tPARTICLES\tSTEPS\tKINETIC\tMAX SPEED\tESCAPED\tERROR")
	var errs []error
	for i, r := range results {
		m := summaries[i]
		errText := "-"
		if r.Err != nil {
			errText = r.Err.Error()
			errs = append(errs, r.Err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4g\t%.3f\t%.0f\t%s\n",
			r.Activation.Scene,
			r.Activation.Kind,
			r.Activation.Backend,
			r.Activation.Particles,
			r.Steps,
			m["kinetic_energy"],
			m["max_speed"],
			m["escaped"],
			errText,
		)
	}
	w.Flush()
	return errors.Join(errs...)
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func listScenes(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tKIND\tPARTICLES")
	for _, e := range s.scenes.List() {
		d, _ := s.scenes.At(e.Index)
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", e.Index+1, e.Name, e.Kind, d.Capacity())
	}
	return w.Flush()
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	s, err := newWindowlessSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext()
	defer cancel()

	var plane storage.Plane
	if snapshotSVG != "" {
		if plane, err = storage.ParsePlane(snapshotSVG); err != nil {
			return err
		}
	}

	store := s.store()
	if err := store.Init(); err != nil {
		return err
	}

	c := s.controller()
	defer c.Shutdown()
	if err := c.Start(s.start); err != nil {
		return err
	}
	if err := c.TogglePause(); err != nil {
		return err
	}
	for i := 0; i < snapshotFrames; i++ {
		if _, err := c.Frame(ctx); err != nil {
			return err
		}
	}

	a := c.Activation()
	id, err := store.SaveSnapshot(c.View(), storage.SnapshotMetadata{
		Scene:      a.Scene,
		Kind:       a.Kind.String(),
		Backend:    a.Backend,
		Generation: a.Generation,
		Step:       c.Steps(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("snapshot: %s\n", filepath.Join(store.Dir(), id))

	if snapshotSVG != "" {
		path := filepath.Join(store.Dir(), id, "view.svg")
		if err := storage.WriteSVG(path, c.View(), storage.SVGOptions{Plane: plane}); err != nil {
			return err
		}
		fmt.Printf("svg: %s\n", path)
	}
	return nil
}

func listSnapshots(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	snaps, err := s.store().List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("no snapshots found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tKIND\tSTEP\tPARTICLES\tTIME")
	for _, m := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			m.ID, m.Scene, m.Kind, m.Step, m.Particles, m.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func renderSnapshot(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	plane, err := storage.ParsePlane(renderPlane)
	if err != nil {
		return err
	}

	store := s.store()
	b, err := store.Restore(args[0])
	if err != nil {
		return err
	}

	path := filepath.Join(store.Dir(), args[0], "view.svg")
	opts := storage.SVGOptions{Width: svgWidth, Height: svgHeight, Plane: plane}
	if err := storage.WriteSVG(path, b.View(), opts); err != nil {
		return err
	}
	fmt.Printf("svg: %s\n", path)
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	s, err := newWindowlessSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext()
	defer cancel()

	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	store := s.store()
	if err := store.Init(); err != nil {
		return err
	}

	c := s.controller()
	defer c.Shutdown()

	if scenario.Name != "" {
		fmt.Printf("scenario: %s\n", scenario.Name)
	}
	results, err := automation.NewRunner(c, store, s.log).Run(ctx, scenario)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSCENE\tGEN\tFRAMES\tSTEPS\tKINETIC\tSNAPSHOT")
	for i, r := range results {
		snap := r.SnapshotID
		if snap == "" {
			snap = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%.4g\t%s\n",
			i+1, r.Scene, r.Generation, r.Frames, r.Steps, r.Metrics["kinetic_energy"], snap)
	}
	w.Flush()
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	s, err := newWindowlessSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext()
	defer cancel()

	sweep := automation.ParameterSweep{
		Scene:     s.cfg.Scene,
		ParamName: sweepParam,
		ParamMin:  float32(sweepMin),
		ParamMax:  float32(sweepMax),
		NumSteps:  sweepPoints,
		Frames:    sweepFrames,
	}
	fmt.Printf("sweeping %s over [%g, %g] on %s (params: %v)\n", sweepParam, sweepMin, sweepMax, s.cfg.Scene, automation.SweepParams())

	results, err := automation.RunSweep(ctx, s.scenes, s.factory, sweep, s.observers()...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTEPS\tKINETIC\tMAX SPEED\tESCAPED\tSTABLE\n", sweepParam)
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%d\t%.4g\t%.3f\t%d\t%v\n",
			r.ParamValue, r.Steps, r.KineticEnergy, r.MaxSpeed, r.Escaped, r.Stable)
	}
	return w.Flush()
}

func showHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Journal == "" {
		return errors.New("no journal configured; set journal in the config file")
	}

	j, err := storage.OpenJournal(cfg.Journal, newLogger(cfg))
	if err != nil {
		return err
	}
	defer j.Close()

	sessions, err := j.Recent(limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSCENE\tKIND\tBACKEND\tPARTICLES\tSTEPS\tFRAMES\tDURATION\tEND\tERROR")
	for _, ses := range sessions {
		errText := ses.Error
		if errText == "" {
			errText = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%v\t%s\t%s\n",
			ses.StartedAt.Local().Format("2006-01-02 15:04:05"),
			ses.Scene,
			ses.Kind,
			ses.Backend,
			ses.Particles,
			ses.Steps,
			ses.Frames,
			ses.EndedAt.Sub(ses.StartedAt).Round(time.Millisecond),
			ses.Reason,
			errText,
		)
	}
	return w.Flush()
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := config.Save(args[0], cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", args[0])
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func listPresets(cmd *cobra.Command, args []string) error {
	for _, name := range config.ListPresets() {
		fmt.Println(name)
	}
	return nil
}
