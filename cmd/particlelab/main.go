package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	preset     string
	logLevel   string
	backend    string
	workers    int
	sceneName  string
	play       bool

	headlessFrames int
	runAll         bool

	snapshotFrames int
	snapshotSVG    string

	outDir      string
	renderPlane string
	svgWidth    int
	svgHeight   int
	theme       string
	limit       int

	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepPoints int
	sweepFrames int
)

// newRootCmd registers the commands. The root runs the GUI when no
// subcommand is given.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "particlelab",
		Short:        "interactive particle fluid and cloth simulation host",
		SilenceUsage: true,
		RunE:         runGUI,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&backend, "backend", "", "solver backend: auto, cpu, cuda or gl")
	pf.IntVar(&workers, "workers", 0, "cpu solver workers (0 = all cores)")
	pf.StringVar(&sceneName, "scene", "", "initial scene name")
	pf.BoolVar(&play, "play", false, "start playing instead of paused")

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "open the 3D window",
		RunE:  runGUI,
	}

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "run in the terminal",
		RunE:  runTUI,
	}
	tuiCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme")

	headlessCmd := &cobra.Command{
		Use:   "headless",
		Short: "run frames without a display and print metrics",
		RunE:  runHeadless,
	}
	headlessCmd.Flags().IntVar(&headlessFrames, "frames", 300, "frames to run")
	headlessCmd.Flags().BoolVar(&runAll, "all", false, "run every scene in parallel")

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list scenes",
		RunE:  listScenes,
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "run frames and save a snapshot",
		RunE:  runSnapshot,
	}
	snapshotCmd.Flags().IntVar(&snapshotFrames, "frames", 100, "frames to run before saving")
	snapshotCmd.Flags().StringVar(&outDir, "out", "", "snapshot directory (default: data dir)")
	snapshotCmd.Flags().StringVar(&snapshotSVG, "svg", "", "also write an SVG projection on this plane (xy, xz, zy)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved snapshots",
		RunE:  listSnapshots,
	}
	listCmd.Flags().StringVar(&outDir, "out", "", "snapshot directory (default: data dir)")

	renderCmd := &cobra.Command{
		Use:   "render [snapshot_id]",
		Short: "render a saved snapshot to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  renderSnapshot,
	}
	renderCmd.Flags().StringVar(&outDir, "out", "", "snapshot directory (default: data dir)")
	renderCmd.Flags().StringVar(&renderPlane, "plane", "xy", "projection plane (xy, xz, zy)")
	renderCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	renderCmd.Flags().IntVar(&svgHeight, "height", 800, "image height")

	scriptCmd := &cobra.Command{
		Use:   "script [file]",
		Short: "run a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a scene across a range of one parameter",
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&sweepParam, "param", "dt", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.01, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.1, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 5, "number of values")
	sweepCmd.Flags().IntVar(&sweepFrames, "frames", 120, "frames per run")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "show recent sessions from the journal",
		RunE:  showHistory,
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "number of sessions")

	configCmd := &cobra.Command{
		Use:   "config [file]",
		Short: "write the effective configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		RunE:  listPresets,
	}

	rootCmd.AddCommand(guiCmd, tuiCmd, headlessCmd, scenesCmd, snapshotCmd, listCmd, renderCmd,
		scriptCmd, sweepCmd, historyCmd, configCmd, presetsCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
