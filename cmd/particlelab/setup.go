package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/san-kum/particlelab/internal/compute"
	"github.com/san-kum/particlelab/internal/config"
	"github.com/san-kum/particlelab/internal/scene"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/storage"
	"github.com/spf13/cobra"
)

// loadConfig applies, in order: defaults, preset, config file, then any flag
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("scene") {
		cfg.Scene = sceneName
	}
	if flags.Changed("play") {
		cfg.StartPlaying = play
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "particlelab",
	})
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// session bundles everything one command needs to drive a controller.
type session struct {
	cfg      *config.Config
	log      *log.Logger
	scenes   *scene.Registry
	factory  compute.Factory
	start    int
	journal  *storage.Journal
	recorder *storage.Recorder
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	scenes := scene.Default()
	start, err := scenes.Index(cfg.Scene)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, scenes.Names())
	}

	factory, err := compute.NewFactory(cfg.Backend, compute.Options{Workers: cfg.Workers, Logger: logger})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, log: logger, scenes: scenes, factory: factory, start: start}

	if cfg.Journal != "" {
		if s.journal, err = storage.OpenJournal(cfg.Journal, logger); err != nil {
			return nil, err
		}
	}
	if cfg.Record.Every > 0 {
		store := storage.New(cfg.RecordDir())
		if err := store.Init(); err != nil {
			s.close()
			return nil, err
		}
		s.recorder = storage.NewRecorder(store, cfg.Record.Every, logger)
	}
	return s, nil
}

// newWindowlessSession is newSession for commands that drive a solver
// without opening the GUI window.
func newWindowlessSession(cmd *cobra.Command) (*session, error) {
	s, err := newSession(cmd)
	if err != nil {
		return nil, err
	}
	if err := s.cfg.ValidateWindowless(); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// observers returns the journal and recorder when enabled.
func (s *session) observers() []sim.Option {
	opts := []sim.Option{sim.WithLogger(s.log)}
	if s.journal != nil {
		opts = append(opts, sim.WithObserver(s.journal))
	}
	if s.recorder != nil {
		opts = append(opts, sim.WithObserver(s.recorder))
	}
	return opts
}

func (s *session) controller(extra ...sim.Option) *sim.Controller {
	return sim.NewController(s.scenes, s.factory, append(s.observers(), extra...)...)
}

func (s *session) store() *storage.Store {
	dir := s.cfg.DataDir
	if outDir != "" {
		dir = outDir
	}
	return storage.New(dir)
}

func (s *session) close() {
	if s.recorder != nil {
		if err := s.recorder.Err(); err != nil {
			s.log.Warn("recording incomplete", "err", err)
		} else if n := len(s.recorder.Saved()); n > 0 {
			s.log.Info("recorded snapshots", "count", n, "dir", s.cfg.RecordDir())
		}
	}
	if s.journal != nil {
		s.journal.Close()
	}
}
