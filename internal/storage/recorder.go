package storage

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
)

// Recorder saves a snapshot on activation and every Every steps after that.
type Recorder struct {
	store *Store
	every uint64
	log   *log.Logger

	mu    sync.Mutex
	saved []string
	err   error
}

func NewRecorder(store *Store, every int, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{store: store, every: uint64(max(every, 1)), log: logger}
}

func (r *Recorder) OnActivate(a sim.Activation, v simbuf.View) {
	r.save(a, 0, v)
}

func (r *Recorder) OnStep(a sim.Activation, step uint64, v simbuf.View) {
	if step%r.every == 0 {
		r.save(a, step, v)
	}
}

func (r *Recorder) OnDeactivate(sim.Activation, sim.Stats, error) {}

func (r *Recorder) save(a sim.Activation, step uint64, v simbuf.View) {
	id, err := r.store.SaveSnapshot(v, SnapshotMetadata{
		Scene:      a.Scene,
		Kind:       a.Kind.String(),
		Backend:    a.Backend,
		Generation: a.Generation,
		Step:       step,
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.log.Error("snapshot failed", "scene", a.Scene, "step", step, "err", err)
		if r.err == nil {
			r.err = err
		}
		return
	}
	r.saved = append(r.saved, id)
	r.log.Debug("snapshot", "id", id)
}

// Saved returns the ids written so far.
func (r *Recorder) Saved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.saved...)
}

// Err returns the first save failure.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
