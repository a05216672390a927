package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal(filepath.Join(t.TempDir(), "nested", "journal.db"), nil)
	if err != nil {
		t.Fatalf("OpenJournal() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalOpenCreatesFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "a", "b", "journal.db")
	j, err := OpenJournal(dbPath, nil)
	if err != nil {
		t.Fatalf("OpenJournal() failed: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestJournalRecordsActivations(t *testing.T) {
	j := openJournal(t)
	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	now := start
	j.now = func() time.Time { return now }

	a := sim.Activation{Generation: 1, Scene: "Dam Break", Kind: simbuf.Fluid, Backend: "cpu", Particles: 6000, StartedAt: start}
	j.OnActivate(a, simbuf.View{})
	j.OnStep(a, 1, simbuf.View{})
	now = start.Add(1500 * time.Millisecond)
	j.OnDeactivate(a, sim.Stats{Frames: 90, Steps: 60, Reason: "reload"}, nil)

	b := sim.Activation{Generation: 2, Scene: "Cloth", Kind: simbuf.Cloth, Backend: "cpu", Particles: 2601, Constraints: 15000, StartedAt: now}
	j.OnActivate(b, simbuf.View{})
	j.OnDeactivate(b, sim.Stats{Frames: 3, Steps: 2, Reason: "fault"}, errors.New("device lost"))

	sessions, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	latest := sessions[0]
	if latest.Scene != "Cloth" || latest.Kind != "cloth" || latest.Reason != "fault" || latest.Error != "device lost" {
		t.Errorf("unexpected latest session %+v", latest)
	}
	if latest.Constraints != 15000 || latest.Generation != 2 {
		t.Errorf("unexpected counts %+v", latest)
	}

	first := sessions[1]
	if first.Steps != 60 || first.Frames != 90 || first.Particles != 6000 {
		t.Errorf("unexpected counts %+v", first)
	}
	if !first.StartedAt.Equal(start) {
		t.Errorf("expected start %v, got %v", start, first.StartedAt)
	}
	if d := first.EndedAt.Sub(first.StartedAt); d != 1500*time.Millisecond {
		t.Errorf("expected 1.5s session, got %v", d)
	}
	if first.Error != "" {
		t.Errorf("expected no error, got %q", first.Error)
	}
}

func TestJournalRecentLimit(t *testing.T) {
	j := openJournal(t)
	for g := uint64(1); g <= 5; g++ {
		a := sim.Activation{Generation: g, Scene: "Box Drop", Kind: simbuf.Fluid, Backend: "cpu"}
		j.OnActivate(a, simbuf.View{})
		j.OnDeactivate(a, sim.Stats{Reason: "reload"}, nil)
	}

	sessions, err := j.Recent(3)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	if sessions[0].Generation != 5 || sessions[2].Generation != 3 {
		t.Errorf("expected newest first, got %d..%d", sessions[0].Generation, sessions[2].Generation)
	}
}

func TestJournalConcurrentSameGeneration(t *testing.T) {
	j := openJournal(t)
	t0 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var now time.Time
	j.now = func() time.Time { return now }

	// Batch jobs each run their own controller, so generations collide.
	a := sim.Activation{Generation: 1, Scene: "Sphere Drop", Kind: simbuf.Fluid, Backend: "cpu", StartedAt: t0}
	b := sim.Activation{Generation: 1, Scene: "Cloth", Kind: simbuf.Cloth, Backend: "cpu", StartedAt: t0.Add(5 * time.Second)}
	j.OnActivate(a, simbuf.View{})
	j.OnActivate(b, simbuf.View{})

	now = t0.Add(10 * time.Second)
	j.OnDeactivate(a, sim.Stats{Reason: "shutdown"}, nil)
	now = t0.Add(20 * time.Second)
	j.OnDeactivate(b, sim.Stats{Reason: "shutdown"}, nil)

	sessions, err := j.Recent(2)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	want := map[string]time.Duration{"Sphere Drop": 10 * time.Second, "Cloth": 15 * time.Second}
	for _, s := range sessions {
		if d := s.EndedAt.Sub(s.StartedAt); d != want[s.Scene] {
			t.Errorf("%s: expected duration %v, got %v", s.Scene, want[s.Scene], d)
		}
	}
}

func TestJournalUnmatchedDeactivation(t *testing.T) {
	j := openJournal(t)

	a := sim.Activation{Generation: 7, Scene: "Sphere Drop", Kind: simbuf.Fluid, Backend: "gl"}
	j.OnDeactivate(a, sim.Stats{Reason: "shutdown"}, nil)

	sessions, err := j.Recent(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || !sessions[0].StartedAt.Equal(sessions[0].EndedAt) {
		t.Errorf("activation without a start time should use end time as start, got %+v", sessions)
	}
}
