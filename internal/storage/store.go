// Package storage persists particle snapshots as metadata.json plus
// particles.csv directories, keeps a SQLite journal of scene activations and
// renders snapshots to SVG.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gocarina/gocsv"
	"github.com/san-kum/particlelab/internal/metrics"
	"github.com/san-kum/particlelab/internal/simbuf"
)

var ErrEmptyView = errors.New("storage: view has no buffer")

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type SnapshotMetadata struct {
	ID         string             `json:"id"`
	Scene      string             `json:"scene"`
	Kind       string             `json:"kind"`
	Backend    string             `json:"backend"`
	Generation uint64             `json:"generation"`
	Step       uint64             `json:"step"`
	Timestamp  time.Time          `json:"timestamp"`
	Particles  int                `json:"particles"`
	Phases     int                `json:"phases"`
	Stretch    int                `json:"stretch"`
	Bend       int                `json:"bend"`
	Shear      int                `json:"shear"`
	Triangles  int                `json:"triangles"`
	Dt         float32            `json:"dt"`
	Radius     float32            `json:"radius"`
	H          float32            `json:"h"`
	Metrics    map[string]float64 `json:"metrics"`
}

// ParticleRecord is one row of particles.csv.
type ParticleRecord struct {
	Index int     `csv:"index"`
	X     float32 `csv:"x"`
	Y     float32 `csv:"y"`
	Z     float32 `csv:"z"`
	VX    float32 `csv:"vx"`
	VY    float32 `csv:"vy"`
	VZ    float32 `csv:"vz"`
	Phase int32   `csv:"phase"`
	Color float32 `csv:"color"`
}

// SaveSnapshot writes v under a new directory and returns its id. Counts,
// parameters and metrics are filled from the view; meta supplies the scene,
// backend, generation and step.
func (s *Store) SaveSnapshot(v simbuf.View, meta SnapshotMetadata) (string, error) {
	if !v.Valid() {
		return "", ErrEmptyView
	}

	meta.ID = fmt.Sprintf("%s_g%d_s%06d", slug(meta.Scene), meta.Generation, meta.Step)
	meta.Timestamp = s.now()
	meta.Particles = v.NumParticles()
	meta.Phases = v.NumPhases()
	meta.Stretch = v.NumStretchLines()
	meta.Bend = v.NumBendLines()
	meta.Shear = v.NumShearLines()
	meta.Triangles = v.NumTriangles()
	common := v.Common()
	meta.Dt, meta.Radius, meta.H = common.Dt, common.Radius, common.H
	meta.Metrics = metrics.Summary(v)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("storage: create %s: %w", runDir, err)
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("storage: encode metadata: %w", err)
	}

	csvFile, err := os.Create(filepath.Join(runDir, "particles.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	records := make([]ParticleRecord, v.NumParticles())
	for i := range records {
		p, vel := v.Position(i), v.Velocity(i)
		records[i] = ParticleRecord{
			Index: i,
			X:     p[0],
			Y:     p[1],
			Z:     p[2],
			VX:    vel[0],
			VY:    vel[1],
			VZ:    vel[2],
			Phase: v.Phase(i),
			Color: v.ColorValue(i),
		}
	}
	if err := gocsv.Marshal(records, csvFile); err != nil {
		return "", fmt.Errorf("storage: write particles: %w", err)
	}

	return meta.ID, nil
}

func slug(name string) string {
	if name == "" {
		return "snapshot"
	}
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

// List returns all snapshots sorted by id. A missing base directory is empty.
func (s *Store) List() ([]SnapshotMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SnapshotMetadata{}, nil
		}
		return nil, err
	}

	snaps := make([]SnapshotMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		snaps = append(snaps, *meta)
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	return snaps, nil
}

func (s *Store) Load(id string) (*SnapshotMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta SnapshotMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadParticles(id string) ([]ParticleRecord, error) {
	file, err := os.Open(filepath.Join(s.baseDir, id, "particles.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []ParticleRecord
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, fmt.Errorf("storage: read particles: %w", err)
	}
	return records, nil
}

// Restore rebuilds a fluid buffer holding the snapshot's particles. Phase
// tables and topology are not stored, so a single default phase is created
// for every referenced phase id.
func (s *Store) Restore(id string) (*simbuf.Buffer, error) {
	meta, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	records, err := s.LoadParticles(id)
	if err != nil {
		return nil, err
	}

	b := simbuf.New()
	b.Common.Dt, b.Common.Radius, b.Common.H = meta.Dt, meta.Radius, meta.H
	b.Common.Diameter = 2 * meta.Radius
	if err := b.Reserve(len(records)); err != nil {
		return nil, err
	}
	for _, r := range records {
		for int(r.Phase) >= len(b.PhaseParams) {
			b.AddPhase(simbuf.DefaultPhase())
		}
		b.AddParticle(mgl32.Vec3{r.X, r.Y, r.Z}, mgl32.Vec3{r.VX, r.VY, r.VZ}, r.Phase, r.Color)
	}
	return b, nil
}
