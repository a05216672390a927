package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/charmbracelet/log"
	"github.com/san-kum/particlelab/internal/sim"
	"github.com/san-kum/particlelab/internal/simbuf"
)

// Journal records one row per scene activation in SQLite.
type Journal struct {
	db  *sql.DB
	log *log.Logger
	now func() time.Time
}

// Session is one journal row.
type Session struct {
	ID          int64
	Scene       string
	Kind        string
	Backend     string
	Generation  uint64
	Particles   int
	Constraints int
	Steps       uint64
	Frames      uint64
	Reason      string
	Error       string
	StartedAt   time.Time
	EndedAt     time.Time
}

// OpenJournal creates or opens the database at path, creating parent
// directories and the schema as needed.
func OpenJournal(path string, logger *log.Logger) (*Journal, error) {
	if path != "" && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	if logger == nil {
		logger = log.Default()
	}
	j := &Journal{db: db, log: logger, now: time.Now}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			scene TEXT NOT NULL,
			kind TEXT NOT NULL,
			backend TEXT NOT NULL,
			generation INTEGER NOT NULL,
			particles INTEGER NOT NULL DEFAULT 0,
			constraint_count INTEGER NOT NULL DEFAULT 0,
			steps INTEGER NOT NULL DEFAULT 0,
			frames INTEGER NOT NULL DEFAULT 0,
			reason TEXT NOT NULL,
			err_msg TEXT NOT NULL DEFAULT '',
			started_ms INTEGER NOT NULL,
			ended_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_scene ON sessions(scene);
	`
	_, err := j.db.Exec(schema)
	return err
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// OnActivate is a no-op; rows are written when the activation ends, using the
// start time stamped on the activation.
func (j *Journal) OnActivate(sim.Activation, simbuf.View) {}

func (j *Journal) OnStep(sim.Activation, uint64, simbuf.View) {}

func (j *Journal) OnDeactivate(a sim.Activation, s sim.Stats, cause error) {
	ended := j.now()
	started := a.StartedAt
	if started.IsZero() {
		started = ended
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	_, err := j.db.Exec(
		`INSERT INTO sessions (scene, kind, backend, generation, particles, constraint_count,
			steps, frames, reason, err_msg, started_ms, ended_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Scene, a.Kind.String(), a.Backend, int64(a.Generation), a.Particles, a.Constraints,
		int64(s.Steps), int64(s.Frames), s.Reason, msg, started.UnixMilli(), ended.UnixMilli(),
	)
	if err != nil {
		j.log.Error("journal insert failed", "scene", a.Scene, "err", err)
	}
}

// Recent returns up to limit sessions, newest first.
func (j *Journal) Recent(limit int) ([]Session, error) {
	rows, err := j.db.Query(
		`SELECT id, scene, kind, backend, generation, particles, constraint_count,
			steps, frames, reason, err_msg, started_ms, ended_ms
		FROM sessions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		var gen, steps, frames, started, ended int64
		if err := rows.Scan(&s.ID, &s.Scene, &s.Kind, &s.Backend, &gen, &s.Particles, &s.Constraints,
			&steps, &frames, &s.Reason, &s.Error, &started, &ended); err != nil {
			return nil, fmt.Errorf("storage: cannot scan session: %w", err)
		}
		s.Generation, s.Steps, s.Frames = uint64(gen), uint64(steps), uint64(frames)
		s.StartedAt, s.EndedAt = time.UnixMilli(started).UTC(), time.UnixMilli(ended).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}
