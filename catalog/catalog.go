// Copyright © 2023 Sloan Childers
package catalog

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/osintami/sentrycam/recorder"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const DEFAULT_LIMIT = 100

// Clip is one persisted (or aborted) recording session.
type Clip struct {
	ID      string
	Camera  string
	Path    string
	Start   time.Time
	Frames  int
	Fps     float64
	Bytes   int64
	Elapsed time.Duration
	Status  string
	Error   string `json:"Error,omitempty"`
}

// Catalog keeps a history of clips in SQLite so they can be listed without
// scanning the output directories.
type Catalog struct {
	db    *sql.DB
	mutex sync.Mutex
}

func New(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// one writer at a time, the persisters of every camera share it
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	return &Catalog{db: db}, nil
}

func (x *Catalog) Close() error {
	return x.db.Close()
}

func (x *Catalog) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS clips (
			id TEXT PRIMARY KEY,
			camera TEXT NOT NULL,
			path TEXT NOT NULL,
			start_ns INTEGER NOT NULL,
			frames INTEGER NOT NULL,
			fps REAL NOT NULL,
			bytes INTEGER NOT NULL DEFAULT 0,
			elapsed_ns INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clips_camera_start ON clips(camera, start_ns DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_clips_start ON clips(start_ns DESC)`,
	}
	for _, migration := range migrations {
		if _, err := x.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	log.Info().Str("component", "catalog").Msg("migrations complete")
	return nil
}

// Record stores a finished job. It is called from persister goroutines.
func (x *Catalog) Record(result recorder.Result) error {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	_, err := x.db.Exec(`INSERT INTO clips (id, camera, path, start_ns, frames, fps, bytes, elapsed_ns, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			frames = excluded.frames,
			bytes = excluded.bytes,
			elapsed_ns = excluded.elapsed_ns,
			status = excluded.status,
			error = excluded.error`,
		result.ID, result.Camera, result.Path, result.Start.UnixNano(), result.Frames, result.Fps,
		result.Bytes, int64(result.Elapsed), result.Status, result.Error)
	if err != nil {
		return fmt.Errorf("failed to record clip: %w", err)
	}
	return nil
}

// List returns the newest clips first. An empty camera lists every camera.
func (x *Catalog) List(camera string, limit int) ([]*Clip, error) {
	if limit <= 0 {
		limit = DEFAULT_LIMIT
	}
	query := `SELECT id, camera, path, start_ns, frames, fps, bytes, elapsed_ns, status, error FROM clips`
	args := []any{}
	if camera != "" {
		query += ` WHERE camera = ?`
		args = append(args, camera)
	}
	query += ` ORDER BY start_ns DESC LIMIT ?`
	args = append(args, limit)

	rows, err := x.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}
	defer rows.Close()

	clips := []*Clip{}
	for rows.Next() {
		var clip Clip
		var start, elapsed int64
		if err := rows.Scan(&clip.ID, &clip.Camera, &clip.Path, &start, &clip.Frames, &clip.Fps,
			&clip.Bytes, &elapsed, &clip.Status, &clip.Error); err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		clip.Start = time.Unix(0, start)
		clip.Elapsed = time.Duration(elapsed)
		clips = append(clips, &clip)
	}
	return clips, rows.Err()
}
