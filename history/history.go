// Package history keeps a SQLite record of cut jobs.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"cortado/internal/logging"
	"cortado/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned by Get for an unknown job id.
var ErrNotFound = errors.New("job not found")

// interruptedReason is stored for jobs that were active when the process died.
const interruptedReason = "interrupted by restart"

// Job is one row of the history.
type Job struct {
	ID              string     `json:"id"`
	SourceName      string     `json:"source_name"`
	SegmentLength   int        `json:"segment_length"`
	DurationSeconds float64    `json:"duration_seconds"`
	Phase           string     `json:"phase"`
	ClipCount       int        `json:"clip_count"`
	ArtifactCount   int        `json:"artifact_count"`
	Missing         []string   `json:"missing,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// Store is the job history database.
type Store struct {
	conn *sql.DB
	log  logrus.FieldLogger
}

// Open opens or creates the database at dbPath, applies pending
// migrations and marks jobs left active by a previous run as failed.
func Open(dbPath string, log logrus.FieldLogger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	s := &Store{conn: conn, log: logging.WithComponent(log, "history")}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if n, err := s.markInterrupted(); err != nil {
		s.log.WithError(err).Warn("Failed to mark interrupted jobs")
	} else if n > 0 {
		s.log.WithField("count", n).Warn("Marked interrupted jobs as failed")
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	migrations, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range migrations {
		if m.IsDir() {
			continue
		}
		name := m.Name()

		if s.isMigrationApplied(name) {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}

		s.log.WithField("name", name).Info("Applied migration")
	}
	return nil
}

func (s *Store) isMigrationApplied(name string) bool {
	var exists int
	err := s.conn.QueryRow("SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&exists)
	if err != nil {
		return false
	}

	var applied int
	err = s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

func (s *Store) markInterrupted() (int64, error) {
	res, err := s.conn.Exec(
		`UPDATE jobs SET phase = ?, error = ?, finished_at = ? WHERE phase NOT IN (?, ?)`,
		string(models.PhaseFailed), interruptedReason, formatTime(time.Now()),
		string(models.PhaseDone), string(models.PhaseFailed),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Record inserts or updates the row for state.JobID. Snapshots without a
// job id are ignored.
func (s *Store) Record(ctx context.Context, state models.JobState) error {
	if state.JobID == "" {
		return nil
	}

	created := state.StartedAt
	if created.IsZero() {
		created = time.Now()
	}
	var finished any
	if state.Phase.IsTerminal() {
		at := state.UpdatedAt
		if at.IsZero() {
			at = time.Now()
		}
		finished = formatTime(at)
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO jobs (id, source_name, segment_length, duration_seconds, phase,
			clip_count, artifact_count, missing, error, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			duration_seconds = excluded.duration_seconds,
			phase = excluded.phase,
			clip_count = excluded.clip_count,
			artifact_count = excluded.artifact_count,
			missing = excluded.missing,
			error = excluded.error,
			finished_at = excluded.finished_at`,
		state.JobID, state.SourceName, state.SegmentLength, state.DurationSeconds,
		string(state.Phase), state.ClipCount, len(state.Artifacts),
		encodeMissing(state.Missing), state.LastError,
		formatTime(created), finished,
	)
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", state.JobID, err)
	}
	return nil
}

// List returns up to limit jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, source_name, segment_length, duration_seconds, phase,
			clip_count, artifact_count, missing, error, created_at, finished_at
		FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// Get returns one job by id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, source_name, segment_length, duration_seconds, phase,
			clip_count, artifact_count, missing, error, created_at, finished_at
		FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return job, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*Job, error) {
	var (
		job      Job
		missing  string
		created  string
		finished sql.NullString
	)
	err := row.Scan(&job.ID, &job.SourceName, &job.SegmentLength, &job.DurationSeconds,
		&job.Phase, &job.ClipCount, &job.ArtifactCount, &missing, &job.Error,
		&created, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	if missing != "" {
		if err := json.Unmarshal([]byte(missing), &job.Missing); err != nil {
			return nil, fmt.Errorf("failed to decode missing clips: %w", err)
		}
	}
	if job.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return nil, err
		}
		job.FinishedAt = &t
	}
	return &job, nil
}

func encodeMissing(names []string) string {
	if len(names) == 0 {
		return ""
	}
	data, _ := json.Marshal(names)
	return string(data)
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t, nil
}
