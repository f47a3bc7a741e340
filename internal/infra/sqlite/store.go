package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/entity"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeLayout is fixed-width so that stored timestamps compare correctly as
// text in range queries.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA foreign_keys = ON",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

// NewStore opens (creating if needed) the metadata database under dataDir
// and brings the schema up to date.
func NewStore(dataDir string) (*Store, error) {
	registerHook()

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection: WAL allows concurrent reads but only one writer.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveJob(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, status, video_source, interval, total_frames,
			processed_frames, created_at, updated_at, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id) DO UPDATE SET
			status = excluded.status,
			video_source = excluded.video_source,
			interval = excluded.interval,
			total_frames = excluded.total_frames,
			processed_frames = excluded.processed_frames,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			error_message = excluded.error_message`

	_, err := s.db.ExecContext(ctx, query,
		job.ID, string(job.Status), job.VideoSource, job.Interval,
		job.TotalFrames, job.ProcessedFrames,
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt), job.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*entity.Job, error) {
	query := `
		SELECT job_id, status, video_source, interval, total_frames,
			processed_frames, created_at, updated_at, error_message
		FROM jobs WHERE job_id = ?`

	job := &entity.Job{}
	var status, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID, &status, &job.VideoSource, &job.Interval,
		&job.TotalFrames, &job.ProcessedFrames,
		&createdAt, &updatedAt, &job.ErrorMessage,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	job.Status = entity.JobStatus(status)
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *Store) SaveFrame(ctx context.Context, frame *entity.FrameMetadata) error {
	query := `
		INSERT INTO frame_metadata (
			job_id, timestamp, frame_path, file_size, checksum, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		frame.JobID, frame.Timestamp, frame.FramePath,
		frame.FileSize, frame.Checksum, formatTime(frame.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save frame: %w", err)
	}
	return nil
}

func (s *Store) ListFramesByJob(ctx context.Context, jobID string) ([]entity.FrameMetadata, error) {
	query := `
		SELECT job_id, timestamp, frame_path, file_size, checksum, created_at
		FROM frame_metadata WHERE job_id = ?
		ORDER BY timestamp ASC`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list frames by job: %w", err)
	}
	defer rows.Close()

	return scanFrames(rows)
}

func (s *Store) ListRecentFrames(ctx context.Context, since time.Time, jobID string) ([]entity.FrameMetadata, error) {
	query := `
		SELECT job_id, timestamp, frame_path, file_size, checksum, created_at
		FROM frame_metadata WHERE created_at >= ?`
	args := []any{formatTime(since)}

	if jobID != "" {
		query += " AND job_id = ?"
		args = append(args, jobID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent frames: %w", err)
	}
	defer rows.Close()

	return scanFrames(rows)
}

func (s *Store) DeleteJobData(ctx context.Context, jobID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete job data: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM frame_metadata WHERE job_id = ?", jobID); err != nil {
		return fmt.Errorf("delete frames: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM jobs WHERE job_id = ?", jobID); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete job data: %w", err)
	}
	return nil
}

func scanFrames(rows *sql.Rows) ([]entity.FrameMetadata, error) {
	var frames []entity.FrameMetadata
	for rows.Next() {
		var f entity.FrameMetadata
		var createdAt string
		if err := rows.Scan(&f.JobID, &f.Timestamp, &f.FramePath, &f.FileSize, &f.Checksum, &createdAt); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		var err error
		if f.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

var _ port.MetadataStore = (*Store)(nil)
