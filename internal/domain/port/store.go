package port

import (
	"context"
	"time"

	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/entity"
)

// MetadataStore is the single source of truth for jobs and frame metadata.
// It must be safe for concurrent callers operating on different job ids;
// calls touching the same job are serialized by the orchestrator.
type MetadataStore interface {
	// SaveJob upserts the full row by job id. There is no partial update:
	// callers always hold a freshly read job before mutating it.
	SaveJob(ctx context.Context, job *entity.Job) error
	// GetJob returns entity.ErrJobNotFound when the id is unknown.
	GetJob(ctx context.Context, jobID string) (*entity.Job, error)
	// SaveFrame appends one frame record; frames are never updated.
	SaveFrame(ctx context.Context, frame *entity.FrameMetadata) error
	// ListFramesByJob returns the job's frames ordered by timestamp ascending.
	ListFramesByJob(ctx context.Context, jobID string) ([]entity.FrameMetadata, error)
	// ListRecentFrames returns frames created at or after since, newest
	// first. An empty jobID means all jobs.
	ListRecentFrames(ctx context.Context, since time.Time, jobID string) ([]entity.FrameMetadata, error)
	// DeleteJobData removes the job row and all its frame rows as one
	// logical unit.
	DeleteJobData(ctx context.Context, jobID string) error
}
