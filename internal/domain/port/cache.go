package port

import (
	"context"
	"time"

	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/entity"
)

// FrameCache is best-effort acceleration in front of the metadata store.
// The primitive operations report errors; the frame-level operations swallow
// them and degrade to a miss or no-op, so a broken cache never fails the
// surrounding operation.
type FrameCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get unmarshals the cached value into dest and reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, key string) error

	// CacheRecentFrames writes one entry per frame keyed by (job id,
	// timestamp) with the default TTL, plus one aggregate entry holding the
	// whole batch with a short TTL. The two writes expire independently.
	CacheRecentFrames(ctx context.Context, frames []entity.FrameMetadata)
	// RecentFrames returns cached frames for the job sorted by timestamp
	// descending, or the aggregate batch when jobID is empty. A miss or any
	// backend failure yields nil.
	RecentFrames(ctx context.Context, jobID string) []entity.FrameMetadata
	// EvictJob drops all per-frame entries belonging to the job.
	EvictJob(ctx context.Context, jobID string)

	// Backend names the active backend ("redis" or "memory").
	Backend() string
}
