package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/entity"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/port"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/metrics"
)

// DashboardService answers recent-frames queries cache-aside: a non-empty
// cache hit is returned as-is, a miss falls through to the store and
// backfills the cache. Nothing invalidates the cache when the store changes
// outside this path.
type DashboardService struct {
	store  port.MetadataStore
	cache  port.FrameCache
	logger *zap.Logger
}

func NewDashboardService(store port.MetadataStore, cache port.FrameCache, logger *zap.Logger) *DashboardService {
	return &DashboardService{store: store, cache: cache, logger: logger}
}

func (s *DashboardService) RecentFrames(ctx context.Context, sinceMinutes int, jobID string) ([]entity.FrameMetadata, error) {
	if cached := s.cache.RecentFrames(ctx, jobID); len(cached) > 0 {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		s.logger.Debug("recent frames cache hit", zap.String("job_id", jobID), zap.Int("count", len(cached)))
		return cached, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	s.logger.Debug("recent frames cache miss, querying store", zap.String("job_id", jobID))

	since := time.Now().UTC().Add(-time.Duration(sinceMinutes) * time.Minute)
	frames, err := s.store.ListRecentFrames(ctx, since, jobID)
	if err != nil {
		return nil, fmt.Errorf("list recent frames: %w", err)
	}

	if len(frames) > 0 {
		s.cache.CacheRecentFrames(ctx, frames)
	}
	return frames, nil
}
