package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/entity"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/port"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/metrics"
)

const (
	recentFramesKey = "recent_frames"
	// recentFramesTTL is deliberately shorter than the per-frame default;
	// the aggregate entry and the per-frame entries expire independently.
	recentFramesTTL = 5 * time.Minute
)

type Config struct {
	// RedisAddr empty means skip the external backend entirely.
	RedisAddr  string
	RedisDB    int
	DefaultTTL time.Duration
}

// FrameCache layers the frame-level operations over one of two backends.
// The external backend is attempted once at construction; on failure the
// in-process map serves for the rest of the process lifetime.
type FrameCache struct {
	backend    backend
	defaultTTL time.Duration
	logger     *zap.Logger
}

func New(ctx context.Context, cfg Config, logger *zap.Logger) *FrameCache {
	c := &FrameCache{
		defaultTTL: cfg.DefaultTTL,
		logger:     logger,
	}

	if cfg.RedisAddr != "" {
		rb, err := newRedisBackend(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err == nil {
			logger.Info("connected to redis cache", zap.String("addr", cfg.RedisAddr))
			c.backend = rb
			return c
		}
		logger.Warn("redis unavailable, using in-memory cache", zap.Error(err))
	}

	c.backend = newMemoryBackend()
	return c
}

func (c *FrameCache) Backend() string {
	return c.backend.Name()
}

func (c *FrameCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.backend.Set(ctx, key, string(data), ttl)
}

func (c *FrameCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	value, ok, err := c.backend.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return false, fmt.Errorf("unmarshal cache value: %w", err)
	}
	return true, nil
}

func (c *FrameCache) Delete(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, key)
}

func (c *FrameCache) CacheRecentFrames(ctx context.Context, frames []entity.FrameMetadata) {
	for _, frame := range frames {
		if err := c.Set(ctx, frameKey(frame.JobID, frame.Timestamp), frame, c.defaultTTL); err != nil {
			c.logger.Warn("failed to cache frame", zap.String("job_id", frame.JobID), zap.Error(err))
		}
	}
	if err := c.Set(ctx, recentFramesKey, frames, recentFramesTTL); err != nil {
		c.logger.Warn("failed to cache recent frames batch", zap.Error(err))
	}
}

func (c *FrameCache) RecentFrames(ctx context.Context, jobID string) []entity.FrameMetadata {
	if jobID == "" {
		var frames []entity.FrameMetadata
		ok, err := c.Get(ctx, recentFramesKey, &frames)
		if err != nil {
			c.logger.Warn("failed to read recent frames batch", zap.Error(err))
			return nil
		}
		if !ok {
			return nil
		}
		return frames
	}

	keys, err := c.backend.Keys(ctx, jobPattern(jobID))
	if err != nil {
		c.logger.Warn("failed to enumerate frame keys", zap.String("job_id", jobID), zap.Error(err))
		return nil
	}

	var frames []entity.FrameMetadata
	for _, key := range keys {
		var frame entity.FrameMetadata
		ok, err := c.Get(ctx, key, &frame)
		if err != nil || !ok {
			continue
		}
		frames = append(frames, frame)
	}
	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Timestamp > frames[j].Timestamp
	})
	return frames
}

func (c *FrameCache) EvictJob(ctx context.Context, jobID string) {
	keys, err := c.backend.Keys(ctx, jobPattern(jobID))
	if err != nil {
		c.logger.Warn("failed to enumerate keys for eviction", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	for _, key := range keys {
		if err := c.backend.Delete(ctx, key); err != nil {
			c.logger.Warn("failed to evict cache key", zap.String("key", key), zap.Error(err))
		}
	}
	metrics.CacheEvictionsTotal.Add(float64(len(keys)))
}

func frameKey(jobID string, timestamp float64) string {
	return fmt.Sprintf("frame:%s:%.2f", jobID, timestamp)
}

func jobPattern(jobID string) string {
	return fmt.Sprintf("frame:%s:*", jobID)
}

var _ port.FrameCache = (*FrameCache)(nil)
