package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/entity"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/port"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/metrics"
)

var (
	ErrInvalidInterval = errors.New("interval must be positive")
	ErrMissingSource   = errors.New("video source is required")
)

// recentFrameCap bounds how many of a completed job's newest frames are
// pushed into the cache.
const recentFrameCap = 10

type OrchestratorConfig struct {
	FramesBasePath    string
	MaxConcurrentJobs int
}

// Orchestrator owns the bounded worker pool. It drives the frame sampler,
// persists every state change to the metadata store, and keeps an in-memory
// handle per active job used only as a cancellation token registry — all
// status reads go through the store.
type Orchestrator struct {
	store   port.MetadataStore
	cache   port.FrameCache
	sampler port.FrameSampler
	logger  *zap.Logger

	framesBasePath string
	slots          chan struct{}

	mu      sync.Mutex
	handles map[string]context.CancelFunc

	wg sync.WaitGroup
}

func NewOrchestrator(
	store port.MetadataStore,
	cache port.FrameCache,
	sampler port.FrameSampler,
	logger *zap.Logger,
	cfg OrchestratorConfig,
) (*Orchestrator, error) {
	if err := os.MkdirAll(cfg.FramesBasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create frames base path: %w", err)
	}
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 5
	}
	return &Orchestrator{
		store:          store,
		cache:          cache,
		sampler:        sampler,
		logger:         logger,
		framesBasePath: cfg.FramesBasePath,
		slots:          make(chan struct{}, cfg.MaxConcurrentJobs),
		handles:        make(map[string]context.CancelFunc),
	}, nil
}

// SubmitJob persists a pending job and dispatches it to the pool. The call
// returns as soon as the record is durable; extraction runs asynchronously,
// waiting for a free slot when the pool is saturated.
func (o *Orchestrator) SubmitJob(ctx context.Context, videoSource string, interval float64) (string, error) {
	if videoSource == "" {
		return "", ErrMissingSource
	}
	if interval <= 0 {
		return "", ErrInvalidInterval
	}

	job := entity.NewJob(videoSource, interval)
	if err := o.store.SaveJob(ctx, job); err != nil {
		return "", fmt.Errorf("save job: %w", err)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.handles[job.ID] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go o.runJob(jobCtx, job)

	o.logger.Info("job submitted",
		zap.String("job_id", job.ID),
		zap.String("video_source", videoSource),
		zap.Float64("interval", interval),
	)
	return job.ID, nil
}

// GetJobStatus reads the job from the store; the handle map is never
// consulted for status.
func (o *Orchestrator) GetJobStatus(ctx context.Context, jobID string) (*entity.Job, error) {
	return o.store.GetJob(ctx, jobID)
}

// ListFrames returns the job's frames in timestamp order, or
// entity.ErrJobNotFound when the job does not exist.
func (o *Orchestrator) ListFrames(ctx context.Context, jobID string) ([]entity.FrameMetadata, error) {
	if _, err := o.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return o.store.ListFramesByJob(ctx, jobID)
}

// CancelJob is best-effort and idempotent: it cancels the pool handle if
// one is live, removes the artifact directory, deletes the job and frame
// rows, and evicts the job's cache entries. A job that already finished is
// still removed. The error return covers unexpected I/O failures only.
func (o *Orchestrator) CancelJob(ctx context.Context, jobID string) error {
	if _, err := o.store.GetJob(ctx, jobID); err != nil {
		return err
	}

	o.mu.Lock()
	if cancel, ok := o.handles[jobID]; ok {
		cancel()
		delete(o.handles, jobID)
	}
	o.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(o.framesBasePath, jobID)); err != nil {
		return fmt.Errorf("remove artifact directory: %w", err)
	}
	if err := o.store.DeleteJobData(ctx, jobID); err != nil {
		return fmt.Errorf("delete job data: %w", err)
	}
	o.cache.EvictJob(ctx, jobID)

	o.logger.Info("job cancelled and cleaned up", zap.String("job_id", jobID))
	return nil
}

// ActiveJobs reports the number of live pool handles, for health checks.
func (o *Orchestrator) ActiveJobs() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.handles)
}

// Wait blocks until all dispatched jobs have finished or ctx expires.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) runJob(ctx context.Context, job *entity.Job) {
	defer o.wg.Done()
	defer o.removeHandle(job.ID)

	// Bounded concurrency: wait here for a free slot. A cancel while queued
	// just drops the job; its rows are removed by CancelJob.
	select {
	case o.slots <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-o.slots }()

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	o.extract(ctx, job)
}

func (o *Orchestrator) extract(ctx context.Context, job *entity.Job) {
	tracer := otel.Tracer("orchestrator")
	ctx, span := tracer.Start(ctx, "Orchestrator.ExtractFrames")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.video_source", job.VideoSource),
	)

	log := o.logger.With(zap.String("job_id", job.ID))
	start := time.Now()

	job.MarkProcessing()
	if err := o.store.SaveJob(ctx, job); err != nil {
		log.Error("failed to update job to processing", zap.Error(err))
		return
	}

	outputDir := filepath.Join(o.framesBasePath, job.ID)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		o.failJob(ctx, job, fmt.Errorf("create job directory: %w", err), log)
		return
	}

	processed := 0
	var tail []entity.FrameMetadata
	total, err := o.sampler.SampleFrames(ctx, job, outputDir, func(frame entity.FrameMetadata) error {
		if err := o.store.SaveFrame(ctx, &frame); err != nil {
			return fmt.Errorf("save frame: %w", err)
		}
		processed++
		job.Progress(processed)
		if err := o.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		tail = append(tail, frame)
		if len(tail) > recentFrameCap {
			tail = tail[1:]
		}
		metrics.FramesExtractedTotal.Inc()
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// CancelJob owns the cleanup; nothing left to persist.
			log.Info("job cancelled during extraction", zap.Int("processed_frames", processed))
			metrics.JobsProcessedTotal.WithLabelValues("cancelled").Inc()
			return
		}
		o.failJob(ctx, job, err, log)
		return
	}

	job.MarkCompleted(total)
	if err := o.store.SaveJob(ctx, job); err != nil {
		log.Error("failed to update job to completed", zap.Error(err))
		return
	}

	o.cache.CacheRecentFrames(ctx, tail)

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.JobDuration.Observe(time.Since(start).Seconds())

	log.Info("job completed",
		zap.Int("total_frames", total),
		zap.Duration("duration", time.Since(start)),
	)
}

func (o *Orchestrator) failJob(ctx context.Context, job *entity.Job, cause error, log *zap.Logger) {
	job.MarkFailed(cause.Error())
	if err := o.store.SaveJob(ctx, job); err != nil {
		log.Error("failed to update job to failed", zap.Error(err))
	}
	metrics.JobsProcessedTotal.WithLabelValues("failed").Inc()
	log.Error("job failed",
		zap.Int("processed_frames", job.ProcessedFrames),
		zap.Error(cause),
	)
}

func (o *Orchestrator) removeHandle(jobID string) {
	o.mu.Lock()
	delete(o.handles, jobID)
	o.mu.Unlock()
}
