package usecase

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/entity"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/port"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/cache"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/sqlite"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/video"
)

// fakeBackend serves synthetic frames without touching any real decoder.
// frames <= 0 makes Open refuse the source, so jobs fail deterministically.
// blockAfter > 0 makes ReadFrame block on the job context after that many
// frames, holding the worker in flight for cancellation tests.
type fakeBackend struct {
	fps        float64
	frames     int
	blockAfter int
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Open(ctx context.Context, source string) (port.FrameSource, error) {
	if b.frames <= 0 {
		return nil, os.ErrNotExist
	}
	return &fakeSource{ctx: ctx, fps: b.fps, remaining: b.frames, blockAfter: b.blockAfter}, nil
}

type fakeSource struct {
	ctx        context.Context
	fps        float64
	remaining  int
	blockAfter int
	served     int
}

func (s *fakeSource) FrameRate() float64 { return s.fps }

func (s *fakeSource) ReadFrame() ([]byte, error) {
	if s.blockAfter > 0 && s.served >= s.blockAfter {
		<-s.ctx.Done()
		return nil, s.ctx.Err()
	}
	if s.remaining == 0 {
		return nil, io.EOF
	}
	s.remaining--
	s.served++
	return []byte("frame"), nil
}

func (s *fakeSource) Close() error { return nil }

type fixture struct {
	orchestrator *Orchestrator
	store        *sqlite.Store
	cache        *cache.FrameCache
	framesDir    string
}

func newFixture(t *testing.T, backend port.DecodeBackend) *fixture {
	t.Helper()

	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	frameCache := cache.New(context.Background(), cache.Config{DefaultTTL: time.Hour}, zap.NewNop())
	sampler := video.NewSampler(zap.NewNop(), backend)
	framesDir := t.TempDir()

	orchestrator, err := NewOrchestrator(store, frameCache, sampler, zap.NewNop(), OrchestratorConfig{
		FramesBasePath:    framesDir,
		MaxConcurrentJobs: 2,
	})
	require.NoError(t, err)

	return &fixture{orchestrator: orchestrator, store: store, cache: frameCache, framesDir: framesDir}
}

func (f *fixture) waitForStatus(t *testing.T, jobID string, want entity.JobStatus) *entity.Job {
	t.Helper()
	var job *entity.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = f.store.GetJob(context.Background(), jobID)
		return err == nil && job.Status == want
	}, 5*time.Second, 10*time.Millisecond, "job never reached status %s", want)
	return job
}

func TestSubmitJobValidation(t *testing.T) {
	f := newFixture(t, &fakeBackend{fps: 1, frames: 1})

	_, err := f.orchestrator.SubmitJob(context.Background(), "", 5.0)
	assert.ErrorIs(t, err, ErrMissingSource)

	_, err = f.orchestrator.SubmitJob(context.Background(), "video.mp4", 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = f.orchestrator.SubmitJob(context.Background(), "video.mp4", -1)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestJobCompletes(t *testing.T) {
	// 60 frames at 2 fps, sampled every 5 seconds: 6 frames.
	f := newFixture(t, &fakeBackend{fps: 2, frames: 60})
	ctx := context.Background()

	jobID, err := f.orchestrator.SubmitJob(ctx, "video.mp4", 5.0)
	require.NoError(t, err)

	job := f.waitForStatus(t, jobID, entity.JobStatusCompleted)
	assert.Equal(t, 6, job.TotalFrames)
	assert.Equal(t, 6, job.ProcessedFrames)
	assert.Empty(t, job.ErrorMessage)

	frames, err := f.orchestrator.ListFrames(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, frames, 6)
	for i, want := range []float64{0, 5, 10, 15, 20, 25} {
		assert.Equal(t, want, frames[i].Timestamp)
		assert.FileExists(t, frames[i].FramePath)
	}

	require.NoError(t, f.orchestrator.Wait(ctx))

	// Completion pushes the newest frames into the cache.
	cached := f.cache.RecentFrames(ctx, jobID)
	assert.Len(t, cached, 6)
}

func TestJobFailsOnUnreadableSource(t *testing.T) {
	f := newFixture(t, &fakeBackend{frames: 0})
	ctx := context.Background()

	jobID, err := f.orchestrator.SubmitJob(ctx, "missing.mp4", 5.0)
	require.NoError(t, err)

	job := f.waitForStatus(t, jobID, entity.JobStatusFailed)
	assert.NotEmpty(t, job.ErrorMessage)
	assert.Contains(t, job.ErrorMessage, "missing.mp4")

	frames, err := f.orchestrator.ListFrames(ctx, jobID)
	require.NoError(t, err)
	assert.Empty(t, frames, "a failed open leaves no frame rows behind")
}

func TestCancelJobRemovesAllTraces(t *testing.T) {
	// The source serves three frames and then parks on the job context, so
	// cancellation always lands with the worker in flight.
	f := newFixture(t, &fakeBackend{fps: 1, frames: 100, blockAfter: 3})
	ctx := context.Background()

	jobID, err := f.orchestrator.SubmitJob(ctx, "video.mp4", 1.0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := f.store.GetJob(ctx, jobID)
		return err == nil && job.ProcessedFrames == 3
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, f.orchestrator.CancelJob(ctx, jobID))

	_, err = f.orchestrator.GetJobStatus(ctx, jobID)
	assert.ErrorIs(t, err, entity.ErrJobNotFound)

	frames, err := f.store.ListFramesByJob(ctx, jobID)
	require.NoError(t, err)
	assert.Empty(t, frames)

	assert.NoDirExists(t, filepath.Join(f.framesDir, jobID))
	assert.Empty(t, f.cache.RecentFrames(ctx, jobID))

	require.NoError(t, f.orchestrator.Wait(ctx))
}

func TestCancelUnknownJob(t *testing.T) {
	f := newFixture(t, &fakeBackend{fps: 1, frames: 1})
	err := f.orchestrator.CancelJob(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, entity.ErrJobNotFound)
}

func TestConcurrentJobsAreIsolated(t *testing.T) {
	f := newFixture(t, &fakeBackend{fps: 2, frames: 20})
	ctx := context.Background()

	first, err := f.orchestrator.SubmitJob(ctx, "a.mp4", 5.0)
	require.NoError(t, err)
	second, err := f.orchestrator.SubmitJob(ctx, "b.mp4", 5.0)
	require.NoError(t, err)

	f.waitForStatus(t, first, entity.JobStatusCompleted)
	f.waitForStatus(t, second, entity.JobStatusCompleted)

	framesA, err := f.orchestrator.ListFrames(ctx, first)
	require.NoError(t, err)
	framesB, err := f.orchestrator.ListFrames(ctx, second)
	require.NoError(t, err)

	require.Len(t, framesA, 2)
	require.Len(t, framesB, 2)
	for _, frame := range framesA {
		assert.Equal(t, first, frame.JobID)
	}
	for _, frame := range framesB {
		assert.Equal(t, second, frame.JobID)
	}

	require.NoError(t, f.orchestrator.Wait(ctx))
}

func TestListFramesUnknownJob(t *testing.T) {
	f := newFixture(t, &fakeBackend{fps: 1, frames: 1})
	_, err := f.orchestrator.ListFrames(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, entity.ErrJobNotFound)
}
