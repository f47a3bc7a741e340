package video

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/entity"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/port"
)

const (
	// defaultStride is used when the source frame rate is unavailable.
	defaultStride = 30

	checksumChunkSize = 32 * 1024
)

// Sampler walks a video source frame by frame and emits a FrameMetadata for
// every stride-th frame, after writing the frame artifact to disk. It is
// single-threaded per job, so emitted timestamps are strictly increasing.
type Sampler struct {
	backends []port.DecodeBackend
	logger   *zap.Logger
}

func NewSampler(logger *zap.Logger, backends ...port.DecodeBackend) *Sampler {
	return &Sampler{backends: backends, logger: logger}
}

func (s *Sampler) SampleFrames(ctx context.Context, job *entity.Job, outputDir string, emit func(entity.FrameMetadata) error) (int, error) {
	src, err := s.open(ctx, job.VideoSource)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	fps := src.FrameRate()
	stride := int(math.Round(fps * job.Interval))
	if stride <= 0 {
		stride = defaultStride
	}

	log := s.logger.With(zap.String("job_id", job.ID))
	log.Info("sampling started",
		zap.Float64("fps", fps),
		zap.Int("stride", stride),
	)

	extracted := 0
	for index := 0; ; index++ {
		// Cooperative cancellation checkpoint: a cancelled job stops at the
		// next frame boundary, never mid-write.
		select {
		case <-ctx.Done():
			return extracted, ctx.Err()
		default:
		}

		data, err := src.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return extracted, fmt.Errorf("read frame %d: %w", index, err)
		}
		if index%stride != 0 {
			continue
		}

		timestamp := float64(index)
		if fps > 0 {
			timestamp = float64(index) / fps
		}

		framePath := filepath.Join(outputDir, fmt.Sprintf("%.2f.jpg", timestamp))
		if err := os.WriteFile(framePath, data, 0o644); err != nil {
			return extracted, fmt.Errorf("write frame artifact: %w", err)
		}

		checksum, size, err := checksumFile(framePath)
		if err != nil {
			return extracted, fmt.Errorf("checksum frame artifact: %w", err)
		}

		frame := entity.FrameMetadata{
			JobID:     job.ID,
			Timestamp: timestamp,
			FramePath: framePath,
			FileSize:  size,
			Checksum:  checksum,
			CreatedAt: time.Now().UTC(),
		}
		if err := emit(frame); err != nil {
			return extracted, err
		}
		extracted++

		log.Debug("extracted frame", zap.Float64("timestamp", timestamp))
	}

	return extracted, nil
}

// open tries each decode backend in order and aggregates their failures
// into one error when none can handle the source.
func (s *Sampler) open(ctx context.Context, source string) (port.FrameSource, error) {
	var attempts []string
	for _, b := range s.backends {
		src, err := b.Open(ctx, source)
		if err == nil {
			s.logger.Debug("opened video source",
				zap.String("backend", b.Name()),
				zap.String("source", source),
			)
			return src, nil
		}
		attempts = append(attempts, fmt.Sprintf("%s: %v", b.Name(), err))
	}
	return nil, fmt.Errorf("no decode backend could open %s (%s)", source, strings.Join(attempts, "; "))
}

func checksumFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, checksumChunkSize)
	size, err := io.CopyBuffer(h, f, buf)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

var _ port.FrameSampler = (*Sampler)(nil)
