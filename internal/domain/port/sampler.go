package port

import (
	"context"

	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/entity"
)

// FrameSource reads encoded still images from an opened video source, one
// frame per call, in presentation order.
type FrameSource interface {
	// FrameRate returns the source frame rate in frames per second, or 0
	// when it is unknown.
	FrameRate() float64
	// ReadFrame returns the next frame as encoded image bytes, or io.EOF
	// once the source is exhausted.
	ReadFrame() ([]byte, error)
	Close() error
}

// DecodeBackend is one strategy for opening a video source. The sampler
// tries its backends in order and surfaces one aggregated failure when all
// of them refuse the source.
type DecodeBackend interface {
	Name() string
	Open(ctx context.Context, source string) (FrameSource, error)
}

// FrameSampler walks a video source and emits one FrameMetadata per sampled
// frame, writing the frame artifact under outputDir. emit is called after
// the artifact is on disk; returning an error from it aborts the walk. The
// returned count is the number of frames emitted before stopping.
type FrameSampler interface {
	SampleFrames(ctx context.Context, job *entity.Job, outputDir string, emit func(entity.FrameMetadata) error) (int, error)
}
