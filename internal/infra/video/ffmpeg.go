package video

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/port"
)

// FFmpegBackend decodes any source ffmpeg can open by streaming it as
// motion-JPEG over a pipe, one encoded frame per read. ffprobe supplies the
// frame rate; when probing fails the sampler falls back to its default
// stride.
type FFmpegBackend struct {
	logger *zap.Logger
}

func NewFFmpegBackend(logger *zap.Logger) *FFmpegBackend {
	return &FFmpegBackend{logger: logger}
}

func (b *FFmpegBackend) Name() string { return "ffmpeg" }

func (b *FFmpegBackend) Open(ctx context.Context, source string) (port.FrameSource, error) {
	if !isRemote(source) {
		if _, err := os.Stat(source); err != nil {
			return nil, fmt.Errorf("video source does not exist: %s", source)
		}
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	fps := b.probeFrameRate(ctx, source)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", source,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &ffmpegSource{
		cmd:     cmd,
		stderr:  &stderr,
		scanner: &frameScanner{r: bufio.NewReaderSize(stdout, 1<<20)},
		fps:     fps,
	}, nil
}

func (b *FFmpegBackend) probeFrameRate(ctx context.Context, source string) float64 {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		source,
	)
	output, err := cmd.Output()
	if err != nil {
		b.logger.Warn("ffprobe failed, frame rate unknown", zap.String("source", source), zap.Error(err))
		return 0
	}
	return parseFrameRate(strings.TrimSpace(string(output)))
}

// parseFrameRate accepts ffprobe's "num/den" rational or a plain decimal.
func parseFrameRate(s string) float64 {
	if num, den, found := strings.Cut(s, "/"); found {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "rtsp://")
}

type ffmpegSource struct {
	cmd      *exec.Cmd
	stderr   *bytes.Buffer
	scanner  *frameScanner
	fps      float64
	frames   int
	finished bool
}

func (s *ffmpegSource) FrameRate() float64 { return s.fps }

func (s *ffmpegSource) ReadFrame() ([]byte, error) {
	frame, err := s.scanner.next()
	if err == io.EOF {
		s.finished = true
		waitErr := s.cmd.Wait()
		// A stream that yielded nothing means ffmpeg could not decode the
		// source at all, which is a job failure rather than a clean end.
		if s.frames == 0 {
			return nil, fmt.Errorf("ffmpeg produced no frames: %v (%s)", waitErr, lastLine(s.stderr.String()))
		}
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("read mjpeg stream: %w", err)
	}
	s.frames++
	return frame, nil
}

func (s *ffmpegSource) Close() error {
	if s.finished {
		return nil
	}
	_ = s.cmd.Process.Kill()
	_ = s.cmd.Wait()
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
