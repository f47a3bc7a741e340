package video

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/domain/port"
)

const (
	markerPrefix = 0xff
	markerSOI    = 0xd8
	markerEOI    = 0xd9
)

// frameScanner splits a concatenated-JPEG byte stream into individual
// frames. JPEG entropy coding stuffs 0xFF bytes as 0xFF00, so scanning for
// the raw SOI/EOI markers is sufficient for MJPEG output.
type frameScanner struct {
	r *bufio.Reader
}

func (s *frameScanner) next() ([]byte, error) {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != markerPrefix {
			continue
		}
		nb, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if nb == markerSOI {
			break
		}
	}

	frame := []byte{markerPrefix, markerSOI}
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		frame = append(frame, b)
		if b != markerPrefix {
			continue
		}
		nb, err := s.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		frame = append(frame, nb)
		if nb == markerEOI {
			return frame, nil
		}
	}
}

// MJPEGBackend reads motion-JPEG files directly, without an external
// decoder. It is the last-resort backend: it only accepts local files that
// start with a JPEG start-of-image marker, and it cannot recover the frame
// rate, so sampling falls back to the default stride.
type MJPEGBackend struct{}

func NewMJPEGBackend() *MJPEGBackend {
	return &MJPEGBackend{}
}

func (b *MJPEGBackend) Name() string { return "mjpeg" }

func (b *MJPEGBackend) Open(_ context.Context, source string) (port.FrameSource, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	r := bufio.NewReaderSize(f, 1<<20)
	head, err := r.Peek(2)
	if err != nil || !bytes.Equal(head, []byte{markerPrefix, markerSOI}) {
		_ = f.Close()
		return nil, fmt.Errorf("%s is not an mjpeg stream", source)
	}

	return &mjpegSource{f: f, scanner: &frameScanner{r: r}}, nil
}

type mjpegSource struct {
	f       *os.File
	scanner *frameScanner
}

func (s *mjpegSource) FrameRate() float64 { return 0 }

func (s *mjpegSource) ReadFrame() ([]byte, error) {
	return s.scanner.next()
}

func (s *mjpegSource) Close() error {
	return s.f.Close()
}
