package capture

import (
	"bufio"
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"io"
	"sync"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const (
	megabyte       = 1024 * 1024
	maxFrameSize   = 64 * megabyte
	initialBufSize = megabyte
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// FrameSource yields frames one at a time. Next blocks until a frame is
// available; a stalled device blocks the caller.
type FrameSource interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// SplitJPEG is a bufio.SplitFunc that extracts whole JPEG images from an
// MJPEG byte stream using the SOI (FFD8) and EOI (FFD9) markers
func SplitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], jpegEOI)
	if end == -1 {
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// StreamSource decodes JPEG frames from an MJPEG stream
type StreamSource struct {
	mu      sync.Mutex
	r       io.ReadCloser
	scanner *bufio.Scanner
}

func NewStreamSource(r io.ReadCloser) *StreamSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialBufSize), maxFrameSize)
	scanner.Split(SplitJPEG)
	return &StreamSource{r: r, scanner: scanner}
}

func (s *StreamSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scanner.Scan() {
		err := s.scanner.Err()
		if err == nil {
			err = io.EOF
		}
		return nil, domain.ErrFrameCapture.WithError(err)
	}

	img, err := jpeg.Decode(bytes.NewReader(s.scanner.Bytes()))
	if err != nil {
		return nil, domain.ErrFrameCapture.WithError(err)
	}
	return img, nil
}

func (s *StreamSource) Close() error {
	return s.r.Close()
}

// SliceSource replays a fixed list of frames, then fails like a disconnected camera
type SliceSource struct {
	mu     sync.Mutex
	frames []image.Image
	pos    int
	closed bool
}

func NewSliceSource(frames ...image.Image) *SliceSource {
	return &SliceSource{frames: frames}
}

func (s *SliceSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.pos >= len(s.frames) {
		return nil, domain.ErrFrameCapture.WithError(io.EOF)
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *SliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
