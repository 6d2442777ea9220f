package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// FFmpegConfig selects the capture device or file
type FFmpegConfig struct {
	Binary string // default "ffmpeg"
	Format string // input demuxer, e.g. "v4l2", "avfoundation", "dshow"; empty for files
	Input  string // device path or file
}

// FFmpegArgs builds the command line that decodes Input to an MJPEG stream on stdout
func FFmpegArgs(cfg FFmpegConfig) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if cfg.Format != "" {
		args = append(args, "-f", cfg.Format)
	}
	return append(args, "-i", cfg.Input, "-f", "image2pipe", "-vcodec", "mjpeg", "-")
}

// FFmpegSource reads frames from an ffmpeg subprocess
type FFmpegSource struct {
	*StreamSource
	cmd    *exec.Cmd
	stderr *syncBuffer
	logger *slog.Logger
}

// syncBuffer guards stderr, which exec writes from its own goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// OpenFFmpeg starts ffmpeg for cfg. Close stops the process.
func OpenFFmpeg(cfg FFmpegConfig, logger *slog.Logger) (*FFmpegSource, error) {
	bin := cfg.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	if cfg.Input == "" {
		return nil, domain.ErrFrameCapture.WithError(errors.New("no camera input configured"))
	}

	cmd := exec.Command(bin, FFmpegArgs(cfg)...)
	stderr := &syncBuffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, domain.ErrFrameCapture.WithError(fmt.Errorf("ffmpeg stdout pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return nil, domain.ErrFrameCapture.WithError(fmt.Errorf("start ffmpeg: %w", err))
	}

	logger.Info("camera opened",
		"input", cfg.Input,
		"format", cfg.Format,
		"pid", cmd.Process.Pid,
	)

	return &FFmpegSource{
		StreamSource: NewStreamSource(stdout),
		cmd:          cmd,
		stderr:       stderr,
		logger:       logger,
	}, nil
}

// Next logs ffmpeg's stderr when a frame cannot be read
func (s *FFmpegSource) Next(ctx context.Context) (image.Image, error) {
	img, err := s.StreamSource.Next(ctx)
	if err != nil {
		if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
			s.logger.Error("ffmpeg reported errors", "stderr", msg)
		}
	}
	return img, err
}

func (s *FFmpegSource) Close() error {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.StreamSource.Close()
	// Wait reaps the process; the kill makes its error expected
	_ = s.cmd.Wait()
	return nil
}
