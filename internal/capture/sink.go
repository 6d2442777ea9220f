package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
)

const sinkJPEGQuality = 80

// Sink receives annotated frames for display. Sinks never affect attendance.
type Sink interface {
	Show(ctx context.Context, frame image.Image) error
}

type NopSink struct{}

func (NopSink) Show(context.Context, image.Image) error { return nil }

// JPEGFileSink keeps the latest frame at Path, replacing it atomically so a
// viewer polling the file never reads a partial image
type JPEGFileSink struct {
	Path string
}

func (s JPEGFileSink) Show(_ context.Context, frame image.Image) error {
	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".frame-*.jpg")
	if err != nil {
		return fmt.Errorf("create frame file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := jpeg.Encode(tmp, frame, &jpeg.Options{Quality: sinkJPEGQuality}); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close frame file: %w", err)
	}
	return os.Rename(tmp.Name(), s.Path)
}

// FrameBroadcaster fans a JPEG-encoded frame out to live viewers
type FrameBroadcaster interface {
	BroadcastFrame(jpeg []byte)
	HasViewers() bool
}

// HubSink publishes frames to websocket viewers. Encoding is skipped when
// nobody is watching.
type HubSink struct {
	Hub FrameBroadcaster
}

func (s HubSink) Show(_ context.Context, frame image.Image) error {
	if !s.Hub.HasViewers() {
		return nil
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: sinkJPEGQuality}); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	s.Hub.BroadcastFrame(buf.Bytes())
	return nil
}

// MultiSink shows a frame on every sink, returning the first error
type MultiSink []Sink

func (m MultiSink) Show(ctx context.Context, frame image.Image) error {
	var first error
	for _, s := range m {
		if err := s.Show(ctx, frame); err != nil && first == nil {
			first = err
		}
	}
	return first
}
