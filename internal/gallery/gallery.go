package gallery

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

// Extensions lists the reference image types picked up from the gallery directory
var Extensions = []string{".jpg", ".jpeg", ".png"}

// Gallery is the immutable, ordered set of enrolled identities for a session
type Gallery struct {
	entries []domain.GalleryEntry
}

func New(entries []domain.GalleryEntry) *Gallery {
	cp := make([]domain.GalleryEntry, len(entries))
	copy(cp, entries)
	return &Gallery{entries: cp}
}

// Entries returns the entries in load order. Callers must not modify the slice.
func (g *Gallery) Entries() []domain.GalleryEntry {
	return g.entries
}

func (g *Gallery) Len() int {
	return len(g.entries)
}

func (g *Gallery) Identities() []string {
	out := make([]string, len(g.entries))
	for i, e := range g.entries {
		out[i] = e.Identity
	}
	return out
}

// Warning describes a reference image that was skipped
type Warning struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return w.File + ": " + w.Reason
}

type loadOptions struct {
	progress func(done, total int)
}

type LoadOption func(*loadOptions)

// WithProgress is called after each file with the number processed so far
func WithProgress(fn func(done, total int)) LoadOption {
	return func(o *loadOptions) { o.progress = fn }
}

// Loader builds galleries from a directory of labelled images
type Loader struct {
	provider provider.FaceProvider
	logger   *slog.Logger
}

func NewLoader(p provider.FaceProvider, logger *slog.Logger) *Loader {
	return &Loader{provider: p, logger: logger}
}

// Load encodes the first face of every image in dir. The identity is the file
// name without extension. Images that cannot be decoded or contain no face are
// skipped with a warning; only an unreadable directory fails the load.
func (l *Loader) Load(ctx context.Context, dir string, opts ...LoadOption) (*Gallery, []Warning, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	files, err := imageFiles(dir)
	if err != nil {
		return nil, nil, domain.ErrGalleryLoad.WithError(err)
	}

	var (
		entries  []domain.GalleryEntry
		warnings []Warning
		seen     = make(map[string]string)
	)

	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, warnings, err
		}

		identity := IdentityFromFile(name)
		if first, dup := seen[identity]; dup {
			warnings = append(warnings, l.warn(name, fmt.Sprintf("duplicate identity %q, keeping %s", identity, first)))
		} else if emb, reason := l.encodeFile(ctx, filepath.Join(dir, name)); reason != "" {
			warnings = append(warnings, l.warn(name, reason))
		} else {
			seen[identity] = name
			entries = append(entries, domain.GalleryEntry{Identity: identity, Embedding: emb})
		}

		if o.progress != nil {
			o.progress(i+1, len(files))
		}
	}

	l.logger.Info("gallery loaded",
		"dir", dir,
		"entries", len(entries),
		"warnings", len(warnings),
	)

	return &Gallery{entries: entries}, warnings, nil
}

// encodeFile returns the embedding of the first face, or a reason for skipping
func (l *Loader) encodeFile(ctx context.Context, path string) (domain.Embedding, string) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Sprintf("open: %v", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Sprintf("decode: %v", err)
	}

	boxes, err := l.provider.Locate(ctx, img)
	if err != nil {
		return nil, fmt.Sprintf("locate: %v", err)
	}
	if len(boxes) == 0 {
		return nil, "no face detected"
	}

	embeddings, err := l.provider.Encode(ctx, img, boxes[:1])
	if err != nil {
		return nil, fmt.Sprintf("encode: %v", err)
	}
	if len(embeddings) == 0 {
		return nil, "no encoding returned"
	}

	return embeddings[0], ""
}

func (l *Loader) warn(file, reason string) Warning {
	l.logger.Warn("gallery image skipped", "file", file, "reason", reason)
	return Warning{File: file, Reason: reason}
}

// imageFiles lists the reference images in dir in lexical order
func imageFiles(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range dirEntries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if hasImageExt(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func hasImageExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// IdentityFromFile strips the extension from a gallery file name
func IdentityFromFile(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
