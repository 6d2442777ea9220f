package gallery

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Student file operations change the directory only; a running session keeps
// the gallery it loaded at start.

// ValidateName rejects identities that cannot be used as a file name
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "",
		strings.HasPrefix(name, "."),
		strings.ContainsAny(name, `/\`),
		strings.ContainsRune(name, 0),
		name != strings.TrimSpace(name):
		return domain.ErrInvalidIdentity
	}
	return nil
}

// AddStudent stores data as <dir>/<name>.jpg. data must decode as an image;
// it is re-encoded as JPEG.
func AddStudent(dir, name string, data []byte) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	existing, err := studentFiles(dir, name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", domain.ErrGalleryLoad.WithError(err)
	}
	if len(existing) > 0 {
		return "", domain.ErrStudentExists
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", domain.ErrInvalidImage.WithError(err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create gallery dir: %w", err)
	}

	path := filepath.Join(dir, name+".jpg")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", domain.ErrStudentExists
		}
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 95}); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	return path, nil
}

// DeleteStudent removes every reference image stored for name
func DeleteStudent(dir, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	files, err := studentFiles(dir, name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.ErrGalleryLoad.WithError(err)
	}
	if len(files) == 0 {
		return domain.ErrStudentNotFound
	}

	for _, f := range files {
		if err := os.Remove(filepath.Join(dir, f)); err != nil {
			return fmt.Errorf("remove %s: %w", f, err)
		}
	}
	return nil
}

// ListStudents returns the distinct identities with a reference image in dir
func ListStudents(dir string) ([]string, error) {
	files, err := imageFiles(dir)
	if err != nil {
		return nil, domain.ErrGalleryLoad.WithError(err)
	}

	seen := make(map[string]bool, len(files))
	names := make([]string, 0, len(files))
	for _, f := range files {
		id := IdentityFromFile(f)
		if !seen[id] {
			seen[id] = true
			names = append(names, id)
		}
	}
	sort.Strings(names)
	return names, nil
}

func studentFiles(dir, name string) ([]string, error) {
	files, err := imageFiles(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range files {
		if IdentityFromFile(f) == name {
			out = append(out, f)
		}
	}
	return out, nil
}

// Students exposes the file operations above for one gallery directory
type Students struct {
	Dir string
}

func (s Students) List() ([]string, error) {
	return ListStudents(s.Dir)
}

func (s Students) Add(name string, data []byte) (string, error) {
	return AddStudent(s.Dir, name, data)
}

func (s Students) Delete(name string) error {
	return DeleteStudent(s.Dir, name)
}
