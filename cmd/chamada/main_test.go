package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

type env struct {
	dir        string
	galleryDir string
	ledgerPath string
	exportPath string
}

func setupEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:        dir,
		galleryDir: filepath.Join(dir, "known_faces"),
		ledgerPath: filepath.Join(dir, "attendance.csv"),
		exportPath: filepath.Join(dir, "attendance_export.csv"),
	}

	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("PROVIDER_TYPE", "mock")
	t.Setenv("GALLERY_DIR", e.galleryDir)
	t.Setenv("ATTENDANCE_FILE", e.ledgerPath)
	t.Setenv("EXPORT_FILE", e.exportPath)
	t.Setenv("DATABASE_URL", "")
	return e
}

func execute(t *testing.T, e env, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env-file", filepath.Join(e.dir, "missing.env")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFace(t *testing.T, path string, seed uint8) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x*3) + seed, G: uint8(y*2) ^ seed, B: seed, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestStudentCommands(t *testing.T) {
	e := setupEnv(t)
	photo := filepath.Join(e.dir, "maria.png")
	writeFace(t, photo, 7)

	out, err := execute(t, e, "student", "add", "Maria Silva", photo)
	require.NoError(t, err)
	assert.Contains(t, out, "enrolled Maria Silva")
	assert.FileExists(t, filepath.Join(e.galleryDir, "Maria Silva.jpg"))

	_, err = execute(t, e, "student", "add", "Maria Silva", photo)
	assert.ErrorIs(t, err, domain.ErrStudentExists)

	out, err = execute(t, e, "student", "list")
	require.NoError(t, err)
	assert.Equal(t, "Maria Silva\n", out)

	_, err = execute(t, e, "student", "delete", "Maria Silva")
	require.NoError(t, err)

	_, err = execute(t, e, "student", "delete", "Maria Silva")
	assert.ErrorIs(t, err, domain.ErrStudentNotFound)
}

func TestAttendanceCommands(t *testing.T) {
	e := setupEnv(t)

	_, err := execute(t, e, "attendance", "set", "bob", "2024-03-05 08:00:00")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound, "manual edits only apply to existing records")

	content := "Name,Time,Last Attendance Time\n" +
		"bob,2024-03-05 09:10:11,2024-03-05 09:10:11\n" +
		"alice,2024-03-05 08:00:00,2024-03-05 08:00:00\n"
	require.NoError(t, os.WriteFile(e.ledgerPath, []byte(content), 0o644))

	out, err := execute(t, e, "attendance", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `alice\s+2024-03-05 08:00:00\s+2024-03-05 08:00:00`, out)

	_, err = execute(t, e, "attendance", "set", "bob", "05/03/2024")
	assert.ErrorIs(t, err, domain.ErrInvalidTimestamp)

	_, err = execute(t, e, "attendance", "set", "bob", "2024-03-04 07:30:00")
	require.NoError(t, err)

	out, err = execute(t, e, "attendance", "export", "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, "Name,Time,Last Attendance Time\n"+
		"bob,2024-03-04 07:30:00,2024-03-04 07:30:00\n"+
		"alice,2024-03-05 08:00:00,2024-03-05 08:00:00\n", out)

	out, err = execute(t, e, "attendance", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "exported 2 records")
	assert.FileExists(t, e.exportPath)

	_, err = execute(t, e, "attendance", "delete", "bob")
	require.NoError(t, err)
	data, err := os.ReadFile(e.ledgerPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "bob")
}

func TestAttendanceListSource(t *testing.T) {
	e := setupEnv(t)

	_, err := execute(t, e, "attendance", "list", "--source", "db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	_, err = execute(t, e, "attendance", "list", "--source", "sheet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown --source")

	out, err := execute(t, e, "attendance", "list", "--source", "file")
	require.NoError(t, err)
	assert.Equal(t, "NAME  TIME  LAST ATTENDANCE\n", out)
}

func TestGalleryCommand(t *testing.T) {
	e := setupEnv(t)
	require.NoError(t, os.MkdirAll(e.galleryDir, 0o755))
	writeFace(t, filepath.Join(e.galleryDir, "alice.png"), 10)
	writeFace(t, filepath.Join(e.galleryDir, "bob.png"), 20)
	require.NoError(t, os.WriteFile(filepath.Join(e.galleryDir, "broken.jpg"), []byte("nope"), 0o644))

	out, err := execute(t, e, "gallery", "--quiet")

	require.NoError(t, err)
	assert.Contains(t, out, "2 enrolled")
	assert.Contains(t, out, "  alice\n")
	assert.Contains(t, out, "  bob\n")
	assert.Contains(t, out, "1 skipped")
	assert.Contains(t, out, "broken.jpg: decode")
}

func TestInvalidConfig(t *testing.T) {
	e := setupEnv(t)
	t.Setenv("MATCH_TOLERANCE", "2")

	_, err := execute(t, e, "student", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MATCH_TOLERANCE")
}

func TestMigrateRequiresDatabase(t *testing.T) {
	e := setupEnv(t)

	_, err := execute(t, e, "migrate", "version")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{"0", 0, false},
		{"-1", -1, false},
		{"-2", 0, true},
		{"latest", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseVersion(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
