package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) (*Router, *ledger.Ledger, string) {
	t.Helper()
	dir := t.TempDir()

	l, err := ledger.Open(filepath.Join(dir, "attendance.csv"))
	require.NoError(t, err)

	galleryDir := filepath.Join(dir, "known_faces")
	require.NoError(t, os.Mkdir(galleryDir, 0o755))

	r := NewRouter(testLogger(), &Dependencies{
		Ledger:      l,
		Students:    gallery.Students{Dir: galleryDir},
		ExportName:  "attendance_export.csv",
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{Max: 100, Window: time.Minute}),
	})
	r.Setup(context.Background())
	t.Cleanup(func() { _ = r.Shutdown() })

	return r, l, galleryDir
}

func pngUpload(t *testing.T, name string) (*bytes.Buffer, string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	img.Set(3, 3, color.RGBA{R: 200, A: 255})
	var data bytes.Buffer
	require.NoError(t, png.Encode(&data, img))

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	_ = w.WriteField("name", name)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="photo.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write(data.Bytes())
	require.NoError(t, w.Close())

	return body, w.FormDataContentType()
}

func TestRouter_AttendanceFlow(t *testing.T) {
	r, l, _ := newTestRouter(t)
	app := r.App()

	at := time.Date(2024, 3, 5, 8, 0, 0, 0, time.Local)
	_, err := l.TryMark(context.Background(), "alice", at)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/attendance", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	req := httptest.NewRequest("PUT", "/v1/attendance/alice", strings.NewReader(`{"time":"2024-03-05 07:55:00"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "100", resp.Header.Get("X-RateLimit-Limit"))

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/attendance/export", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Name,Time,Last Attendance Time\nalice,2024-03-05 07:55:00,2024-03-05 07:55:00\n", string(body))

	resp, err = app.Test(httptest.NewRequest("DELETE", "/v1/attendance/alice", nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Equal(t, 0, l.Len())
}

func TestRouter_EditedRecordSurvivesLaterRequests(t *testing.T) {
	r, l, _ := newTestRouter(t)
	app := r.App()
	ctx := context.Background()

	at := time.Date(2024, 3, 5, 8, 0, 0, 0, time.Local)
	_, err := l.TryMark(ctx, "alice", at)
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/v1/attendance/alice", strings.NewReader(`{"time":"2024-03-05 07:55:00"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	// later requests reuse the buffers the edit was parsed from
	for _, path := range []string{"/v1/attendance/export", "/v1/attendance", "/v1/students"} {
		resp, err = app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		_, _ = io.ReadAll(resp.Body)
	}

	_, err = l.TryMark(ctx, "bob", at.Add(time.Minute))
	require.NoError(t, err)

	alice, ok := l.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "alice", alice.Name)

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, "Name,Time,Last Attendance Time\n"+
		"alice,2024-03-05 07:55:00,2024-03-05 07:55:00\n"+
		"bob,2024-03-05 08:01:00,2024-03-05 08:01:00\n", string(data))

	_, err = ledger.Open(l.Path())
	assert.NoError(t, err, "the file must stay loadable")
}

func TestRouter_StudentFlow(t *testing.T) {
	r, _, galleryDir := newTestRouter(t)
	app := r.App()

	body, contentType := pngUpload(t, "Maria Silva")
	req := httptest.NewRequest("POST", "/v1/students", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	_, err = os.Stat(filepath.Join(galleryDir, "Maria Silva.jpg"))
	require.NoError(t, err)

	body, contentType = pngUpload(t, "Maria Silva")
	req = httptest.NewRequest("POST", "/v1/students", body)
	req.Header.Set("Content-Type", contentType)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/students", nil))
	require.NoError(t, err)
	var list struct {
		Students []string `json:"students"`
	}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Equal(t, []string{"Maria Silva"}, list.Students)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/v1/students/Maria%20Silva", nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestRouter_NoSessionRoutesWithoutController(t *testing.T) {
	r, _, _ := newTestRouter(t)

	resp, err := r.App().Test(httptest.NewRequest("POST", "/v1/session/start", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = r.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
