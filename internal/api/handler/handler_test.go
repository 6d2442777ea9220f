package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/session"
)

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// MockLedger is a mock implementation of AttendanceLedger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Records() []domain.AttendanceRecord {
	args := m.Called()
	return args.Get(0).([]domain.AttendanceRecord)
}

func (m *MockLedger) Update(ctx context.Context, name string, at time.Time) (domain.AttendanceRecord, error) {
	args := m.Called(ctx, name, at)
	return args.Get(0).(domain.AttendanceRecord), args.Error(1)
}

func (m *MockLedger) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockLedger) Export(w io.Writer) error {
	args := m.Called(w)
	if s, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, s)
	}
	return args.Error(1)
}

// MockStudentStore is a mock implementation of StudentStore
type MockStudentStore struct {
	mock.Mock
}

func (m *MockStudentStore) List() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStudentStore) Add(name string, data []byte) (string, error) {
	args := m.Called(name, data)
	return args.String(0), args.Error(1)
}

func (m *MockStudentStore) Delete(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

// MockSessionController is a mock implementation of SessionController
type MockSessionController struct {
	mock.Mock
}

func (m *MockSessionController) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSessionController) Stop() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSessionController) Status() session.Status {
	args := m.Called()
	return args.Get(0).(session.Status)
}

// MockAuditLogger is a mock implementation of audit.Logger
type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) Log(ctx context.Context, event audit.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// createMultipartRequest builds a form with optional name and image parts
func createMultipartRequest(name string, imageContent []byte, contentType string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if name != "" {
		_ = writer.WriteField("name", name)
	}

	if imageContent != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="photo.jpg"`)
		h.Set("Content-Type", contentType)

		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		_, _ = part.Write(imageContent)
	}

	_ = writer.Close()
	return body, writer.FormDataContentType(), nil
}
