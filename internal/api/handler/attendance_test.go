package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

var marked = time.Date(2024, 3, 5, 8, 0, 0, 0, time.Local)

func TestAttendanceHandler_List(t *testing.T) {
	ledger := new(MockLedger)
	ledger.On("Records").Return([]domain.AttendanceRecord{
		{Name: "alice", Time: marked, LastAttendanceTime: marked},
		{Name: "bob", Time: marked.Add(time.Hour), LastAttendanceTime: marked.Add(time.Hour)},
	})

	app := newTestApp()
	app.Get("/v1/attendance", NewAttendanceHandler(ledger, "", testLogger()).List)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/attendance", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var result AttendanceListResponse
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, AttendanceResponse{
		Name:               "bob",
		Time:               "2024-03-05 09:00:00",
		LastAttendanceTime: "2024-03-05 09:00:00",
	}, result.Records[1])
}

func TestAttendanceHandler_Update(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           string
		setupMock      func(*MockLedger)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "success",
			path: "/v1/attendance/alice",
			body: `{"time":"2024-03-04 07:30:00"}`,
			setupMock: func(m *MockLedger) {
				at := time.Date(2024, 3, 4, 7, 30, 0, 0, time.Local)
				m.On("Update", mock.Anything, "alice", at).
					Return(domain.AttendanceRecord{Name: "alice", Time: at, LastAttendanceTime: at}, nil)
			},
			expectedStatus: 200,
		},
		{
			name: "escaped name",
			path: "/v1/attendance/Maria%20Silva",
			body: `{"time":"2024-03-04 07:30:00"}`,
			setupMock: func(m *MockLedger) {
				m.On("Update", mock.Anything, "Maria Silva", mock.Anything).
					Return(domain.AttendanceRecord{Name: "Maria Silva"}, nil)
			},
			expectedStatus: 200,
		},
		{
			name:           "bad timestamp",
			path:           "/v1/attendance/alice",
			body:           `{"time":"05/03/2024 08:00"}`,
			setupMock:      func(*MockLedger) {},
			expectedStatus: 422,
			expectedCode:   "INVALID_TIMESTAMP",
		},
		{
			name:           "malformed body",
			path:           "/v1/attendance/alice",
			body:           `{"time":`,
			setupMock:      func(*MockLedger) {},
			expectedStatus: 400,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name: "unknown record",
			path: "/v1/attendance/nobody",
			body: `{"time":"2024-03-04 07:30:00"}`,
			setupMock: func(m *MockLedger) {
				m.On("Update", mock.Anything, "nobody", mock.Anything).
					Return(domain.AttendanceRecord{}, domain.ErrRecordNotFound)
			},
			expectedStatus: 404,
			expectedCode:   "RECORD_NOT_FOUND",
		},
		{
			name: "write failure",
			path: "/v1/attendance/alice",
			body: `{"time":"2024-03-04 07:30:00"}`,
			setupMock: func(m *MockLedger) {
				m.On("Update", mock.Anything, "alice", mock.Anything).
					Return(domain.AttendanceRecord{}, domain.ErrLedgerWrite.WithError(errors.New("read-only file system")))
			},
			expectedStatus: 500,
			expectedCode:   "LEDGER_WRITE_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := new(MockLedger)
			tt.setupMock(ledger)

			app := newTestApp()
			app.Put("/v1/attendance/:name", NewAttendanceHandler(ledger, "", testLogger()).Update)

			req := httptest.NewRequest("PUT", tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedCode != "" {
				var result errorBody
				body, _ := io.ReadAll(resp.Body)
				require.NoError(t, json.Unmarshal(body, &result))
				assert.Equal(t, tt.expectedCode, result.Error.Code)
			}
			ledger.AssertExpectations(t)
		})
	}
}

func TestAttendanceHandler_Delete(t *testing.T) {
	ledger := new(MockLedger)
	ledger.On("Delete", mock.Anything, "alice").Return(nil).Once()
	ledger.On("Delete", mock.Anything, "alice").Return(domain.ErrRecordNotFound).Once()

	app := newTestApp()
	app.Delete("/v1/attendance/:name", NewAttendanceHandler(ledger, "", testLogger()).Delete)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/attendance/alice", nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/v1/attendance/alice", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	ledger.AssertExpectations(t)
}

func TestAttendanceHandler_Export(t *testing.T) {
	csv := "Name,Time,Last Attendance Time\nalice,2024-03-05 08:00:00,2024-03-05 08:00:00\n"
	ledger := new(MockLedger)
	ledger.On("Export", mock.Anything).Return(csv, nil)

	app := newTestApp()
	app.Get("/v1/attendance/export", NewAttendanceHandler(ledger, "attendance_export.csv", testLogger()).Export)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/attendance/export", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attendance_export.csv")

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, csv, string(body))
}
