package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// AttendanceRecord represents one ledger row
type AttendanceRecord struct {
	Name               string `json:"name" example:"alice"`
	Time               string `json:"time" example:"2024-03-05 08:00:00"`
	LastAttendanceTime string `json:"last_attendance_time" example:"2024-03-05 08:00:00"`
}

// AttendanceList represents the ledger contents
type AttendanceList struct {
	Records []AttendanceRecord `json:"records"`
	Total   int                `json:"total" example:"1"`
}

// UpdateAttendanceRequest represents a manual correction
type UpdateAttendanceRequest struct {
	Time string `json:"time" example:"2024-03-05 08:00:00"`
}

// StudentList represents the identities enrolled in the gallery directory
type StudentList struct {
	Students []string `json:"students" example:"alice,bob"`
	Total    int      `json:"total" example:"2"`
}

// Student represents a stored reference image
type Student struct {
	Name string `json:"name" example:"alice"`
	File string `json:"file" example:"alice.jpg"`
}

// SessionStatus represents the capture session state
type SessionStatus struct {
	ID             string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Running        bool   `json:"running" example:"true"`
	StartedAt      string `json:"started_at" example:"2024-03-05T08:00:00Z"`
	Frames         int64  `json:"frames" example:"1200"`
	Marked         int64  `json:"marked" example:"12"`
	GalleryEntries int    `json:"gallery_entries" example:"30"`
	LastError      string `json:"last_error,omitempty" example:""`
}

// HealthStatus represents /health and /ready responses
type HealthStatus struct {
	Status  string            `json:"status" example:"ok"`
	Version string            `json:"version,omitempty" example:"0.1.0"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var internalError = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Chamada Attendance API",
		Version:     "v1.0.0",
		Description: "Face recognition attendance: ledger, student gallery and capture session control",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	nameParam := parameter.StrParam("name", parameter.Path, parameter.WithDescription("Student identity (gallery file name without extension)"))

	endpoints := []*endpoint.EndPoint{
		// Attendance

		endpoint.New(
			endpoint.GET,
			"/attendance",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("List attendance records"),
			endpoint.WithDescription("Returns every ledger record sorted by name"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AttendanceList{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{internalError}),
		),

		endpoint.New(
			endpoint.PUT,
			"/attendance/{name}",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Edit an attendance record"),
			endpoint.WithDescription("Sets both Time and Last Attendance Time. The ledger file is rewritten."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(nameParam),
			endpoint.WithBody(UpdateAttendanceRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AttendanceRecord{}, "200", "Record updated"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "RECORD_NOT_FOUND", Message: "Attendance record not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INVALID_TIMESTAMP", Message: "Timestamp must use the format YYYY-MM-DD HH:MM:SS"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "LEDGER_WRITE_ERROR", Message: "Failed to write attendance ledger"}, "500", "Internal Server Error"),
			}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/attendance/{name}",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Delete an attendance record"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(nameParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Record deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "RECORD_NOT_FOUND", Message: "Attendance record not found"}, "404", "Not Found"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/attendance/export",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Download the ledger as CSV"),
			endpoint.WithDescription("Header Name,Time,Last Attendance Time; rows in ledger order"),
			endpoint.WithProduce([]mime.MIME{mime.MIME("text/csv")}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "200", "CSV file"),
			}),
		),

		// Students

		endpoint.New(
			endpoint.GET,
			"/students",
			endpoint.WithTags("Students"),
			endpoint.WithSummary("List enrolled students"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StudentList{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "GALLERY_LOAD_ERROR", Message: "Failed to read gallery directory"}, "500", "Internal Server Error"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/students",
			endpoint.WithTags("Students"),
			endpoint.WithSummary("Enroll a student"),
			endpoint.WithDescription("Stores the image as <name>.jpg in the gallery directory. Takes effect when the next session starts."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Student{}, "201", "Student enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "STUDENT_ALREADY_EXISTS", Message: "A reference image already exists for this student"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INVALID_IDENTITY", Message: "Invalid student name"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Too many requests"}, "429", "Too Many Requests"),
			}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/students/{name}",
			endpoint.WithTags("Students"),
			endpoint.WithSummary("Remove a student's reference images"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(nameParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Student removed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "STUDENT_NOT_FOUND", Message: "Student not found in gallery"}, "404", "Not Found"),
			}),
		),

		// Session

		endpoint.New(
			endpoint.POST,
			"/session/start",
			endpoint.WithTags("Session"),
			endpoint.WithSummary("Start a capture session"),
			endpoint.WithDescription("Loads the gallery, opens the camera and starts marking attendance"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionStatus{}, "202", "Session started"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_RUNNING", Message: "A capture session is already running"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "FRAME_CAPTURE_ERROR", Message: "Failed to capture frame from camera"}, "503", "Service Unavailable"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/session/stop",
			endpoint.WithTags("Session"),
			endpoint.WithSummary("Stop the capture session"),
			endpoint.WithDescription("The loop finishes the frame in progress, then exits"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionStatus{}, "202", "Stop requested"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_NOT_RUNNING", Message: "No capture session is running"}, "409", "Conflict"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/session",
			endpoint.WithTags("Session"),
			endpoint.WithSummary("Session status"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionStatus{}, "200", "OK"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/ws",
			endpoint.WithTags("Session"),
			endpoint.WithSummary("Live events"),
			endpoint.WithDescription("WebSocket stream of attendance and session events. Add frames=true to also receive annotated frames as base64 JPEG."),
			endpoint.WithParams(
				parameter.BoolParam("frames", parameter.Query, parameter.WithDescription("Also stream annotated frames")),
			),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
