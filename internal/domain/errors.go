package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so that errors produced by WithError still satisfy
// errors.Is against the predefined value they were derived from.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Input errors: the operation halts, the session survives
	ErrGalleryLoad = &AppError{
		Code:       "GALLERY_LOAD_ERROR",
		Message:    "Gallery directory could not be read",
		StatusCode: 500,
	}

	ErrLedgerRead = &AppError{
		Code:       "LEDGER_READ_ERROR",
		Message:    "Attendance file could not be read",
		StatusCode: 500,
	}

	ErrLedgerWrite = &AppError{
		Code:       "LEDGER_WRITE_ERROR",
		Message:    "Attendance file could not be written",
		StatusCode: 500,
	}

	// Device errors
	ErrFrameCapture = &AppError{
		Code:       "FRAME_CAPTURE_ERROR",
		Message:    "Failed to capture video frame",
		StatusCode: 503,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	// Student (gallery file) errors
	ErrInvalidIdentity = &AppError{
		Code:       "INVALID_IDENTITY",
		Message:    "Student name must be a non-empty file name without path separators",
		StatusCode: 422,
	}

	ErrStudentExists = &AppError{
		Code:       "STUDENT_ALREADY_EXISTS",
		Message:    "A reference image already exists for this student",
		StatusCode: 409,
	}

	ErrStudentNotFound = &AppError{
		Code:       "STUDENT_NOT_FOUND",
		Message:    "Student not found in gallery",
		StatusCode: 404,
	}

	// Ledger edit errors
	ErrRecordNotFound = &AppError{
		Code:       "RECORD_NOT_FOUND",
		Message:    "Attendance record not found",
		StatusCode: 404,
	}

	ErrInvalidTimestamp = &AppError{
		Code:       "INVALID_TIMESTAMP",
		Message:    "Timestamp must use the format YYYY-MM-DD HH:MM:SS",
		StatusCode: 422,
	}

	// Session control errors
	ErrSessionRunning = &AppError{
		Code:       "SESSION_RUNNING",
		Message:    "A capture session is already running",
		StatusCode: 409,
	}

	ErrSessionNotRunning = &AppError{
		Code:       "SESSION_NOT_RUNNING",
		Message:    "No capture session is running",
		StatusCode: 409,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests",
		StatusCode: 429,
	}
)
