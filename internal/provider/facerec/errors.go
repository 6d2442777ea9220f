package facerec

import "errors"

var (
	ErrServiceUnavailable = errors.New("facerec service unavailable")
	ErrInvalidResponse    = errors.New("invalid response from facerec")
	ErrLandmarksMissing   = errors.New("eye landmarks missing in facerec response")
	ErrInvalidImageFormat = errors.New("invalid image format for facerec")
)
