package facerec

// Location is a face box in face_recognition css order: top, right, bottom, left
type Location [4]int

// LocationsRequest for POST /locations
type LocationsRequest struct {
	Img      string `json:"img"`      // base64 encoded JPEG
	Model    string `json:"model"`    // "hog" or "cnn"
	Upsample int    `json:"upsample"` // number_of_times_to_upsample
}

// LocationsResponse from POST /locations
type LocationsResponse struct {
	Locations []Location `json:"locations"`
}

// EncodingsRequest for POST /encodings
type EncodingsRequest struct {
	Img       string     `json:"img"`
	Locations []Location `json:"locations"`
}

// EncodingsResponse from POST /encodings
type EncodingsResponse struct {
	Encodings [][]float64 `json:"encodings"`
}

// LandmarksRequest for POST /landmarks
type LandmarksRequest struct {
	Img       string     `json:"img"`
	Locations []Location `json:"locations"`
}

// LandmarksResponse from POST /landmarks
type LandmarksResponse struct {
	Landmarks []FaceLandmarks `json:"landmarks"`
}

// FaceLandmarks holds the eye contours of one face as [x, y] pairs
type FaceLandmarks struct {
	LeftEye  [][2]float64 `json:"left_eye"`
	RightEye [][2]float64 `json:"right_eye"`
}
