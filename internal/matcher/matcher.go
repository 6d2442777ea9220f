package matcher

import (
	"math"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// DefaultTolerance is the distance threshold used by both match gates
const DefaultTolerance = 0.4

// Gallery is the read-only view the matcher needs
type Gallery interface {
	Entries() []domain.GalleryEntry
}

// Matcher assigns an identity to an embedding using nearest-neighbour search
// over the gallery, gated twice by the same tolerance.
type Matcher struct {
	tolerance float64
}

func New(tolerance float64) *Matcher {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Matcher{tolerance: tolerance}
}

func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// Match returns the closest identity and its distance, or domain.Unknown.
// The nearest entry must pass CompareFaces (distance <= tolerance) and then
// the strict check distance < tolerance. An empty gallery yields (Unknown, +Inf).
func (m *Matcher) Match(embedding domain.Embedding, gallery Gallery) (string, float64) {
	entries := gallery.Entries()
	if len(entries) == 0 {
		return domain.Unknown, math.Inf(1)
	}

	known := make([]domain.Embedding, len(entries))
	for i, e := range entries {
		known[i] = e.Embedding
	}

	matches := CompareFaces(known, embedding, m.tolerance)
	distances := FaceDistance(known, embedding)

	best := 0
	for i := 1; i < len(distances); i++ {
		if distances[i] < distances[best] {
			best = i
		}
	}

	if matches[best] && distances[best] < m.tolerance {
		return entries[best].Identity, distances[best]
	}
	return domain.Unknown, distances[best]
}

// FaceDistance returns the Euclidean distance from candidate to every known embedding.
// Embeddings of different length are infinitely far apart.
func FaceDistance(known []domain.Embedding, candidate domain.Embedding) []float64 {
	out := make([]float64, len(known))
	for i, k := range known {
		out[i] = euclidean(k, candidate)
	}
	return out
}

// CompareFaces reports, per known embedding, whether it is within tolerance of candidate
func CompareFaces(known []domain.Embedding, candidate domain.Embedding, tolerance float64) []bool {
	distances := FaceDistance(known, candidate)
	out := make([]bool, len(distances))
	for i, d := range distances {
		out[i] = d <= tolerance
	}
	return out
}

func euclidean(a, b domain.Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
