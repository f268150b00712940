package orientation

import (
	"math"

	"github.com/relabs-tech/angle_viewer/internal/frame"
)

const (
	verticalScale   = 180.0 / math.Pi
	horizontalScale = -180.0 / math.Pi
)

// Angles is the canonical display representation of a sample, in degrees.
type Angles struct {
	Vertical   float64 `json:"vertical"`
	Horizontal float64 `json:"horizontal"`
}

// Source is anything that can provide samples over time (mock, replay, ...).
type Source interface {
	Next() (frame.Sample, error)
}

// VerticalDegrees converts a vertical angle from radians to degrees.
func VerticalDegrees(rad float64) float64 {
	return rad * verticalScale
}

// HorizontalDegrees converts a horizontal angle from radians to degrees.
// The horizontal axis is mirrored relative to the vertical one: the producer
// reports turn angles with the opposite handedness to what the gauge shows.
func HorizontalDegrees(rad float64) float64 {
	return rad * horizontalScale
}

// FromSample converts both axes of s to display degrees.
func FromSample(s frame.Sample) Angles {
	return Angles{
		Vertical:   VerticalDegrees(s.VerticalRad),
		Horizontal: HorizontalDegrees(s.HorizontalRad),
	}
}
