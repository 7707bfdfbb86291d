// Package detector defines the hand landmark model and the detectors that produce it.
package detector

import (
	"strings"

	"github.com/golang/geo/r3"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark position in normalized camera space.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec converts the point to an r3 vector.
func (p Point3D) Vec() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// Distance returns the Euclidean distance between p and q.
func (p Point3D) Distance(q Point3D) float64 {
	return p.Vec().Distance(q.Vec())
}

func fromVec(v r3.Vector) Point3D {
	return Point3D{X: v.X, Y: v.Y, Z: v.Z}
}

// HandLandmarks is one detected hand. A well-formed set has exactly
// NumLandmarks points; consumers must check Valid before indexing.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"` // "left" or "right"
	Score      float64   `json:"score"`
}

// Valid reports whether the set carries exactly NumLandmarks points.
func (h HandLandmarks) Valid() bool {
	return len(h.Points) == NumLandmarks
}

// NormalizeHand lower-cases a detector handedness label. Anything that is
// not "left" is treated as "right".
func NormalizeHand(label string) string {
	if strings.EqualFold(strings.TrimSpace(label), "left") {
		return "left"
	}
	return "right"
}

// Normalize translates points so the first one (the wrist) is the origin and
// scales them so the farthest point lies at distance 1. When every point
// coincides with the wrist the result is all zeros. The input is not modified.
func Normalize(points []Point3D) []Point3D {
	out := make([]Point3D, len(points))
	if len(points) == 0 {
		return out
	}

	origin := points[Wrist].Vec()
	scale := 0.0
	vecs := make([]r3.Vector, len(points))
	for i, p := range points {
		vecs[i] = p.Vec().Sub(origin)
		if n := vecs[i].Norm(); n > scale {
			scale = n
		}
	}

	if scale == 0 {
		return out
	}
	for i, v := range vecs {
		out[i] = fromVec(v.Mul(1 / scale))
	}
	return out
}

// Normalize returns a copy of h with its points normalized.
func (h HandLandmarks) Normalize() HandLandmarks {
	return HandLandmarks{
		Points:     Normalize(h.Points),
		Handedness: h.Handedness,
		Score:      h.Score,
	}
}
