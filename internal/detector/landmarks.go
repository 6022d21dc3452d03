// Package detector provides hand landmark types, frame ingestion, and hand
// detection backends.
package detector

import (
	"errors"
	"fmt"
	"math"
	"strings"
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

// Handedness labels as reported by the detector.
const (
	HandLeft  = "Left"
	HandRight = "Right"
)

// ErrMalformedFrame is returned when a frame does not carry a complete,
// well-formed hand. It indicates an upstream contract violation, not the
// normal "no hand visible" case.
var ErrMalformedFrame = errors.New("malformed frame")

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
// X and Y are normalized to [0,1] of the image; Z is relative depth on
// roughly the same scale as X.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Frame is one detection result for a single tracked hand, together with the
// dimensions of the image it was detected in.
type Frame struct {
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Hand   HandLandmarks `json:"hand"`
}

// Aspect returns height/width, the factor that brings y onto the x scale.
func (f Frame) Aspect() float64 {
	return float64(f.Height) / float64(f.Width)
}

// Validate checks that the frame can be used for geometry.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: image size %dx%d", ErrMalformedFrame, f.Width, f.Height)
	}
	if f.Hand.Handedness != HandLeft && f.Hand.Handedness != HandRight {
		return fmt.Errorf("%w: handedness %q", ErrMalformedFrame, f.Hand.Handedness)
	}
	for i, p := range f.Hand.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return fmt.Errorf("%w: landmark %d is not finite", ErrMalformedFrame, i)
		}
	}
	return nil
}

// FromPoints builds HandLandmarks from a landmark slice, which must hold at
// least NumLandmarks points. Extra points are ignored.
func FromPoints(points []Point3D, handedness string, score float64) (HandLandmarks, error) {
	if len(points) < NumLandmarks {
		return HandLandmarks{}, fmt.Errorf("%w: got %d landmarks, need %d", ErrMalformedFrame, len(points), NumLandmarks)
	}

	label, err := ParseHandedness(handedness)
	if err != nil {
		return HandLandmarks{}, err
	}

	h := HandLandmarks{Handedness: label, Score: score}
	copy(h.Points[:], points[:NumLandmarks])
	return h, nil
}

// ParseHandedness normalizes a handedness label to HandLeft or HandRight.
func ParseHandedness(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return HandLeft, nil
	case "right":
		return HandRight, nil
	default:
		return "", fmt.Errorf("%w: handedness %q", ErrMalformedFrame, s)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
