// Package orientation derives a virtual camera orientation from the pose of a
// tracked hand.
//
// Landmark space: x runs left (0) to right (1), y top (0) to bottom (1), and z
// is depth, more negative towards the camera. The output uses the display's
// axes, where the landmark z axis becomes x, x becomes y, and y becomes z.
package orientation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/handeye/internal/detector"
	"github.com/ayusman/handeye/internal/gesture"
	"github.com/ayusman/handeye/internal/opt"
)

const (
	// DefaultZoomOut is the distance of the camera eye from the origin.
	DefaultZoomOut = 2.0
	// EyeDecimals is the precision the eye vector is rounded to.
	EyeDecimals = 3

	// Cross products shorter than this are treated as parallel edges.
	degenerateNorm = 1e-10
)

// Sample is one camera orientation in display coordinates.
type Sample struct {
	Eye detector.Point3D `json:"eye"`
	Up  detector.Point3D `json:"up"`
}

// Gate decides whether a pose should be ignored.
type Gate interface {
	Suppress(points []r3.Vec) bool
}

// Config holds the tunable constants of an Extractor.
type Config struct {
	// GateRatio is the pinch threshold ratio for the OK-sign gate.
	GateRatio float64 `yaml:"gate_ratio"`
	// ZoomOut scales the unit eye vector.
	ZoomOut float64 `yaml:"zoom_out"`
	// Mirrored means the detector's handedness labels are swapped, as with a
	// self-facing camera.
	Mirrored bool `yaml:"mirrored"`
}

// DefaultConfig returns the configuration for a mirrored selfie camera.
func DefaultConfig() Config {
	return Config{
		GateRatio: gesture.DefaultPinchRatio,
		ZoomOut:   DefaultZoomOut,
		Mirrored:  true,
	}
}

// Extractor turns landmark frames into camera orientations. It holds no
// per-frame state and is safe for concurrent use.
type Extractor struct {
	gate     Gate
	zoomOut  float64
	mirrored bool
}

// NewExtractor creates an Extractor. Non-positive ZoomOut falls back to
// DefaultZoomOut.
func NewExtractor(cfg Config) *Extractor {
	zoom := cfg.ZoomOut
	if zoom <= 0 {
		zoom = DefaultZoomOut
	}
	return &Extractor{
		gate:     gesture.NewPinchGate(cfg.GateRatio),
		zoomOut:  zoom,
		mirrored: cfg.Mirrored,
	}
}

// WithGate returns a copy of e that uses g instead of the pinch gate.
func (e *Extractor) WithGate(g Gate) *Extractor {
	c := *e
	c.gate = g
	return &c
}

// Normalize maps every landmark to (x, y*height/width, z) so that all three
// axes share the x scale.
func Normalize(frame detector.Frame) []r3.Vec {
	aspect := frame.Aspect()
	points := make([]r3.Vec, detector.NumLandmarks)
	for i, p := range frame.Hand.Points {
		points[i] = r3.Vec{X: p.X, Y: p.Y * aspect, Z: p.Z}
	}
	return points
}

// Extract computes the camera orientation for one frame. When gate is true a
// pinched hand yields an absent sample, as does a hand whose palm edges are
// parallel. A frame that fails validation returns detector.ErrMalformedFrame.
func (e *Extractor) Extract(frame detector.Frame, gate bool) (opt.Value[Sample], error) {
	if err := frame.Validate(); err != nil {
		return opt.None[Sample](), fmt.Errorf("extract orientation: %w", err)
	}

	points := Normalize(frame)
	edge := func(from, to int) r3.Vec {
		return r3.Sub(points[to], points[from])
	}

	if gate && e.gate != nil && e.gate.Suppress(points) {
		return opt.None[Sample](), nil
	}

	pinky := edge(detector.Wrist, detector.PinkyMCP)
	index := edge(detector.Wrist, detector.IndexMCP)
	up := edge(detector.MiddleMCP, detector.Wrist)

	// The order keeps the normal pointing out of the palm for both hands.
	a, b := index, pinky
	if e.presentedLeft(frame.Hand.Handedness) {
		a, b = pinky, index
	}

	normal := r3.Cross(a, b)
	norm := r3.Norm(normal)
	if norm < degenerateNorm || math.IsNaN(norm) {
		return opt.None[Sample](), nil
	}

	// The palm faces the scene, so the camera sits on the opposite side
	eye := r3.Scale(-e.zoomOut, r3.Unit(normal))
	eye = r3.Vec{X: quantize(eye.X), Y: quantize(eye.Y), Z: quantize(eye.Z)}

	return opt.Some(Sample{
		Eye: detector.Point3D{X: eye.Z, Y: eye.X, Z: eye.Y},
		Up:  detector.Point3D{X: up.Z, Y: -up.X, Z: up.Y},
	}), nil
}

// presentedLeft reports whether the hand appears as a left hand to the user.
func (e *Extractor) presentedLeft(handedness string) bool {
	if e.mirrored {
		return handedness == detector.HandRight
	}
	return handedness == detector.HandLeft
}

var defaultExtractor = NewExtractor(DefaultConfig())

// Extract runs the default extractor: mirrored input, gate ratio 2, zoom 2.
func Extract(frame detector.Frame, gate bool) (opt.Value[Sample], error) {
	return defaultExtractor.Extract(frame, gate)
}

// quantize rounds half to even at EyeDecimals places.
func quantize(v float64) float64 {
	scale := math.Pow10(EyeDecimals)
	return math.RoundToEven(v*scale) / scale
}
