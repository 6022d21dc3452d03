// Package gesture provides pose-based gates that decide whether a hand frame
// should drive the camera.
package gesture

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/handeye/internal/detector"
)

// DefaultPinchRatio is the thumb-to-index distance, in units of the index
// fingertip segment length, below which a hand counts as pinched.
const DefaultPinchRatio = 2.0

// PinchGate suppresses frames showing an "OK" sign: the thumb tip close to
// the index fingertip. It is a single hard threshold with no hysteresis, so a
// hand held right at the boundary can flicker between suppressed and not.
type PinchGate struct {
	Ratio float64
}

// NewPinchGate returns a PinchGate with the given ratio, or DefaultPinchRatio
// if ratio is not positive.
func NewPinchGate(ratio float64) PinchGate {
	if ratio <= 0 {
		ratio = DefaultPinchRatio
	}
	return PinchGate{Ratio: ratio}
}

// Suppress reports whether the pose should be ignored. points must hold all
// landmarks in a shared metric scale (see orientation.Normalize).
func (g PinchGate) Suppress(points []r3.Vec) bool {
	pinch, ref := PinchDistances(points)
	return pinch < ref*g.Ratio
}

// PinchDistances returns the thumb-tip to index-tip distance and the
// index-tip to index-DIP reference length.
func PinchDistances(points []r3.Vec) (pinch, ref float64) {
	pinch = r3.Norm(r3.Sub(points[detector.ThumbTip], points[detector.IndexTip]))
	ref = r3.Norm(r3.Sub(points[detector.IndexTip], points[detector.IndexDIP]))
	return pinch, ref
}
