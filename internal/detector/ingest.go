package detector

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ayusman/handeye/internal/opt"
)

// wireFrame is the JSON payload sent by the browser hand tracker. It accepts
// both the raw MediaPipe results shape (multiHandedness/multiHandLandmarks)
// and a flat single-hand shape (handedness/landmarks).
type wireFrame struct {
	Image *struct {
		Width  *float64 `json:"width"`
		Height *float64 `json:"height"`
	} `json:"image"`

	MultiHandedness []struct {
		Index *int    `json:"index"`
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"multiHandedness"`
	MultiHandLandmarks [][]*wirePoint `json:"multiHandLandmarks"`

	Handedness string       `json:"handedness"`
	Landmarks  []*wirePoint `json:"landmarks"`
}

// wirePoint keeps coordinates as pointers so absent fields are detectable.
type wirePoint struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

func decodePoints(wire []*wirePoint) ([]Point3D, error) {
	points := make([]Point3D, len(wire))
	for i, p := range wire {
		if p == nil {
			return nil, fmt.Errorf("%w: landmark %d is null", ErrMalformedFrame, i)
		}
		if p.X == nil || p.Y == nil || p.Z == nil {
			return nil, fmt.Errorf("%w: landmark %d is missing a coordinate", ErrMalformedFrame, i)
		}
		points[i] = Point3D{X: *p.X, Y: *p.Y, Z: *p.Z}
	}
	return points, nil
}

// imageDimension converts a browser image dimension to whole pixels.
func imageDimension(name string, v *float64) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: missing image %s", ErrMalformedFrame, name)
	}
	if !finite(*v) || *v < 1 || *v > maxImageDimension {
		return 0, fmt.Errorf("%w: image %s %v out of range", ErrMalformedFrame, name, *v)
	}
	return int(math.Round(*v)), nil
}

const maxImageDimension = 1 << 16

// ParseFrame decodes one browser payload. Only the first hand is consumed.
// A payload without any hand yields an absent frame and no error; a payload
// with a hand that cannot be used yields ErrMalformedFrame.
func ParseFrame(data []byte) (opt.Value[Frame], error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return opt.None[Frame](), fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	var (
		wire       []*wirePoint
		handedness string
		score      float64
	)

	switch {
	case len(w.MultiHandLandmarks) > 0:
		if len(w.MultiHandedness) == 0 {
			return opt.None[Frame](), fmt.Errorf("%w: landmarks without handedness", ErrMalformedFrame)
		}
		wire = w.MultiHandLandmarks[0]
		h := w.MultiHandedness[0]
		handedness = h.Label
		if handedness == "" {
			if h.Index == nil {
				return opt.None[Frame](), fmt.Errorf("%w: handedness has neither label nor index", ErrMalformedFrame)
			}
			// MediaPipe class index 0 is "Left"
			handedness = HandRight
			if *h.Index == 0 {
				handedness = HandLeft
			}
		}
		score = h.Score
	case w.Landmarks != nil:
		wire = w.Landmarks
		handedness = w.Handedness
	default:
		return opt.None[Frame](), nil
	}

	if w.Image == nil {
		return opt.None[Frame](), fmt.Errorf("%w: missing image size", ErrMalformedFrame)
	}

	width, err := imageDimension("width", w.Image.Width)
	if err != nil {
		return opt.None[Frame](), err
	}
	height, err := imageDimension("height", w.Image.Height)
	if err != nil {
		return opt.None[Frame](), err
	}

	points, err := decodePoints(wire)
	if err != nil {
		return opt.None[Frame](), err
	}
	hand, err := FromPoints(points, handedness, score)
	if err != nil {
		return opt.None[Frame](), err
	}

	frame := Frame{
		Width:  width,
		Height: height,
		Hand:   hand,
	}
	if err := frame.Validate(); err != nil {
		return opt.None[Frame](), err
	}

	return opt.Some(frame), nil
}
