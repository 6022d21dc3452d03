package orientation

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/handeye/internal/detector"
	"github.com/ayusman/handeye/internal/opt"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func frameOf(hand detector.HandLandmarks) detector.Frame {
	return detector.Frame{Width: 640, Height: 480, Hand: hand}
}

func mustSample(t *testing.T) func(opt.Value[Sample], error) Sample {
	return func(v opt.Value[Sample], err error) Sample {
		t.Helper()
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		s, ok := v.Get()
		if !ok {
			t.Fatal("Extract() returned an absent sample")
		}
		return s
	}
}

func TestExtract_OpenPalm(t *testing.T) {
	tests := []struct {
		name       string
		handedness string
		mirrored   bool
		wantEye    detector.Point3D
	}{
		{name: "right label, mirrored", handedness: detector.HandRight, mirrored: true, wantEye: detector.Point3D{X: -2}},
		{name: "left label, mirrored", handedness: detector.HandLeft, mirrored: true, wantEye: detector.Point3D{X: 2}},
		{name: "right label, not mirrored", handedness: detector.HandRight, mirrored: false, wantEye: detector.Point3D{X: 2}},
		{name: "left label, not mirrored", handedness: detector.HandLeft, mirrored: false, wantEye: detector.Point3D{X: -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Mirrored = tt.mirrored
			e := NewExtractor(cfg)

			hand := detector.OpenPalmLandmarks()
			hand.Handedness = tt.handedness

			got := mustSample(t)(e.Extract(frameOf(hand), true))
			want := Sample{
				Eye: tt.wantEye,
				// wrist - middle MCP, y rescaled by 480/640, remapped to display axes
				Up: detector.Point3D{X: 0, Y: 0, Z: (0.8 - 0.66) * 0.75},
			}

			if diff := cmp.Diff(want, got, approx); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	frame := frameOf(detector.TiltedPalmLandmarks())

	first := mustSample(t)(Extract(frame, true))
	second := mustSample(t)(Extract(frame, true))

	if first != second {
		t.Errorf("Extract() not deterministic: %+v vs %+v", first, second)
	}
}

func TestExtract_Quantized(t *testing.T) {
	s := mustSample(t)(Extract(frameOf(detector.TiltedPalmLandmarks()), true))

	for _, v := range []float64{s.Eye.X, s.Eye.Y, s.Eye.Z} {
		scaled := v * 1000
		if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
			t.Errorf("eye component %v has more than 3 decimals", v)
		}
	}

	norm := math.Sqrt(s.Eye.X*s.Eye.X + s.Eye.Y*s.Eye.Y + s.Eye.Z*s.Eye.Z)
	if math.Abs(norm-DefaultZoomOut) > 2e-3 {
		t.Errorf("|eye| = %f, want about %f", norm, DefaultZoomOut)
	}
}

func TestExtract_Gate(t *testing.T) {
	frame := frameOf(detector.OKSignLandmarks())

	got, err := Extract(frame, true)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.IsSome() {
		t.Error("OK sign with gate enabled should be absent")
	}

	got, err = Extract(frame, false)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.IsNone() {
		t.Error("OK sign with gate disabled should yield a sample")
	}
}

type alwaysSuppress struct{}

func (alwaysSuppress) Suppress([]r3.Vec) bool { return true }

func TestExtractor_WithGate(t *testing.T) {
	e := NewExtractor(DefaultConfig()).WithGate(alwaysSuppress{})
	frame := frameOf(detector.OpenPalmLandmarks())

	if got, _ := e.Extract(frame, true); got.IsSome() {
		t.Error("custom gate should suppress the frame")
	}
	if got, _ := e.Extract(frame, false); got.IsNone() {
		t.Error("gate must not run when disabled")
	}
}

func TestExtract_Degenerate(t *testing.T) {
	frame := frameOf(detector.FlatEdgeLandmarks())

	for _, gate := range []bool{true, false} {
		got, err := Extract(frame, gate)
		if err != nil {
			t.Fatalf("gate=%v: Extract() error = %v", gate, err)
		}
		if got.IsSome() {
			s, _ := got.Get()
			t.Errorf("gate=%v: parallel edges should be absent, got %+v", gate, s)
		}
	}
}

func TestExtract_HandednessSymmetry(t *testing.T) {
	right := detector.TiltedPalmLandmarks()
	left := detector.Mirror(right)

	r := mustSample(t)(Extract(frameOf(right), true))
	l := mustSample(t)(Extract(frameOf(left), true))

	// Reflecting landmark x maps to display y; everything else is unchanged.
	want := Sample{
		Eye: detector.Point3D{X: r.Eye.X, Y: -r.Eye.Y, Z: r.Eye.Z},
		Up:  detector.Point3D{X: r.Up.X, Y: -r.Up.Y, Z: r.Up.Z},
	}
	if diff := cmp.Diff(want, l, cmpopts.EquateApprox(0, 2e-3)); diff != "" {
		t.Errorf("mirrored hand mismatch (-want +got):\n%s", diff)
	}

	// The camera stays on the same side of the palm for both hands.
	if math.Signbit(r.Eye.X) != math.Signbit(l.Eye.X) {
		t.Errorf("outward normal flipped: right eye.x=%f, left eye.x=%f", r.Eye.X, l.Eye.X)
	}
}

func TestExtract_AspectNormalization(t *testing.T) {
	hand := detector.TiltedPalmLandmarks()

	wide := mustSample(t)(Extract(detector.Frame{Width: 640, Height: 480, Hand: hand}, false))
	square := mustSample(t)(Extract(detector.Frame{Width: 480, Height: 480, Hand: hand}, false))

	if cmp.Equal(wide, square, approx) {
		t.Error("image aspect should change the derived orientation")
	}

	points := Normalize(detector.Frame{Width: 200, Height: 100, Hand: hand})
	if got, want := points[detector.Wrist].Y, hand.Points[detector.Wrist].Y*0.5; got != want {
		t.Errorf("normalized wrist y = %f, want %f", got, want)
	}
	if got := points[detector.Wrist].X; got != hand.Points[detector.Wrist].X {
		t.Errorf("x must not be rescaled, got %f", got)
	}
}

func TestExtract_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		frame detector.Frame
	}{
		{name: "no image width", frame: detector.Frame{Height: 480, Hand: detector.OpenPalmLandmarks()}},
		{name: "no handedness", frame: frameOf(detector.HandLandmarks{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.frame, true)
			if !errors.Is(err, detector.ErrMalformedFrame) {
				t.Errorf("Extract() error = %v, want ErrMalformedFrame", err)
			}
			if got.IsSome() {
				t.Error("malformed frame must not yield a sample")
			}
		})
	}
}

func TestNewExtractor_Defaults(t *testing.T) {
	e := NewExtractor(Config{Mirrored: true})
	s := mustSample(t)(e.Extract(frameOf(detector.OpenPalmLandmarks()), false))

	if math.Abs(math.Abs(s.Eye.X)-DefaultZoomOut) > 1e-9 {
		t.Errorf("zero ZoomOut should fall back to %f, got eye %+v", DefaultZoomOut, s.Eye)
	}

	zoomed := NewExtractor(Config{ZoomOut: 3, Mirrored: true})
	s = mustSample(t)(zoomed.Extract(frameOf(detector.OpenPalmLandmarks()), false))
	if math.Abs(s.Eye.X+3) > 1e-9 {
		t.Errorf("eye.x = %f, want -3", s.Eye.X)
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{in: 1.23456, want: 1.235},
		{in: -1.23449, want: -1.234},
		// Halves round to even, as numpy does.
		{in: 0.0625, want: 0.062},
		{in: 0.1875, want: 0.188},
		{in: 2, want: 2},
	}

	for _, tt := range tests {
		if got := quantize(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("quantize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
