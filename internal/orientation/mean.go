package orientation

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/handeye/internal/detector"
	"github.com/ayusman/handeye/internal/smooth"
)

// Mean returns the component-wise arithmetic mean of the eye and up vectors.
// samples must not be empty.
func Mean(samples []Sample) Sample {
	n := len(samples)
	cols := make([][]float64, 6)
	for i := range cols {
		cols[i] = make([]float64, n)
	}
	for i, s := range samples {
		cols[0][i], cols[1][i], cols[2][i] = s.Eye.X, s.Eye.Y, s.Eye.Z
		cols[3][i], cols[4][i], cols[5][i] = s.Up.X, s.Up.Y, s.Up.Z
	}

	return Sample{
		Eye: detector.Point3D{X: stat.Mean(cols[0], nil), Y: stat.Mean(cols[1], nil), Z: stat.Mean(cols[2], nil)},
		Up:  detector.Point3D{X: stat.Mean(cols[3], nil), Y: stat.Mean(cols[4], nil), Z: stat.Mean(cols[5], nil)},
	}
}

// MeanAggregator is the default smoothing aggregator: Mean over the present
// samples of a window.
func MeanAggregator() smooth.Aggregator[Sample] {
	return smooth.PresentOnly(Mean)
}

// NewWindow returns a smoothing window of the given size using MeanAggregator.
func NewWindow(size int, filterAbsent bool) (*smooth.Window[Sample], error) {
	return smooth.New(size, MeanAggregator(), filterAbsent)
}
