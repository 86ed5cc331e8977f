// Package ml holds the fitted model implementations behind the scoring
// pipeline: a score regressor, an anomaly detector, and a behavior clusterer.
// All three are deterministic for a fixed seed and serialize to JSON so a
// model set round-trips through the registry bit for bit.
package ml

import (
	"fmt"
	"math"
)

// Scaler standardizes feature vectors to zero mean and unit variance using
// parameters captured at fit time.
type Scaler struct {
	Means  []float64 `json:"means"`
	Scales []float64 `json:"scales"`
}

// FitScaler learns per-column mean and standard deviation. A zero-variance
// column scales by 1 so standardization never divides by zero.
func FitScaler(X [][]float64) (*Scaler, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("scaler requires at least one row")
	}
	cols := len(X[0])
	means := make([]float64, cols)
	scales := make([]float64, cols)

	for j := 0; j < cols; j++ {
		sum := 0.0
		for _, row := range X {
			sum += row[j]
		}
		means[j] = sum / float64(len(X))

		ss := 0.0
		for _, row := range X {
			d := row[j] - means[j]
			ss += d * d
		}
		scales[j] = math.Sqrt(ss / float64(len(X)))
		if scales[j] == 0 {
			scales[j] = 1
		}
	}
	return &Scaler{Means: means, Scales: scales}, nil
}

// Transform standardizes one vector. Vectors longer than the fitted width are
// truncated; shorter ones standardize the columns they have.
func (s *Scaler) Transform(x []float64) []float64 {
	n := len(x)
	if n > len(s.Means) {
		n = len(s.Means)
	}
	out := make([]float64, n)
	for j := 0; j < n; j++ {
		out[j] = (x[j] - s.Means[j]) / s.Scales[j]
	}
	return out
}

// TransformAll standardizes a full matrix.
func (s *Scaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}
