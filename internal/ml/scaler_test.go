package ml

import (
	"math"
	"testing"
)

func TestFitScalerStandardizes(t *testing.T) {
	X := [][]float64{
		{1, 10},
		{2, 10},
		{3, 10},
	}
	s, err := FitScaler(X)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Means[0] != 2 {
		t.Fatalf("mean[0]=%v, want 2", s.Means[0])
	}
	// Constant column must scale by 1, not divide by zero.
	if s.Scales[1] != 1 {
		t.Fatalf("constant column scale %v, want 1", s.Scales[1])
	}

	scaled := s.TransformAll(X)
	sum := 0.0
	for _, row := range scaled {
		sum += row[0]
		if math.IsNaN(row[1]) || math.IsInf(row[1], 0) {
			t.Fatalf("constant column standardized to non-finite %v", row[1])
		}
	}
	if math.Abs(sum) > 1e-9 {
		t.Fatalf("standardized column mean %v, want 0", sum/3)
	}
}

func TestFitScalerEmptyInput(t *testing.T) {
	if _, err := FitScaler(nil); err == nil {
		t.Fatal("expected error for empty fit input")
	}
}

func TestTransformTruncatesWiderVectors(t *testing.T) {
	s := &Scaler{Means: []float64{0, 0}, Scales: []float64{1, 1}}
	out := s.Transform([]float64{1, 2, 3})
	if len(out) != 2 {
		t.Fatalf("expected truncation to fitted width, got %d columns", len(out))
	}
}
