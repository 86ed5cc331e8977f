package ml

import (
	"math/rand"
	"testing"
)

// blobs draws points around well-separated centers.
func blobs(perCluster int, seed int64, centers [][]float64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, 0, perCluster*len(centers))
	for _, c := range centers {
		for i := 0; i < perCluster; i++ {
			X = append(X, []float64{
				c[0] + rng.NormFloat64()*0.1,
				c[1] + rng.NormFloat64()*0.1,
			})
		}
	}
	return X
}

func TestKMeansSeparatesBlobs(t *testing.T) {
	centers := [][]float64{{0, 0}, {10, 0}, {0, 10}, {10, 10}}
	X := blobs(30, 1, centers)

	km := NewKMeans(4, 42)
	if err := km.Fit(X); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Every point in one blob must land in the same cluster, and the four
	// blobs must get four distinct ids.
	seen := make(map[int]bool)
	for b := 0; b < 4; b++ {
		first := km.Assign(X[b*30])
		if first < 0 || first >= 4 {
			t.Fatalf("cluster id %d outside [0,4)", first)
		}
		for i := 1; i < 30; i++ {
			if c := km.Assign(X[b*30+i]); c != first {
				t.Fatalf("blob %d split across clusters %d and %d", b, first, c)
			}
		}
		seen[first] = true
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct clusters, got %d", len(seen))
	}
}

func TestKMeansDeterministicForSeed(t *testing.T) {
	X := blobs(20, 2, [][]float64{{0, 0}, {5, 5}})

	a := NewKMeans(2, 7)
	b := NewKMeans(2, 7)
	if err := a.Fit(X); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Fit(X); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, row := range X {
		if a.Assign(row) != b.Assign(row) {
			t.Fatal("same seed, different assignments")
		}
	}
}

func TestKMeansFewerRowsThanK(t *testing.T) {
	X := [][]float64{{1, 1}, {2, 2}}

	km := NewKMeans(4, 1)
	if err := km.Fit(X); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(km.Centroids) != 4 {
		t.Fatalf("expected 4 centroids, got %d", len(km.Centroids))
	}
	for _, row := range X {
		if c := km.Assign(row); c < 0 || c >= 4 {
			t.Fatalf("cluster id %d outside [0,4)", c)
		}
	}
}

func TestKMeansEmptyFit(t *testing.T) {
	km := NewKMeans(4, 1)
	if err := km.Fit(nil); err == nil {
		t.Fatal("expected error for empty fit input")
	}
}
