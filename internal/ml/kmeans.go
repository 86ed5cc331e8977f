package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// KMeans partitions standardized feature vectors into K behavior archetypes.
// Initialization is k-means++ with a fixed seed, so a fit is reproducible.
type KMeans struct {
	K         int         `json:"k"`
	MaxIter   int         `json:"max_iter"`
	Seed      int64       `json:"seed"`
	Centroids [][]float64 `json:"centroids"`
}

// NewKMeans configures an unfitted clusterer.
func NewKMeans(k int, seed int64) *KMeans {
	if k <= 0 {
		k = 4
	}
	return &KMeans{K: k, MaxIter: 100, Seed: seed}
}

// Fit learns K centroids from X. Fewer rows than K leaves duplicate
// centroids, which keeps Assign total without special cases.
func (k *KMeans) Fit(X [][]float64) error {
	if len(X) == 0 {
		return fmt.Errorf("clusterer fit requires at least one row")
	}
	rng := rand.New(rand.NewSource(k.Seed))
	k.Centroids = k.seedCentroids(X, rng)

	assignments := make([]int, len(X))
	for iter := 0; iter < k.MaxIter; iter++ {
		changed := false
		for i, row := range X {
			c := k.Assign(row)
			if c != assignments[i] {
				assignments[i] = c
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		dims := len(X[0])
		sums := make([][]float64, k.K)
		counts := make([]int, k.K)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, row := range X {
			c := assignments[i]
			counts[c]++
			for j, v := range row {
				sums[c][j] += v
			}
		}
		for c := 0; c < k.K; c++ {
			if counts[c] == 0 {
				// Empty cluster keeps its previous centroid.
				continue
			}
			for j := range sums[c] {
				k.Centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}
	return nil
}

// Assign returns the nearest centroid index in [0, K).
func (k *KMeans) Assign(x []float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range k.Centroids {
		d := squaredDistance(x, centroid)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// seedCentroids runs k-means++ seeding: each new centroid is drawn with
// probability proportional to squared distance from the nearest chosen one.
func (k *KMeans) seedCentroids(X [][]float64, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k.K)
	centroids = append(centroids, cloneVector(X[rng.Intn(len(X))]))

	for len(centroids) < k.K {
		dists := make([]float64, len(X))
		total := 0.0
		for i, row := range X {
			nearest := math.Inf(1)
			for _, c := range centroids {
				if d := squaredDistance(row, c); d < nearest {
					nearest = d
				}
			}
			dists[i] = nearest
			total += nearest
		}
		if total == 0 {
			// All remaining points coincide with a centroid; duplicate one.
			centroids = append(centroids, cloneVector(X[rng.Intn(len(X))]))
			continue
		}
		target := rng.Float64() * total
		acc := 0.0
		pick := len(X) - 1
		for i, d := range dists {
			acc += d
			if acc >= target {
				pick = i
				break
			}
		}
		centroids = append(centroids, cloneVector(X[pick]))
	}
	return centroids
}

func squaredDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
