package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const eulerMascheroni = 0.5772156649

type isoNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Size      int     `json:"n"`
	Leaf      bool    `json:"leaf"`
}

type isoTree struct {
	Nodes []isoNode `json:"nodes"`
}

// IsolationForest scores how easily a point separates from the fitted
// population. DecisionScore is positive for typical points and negative for
// outliers; the threshold is calibrated at fit time so that roughly
// Contamination of the fitted rows are flagged.
type IsolationForest struct {
	TreeCount     int       `json:"tree_count"`
	SampleSize    int       `json:"sample_size"`
	Contamination float64   `json:"contamination"`
	Seed          int64     `json:"seed"`
	Threshold     float64   `json:"threshold"`
	Trees         []isoTree `json:"trees"`
}

// NewIsolationForest configures an unfitted detector.
func NewIsolationForest(trees int, contamination float64, seed int64) *IsolationForest {
	if trees <= 0 {
		trees = 100
	}
	if contamination <= 0 || contamination >= 0.5 {
		contamination = 0.1
	}
	return &IsolationForest{TreeCount: trees, Contamination: contamination, Seed: seed}
}

// Fit builds the isolation trees over X and calibrates the decision
// threshold at the contamination percentile of the fitted scores.
func (f *IsolationForest) Fit(X [][]float64) error {
	if len(X) == 0 {
		return fmt.Errorf("detector fit requires at least one row")
	}
	rng := rand.New(rand.NewSource(f.Seed))

	f.SampleSize = 256
	if len(X) < f.SampleSize {
		f.SampleSize = len(X)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(f.SampleSize)))) + 1

	f.Trees = make([]isoTree, 0, f.TreeCount)
	for i := 0; i < f.TreeCount; i++ {
		sample := make([]int, f.SampleSize)
		for j := range sample {
			sample[j] = rng.Intn(len(X))
		}
		builder := isoBuilder{X: X, maxDepth: maxDepth, rng: rng}
		f.Trees = append(f.Trees, isoTree{Nodes: builder.build(sample)})
	}

	scores := make([]float64, len(X))
	for i, row := range X {
		scores[i] = f.rawDecision(row)
	}
	sort.Float64s(scores)
	cut := int(f.Contamination * float64(len(scores)))
	if cut >= len(scores) {
		cut = len(scores) - 1
	}
	f.Threshold = scores[cut]
	return nil
}

// DecisionScore returns the calibrated decision value: negative means the
// point falls in the flagged tail of the fitted population.
func (f *IsolationForest) DecisionScore(x []float64) float64 {
	return f.rawDecision(x) - f.Threshold
}

// IsAnomaly reports whether the decision score falls below the calibrated
// threshold.
func (f *IsolationForest) IsAnomaly(x []float64) bool {
	return f.rawDecision(x) < f.Threshold
}

// rawDecision maps the mean isolation path length onto 0.5 - s(x), the
// uncalibrated decision axis where smaller means more isolated.
func (f *IsolationForest) rawDecision(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.pathLength(x)
	}
	avg := sum / float64(len(f.Trees))
	s := math.Pow(2, -avg/avgPathLength(f.SampleSize))
	return 0.5 - s
}

func (t isoTree) pathLength(x []float64) float64 {
	depth := 0.0
	i := 0
	for {
		node := t.Nodes[i]
		if node.Leaf {
			return depth + avgPathLength(node.Size)
		}
		depth++
		if node.Feature < len(x) && x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

// avgPathLength is the expected path length of an unsuccessful BST search,
// the standard normalizer c(n).
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	h := math.Log(float64(n-1)) + eulerMascheroni
	return 2*h - 2*float64(n-1)/float64(n)
}

type isoBuilder struct {
	X        [][]float64
	maxDepth int
	rng      *rand.Rand
	nodes    []isoNode
}

func (b *isoBuilder) build(indices []int) []isoNode {
	b.nodes = b.nodes[:0]
	b.grow(indices, 0)
	return b.nodes
}

func (b *isoBuilder) grow(indices []int, depth int) int {
	if depth >= b.maxDepth || len(indices) <= 1 {
		b.nodes = append(b.nodes, isoNode{Leaf: true, Size: len(indices)})
		return len(b.nodes) - 1
	}

	featureCount := len(b.X[indices[0]])
	feature, lo, hi := b.pickSplit(indices, featureCount)
	if feature < 0 {
		b.nodes = append(b.nodes, isoNode{Leaf: true, Size: len(indices)})
		return len(b.nodes) - 1
	}
	threshold := lo + b.rng.Float64()*(hi-lo)

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, idx := range indices {
		if b.X[idx][feature] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		b.nodes = append(b.nodes, isoNode{Leaf: true, Size: len(indices)})
		return len(b.nodes) - 1
	}

	node := len(b.nodes)
	b.nodes = append(b.nodes, isoNode{Feature: feature, Threshold: threshold, Size: len(indices)})
	b.nodes[node].Left = b.grow(left, depth+1)
	b.nodes[node].Right = b.grow(right, depth+1)
	return node
}

// pickSplit chooses a random feature that still varies within the partition.
func (b *isoBuilder) pickSplit(indices []int, featureCount int) (int, float64, float64) {
	for _, feature := range b.rng.Perm(featureCount) {
		lo, hi := b.X[indices[0]][feature], b.X[indices[0]][feature]
		for _, idx := range indices[1:] {
			v := b.X[idx][feature]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi > lo {
			return feature, lo, hi
		}
	}
	return -1, 0, 0
}
