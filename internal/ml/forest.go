package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// treeNode is one node of a serialized decision tree. Leaf nodes carry the
// mean target of their training partition; internal nodes route on
// feature <= threshold.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
	Leaf      bool    `json:"leaf"`
}

type regTree struct {
	Nodes []treeNode `json:"nodes"`
}

func (t regTree) predict(x []float64) float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Leaf {
			return node.Value
		}
		if node.Feature < len(x) && x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

// ForestRegressor predicts a real-valued score as the mean of a bagged
// ensemble of variance-reduction trees. Bootstrap sampling and per-split
// feature subsets are drawn from a fixed seed, so training is reproducible.
type ForestRegressor struct {
	TreeCount int       `json:"tree_count"`
	MaxDepth  int       `json:"max_depth"`
	Seed      int64     `json:"seed"`
	Trees     []regTree `json:"trees"`
}

// NewForestRegressor configures an unfitted forest.
func NewForestRegressor(trees, maxDepth int, seed int64) *ForestRegressor {
	if trees <= 0 {
		trees = 100
	}
	if maxDepth <= 0 {
		maxDepth = 10
	}
	return &ForestRegressor{TreeCount: trees, MaxDepth: maxDepth, Seed: seed}
}

// Fit trains the ensemble on rows X with targets y.
func (f *ForestRegressor) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("regressor fit requires matching non-empty X and y")
	}
	rng := rand.New(rand.NewSource(f.Seed))
	featureCount := len(X[0])
	mtry := featureCount / 3
	if mtry < 1 {
		mtry = 1
	}

	f.Trees = make([]regTree, 0, f.TreeCount)
	for i := 0; i < f.TreeCount; i++ {
		sample := make([]int, len(X))
		for j := range sample {
			sample[j] = rng.Intn(len(X))
		}
		builder := treeBuilder{X: X, y: y, maxDepth: f.MaxDepth, mtry: mtry, rng: rng}
		f.Trees = append(f.Trees, regTree{Nodes: builder.build(sample)})
	}
	return nil
}

// Predict returns the ensemble mean for one feature vector.
func (f *ForestRegressor) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.Trees))
}

type treeBuilder struct {
	X        [][]float64
	y        []float64
	maxDepth int
	mtry     int
	rng      *rand.Rand
	nodes    []treeNode
}

func (b *treeBuilder) build(indices []int) []treeNode {
	b.nodes = b.nodes[:0]
	b.grow(indices, 0)
	return b.nodes
}

// grow appends the subtree for the given sample partition and returns its
// root index within the node slice.
func (b *treeBuilder) grow(indices []int, depth int) int {
	mean := meanTarget(b.y, indices)
	if depth >= b.maxDepth || len(indices) < 2 || constantTarget(b.y, indices) {
		return b.leaf(mean)
	}

	feature, threshold, ok := b.bestSplit(indices)
	if !ok {
		return b.leaf(mean)
	}

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
		return b.leaf(mean)
	}

	node := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Feature: feature, Threshold: threshold})
	b.nodes[node].Left = b.grow(left, depth+1)
	b.nodes[node].Right = b.grow(right, depth+1)
	return node
}

func (b *treeBuilder) leaf(value float64) int {
	b.nodes = append(b.nodes, treeNode{Leaf: true, Value: value})
	return len(b.nodes) - 1
}

// bestSplit scans a random feature subset for the threshold with the largest
// sum-of-squares reduction.
func (b *treeBuilder) bestSplit(indices []int) (int, float64, bool) {
	featureCount := len(b.X[indices[0]])
	candidates := b.rng.Perm(featureCount)[:b.mtry]

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	total, totalSq := 0.0, 0.0
	for _, idx := range indices {
		total += b.y[idx]
		totalSq += b.y[idx] * b.y[idx]
	}
	n := float64(len(indices))
	parentSSE := totalSq - total*total/n

	order := make([]int, len(indices))
	for _, feature := range candidates {
		copy(order, indices)
		sort.Slice(order, func(i, j int) bool {
			return b.X[order[i]][feature] < b.X[order[j]][feature]
		})

		leftSum, leftSq := 0.0, 0.0
		for i := 0; i < len(order)-1; i++ {
			idx := order[i]
			leftSum += b.y[idx]
			leftSq += b.y[idx] * b.y[idx]

			cur := b.X[idx][feature]
			next := b.X[order[i+1]][feature]
			if cur == next {
				continue
			}

			nl := float64(i + 1)
			nr := n - nl
			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			gain := parentSSE - sse
			if gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 || bestGain <= 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func meanTarget(y []float64, indices []int) float64 {
	sum := 0.0
	for _, idx := range indices {
		sum += y[idx]
	}
	return sum / float64(len(indices))
}

func constantTarget(y []float64, indices []int) bool {
	first := y[indices[0]]
	for _, idx := range indices[1:] {
		if math.Abs(y[idx]-first) > 1e-12 {
			return false
		}
	}
	return true
}
