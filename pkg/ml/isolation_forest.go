package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// IsolationForest is an unsupervised outlier detector. Samples that
// isolate in few random splits receive short average path lengths and
// therefore high anomaly scores.
//
// DecisionValue follows the larger-is-more-normal convention: the fit
// computes a contamination-based offset from the training scores and
// reports offset minus the sample's anomaly score.
type IsolationForest struct {
	trees      []*isolationTree
	numTrees   int
	sampleSize int
	maxDepth   int

	contamination float64
	offset        float64
	seed          int64
}

type isolationTree struct {
	root *treeNode
}

type treeNode struct {
	splitFeature int
	splitValue   float64
	left         *treeNode
	right        *treeNode
	size         int
}

// NewIsolationForest builds an unfitted forest. The seed makes every
// fit reproducible for a given training set.
func NewIsolationForest(numTrees, sampleSize int, contamination float64, seed int64) *IsolationForest {
	if numTrees <= 0 {
		numTrees = 100
	}
	if sampleSize <= 0 {
		sampleSize = 256
	}
	if contamination <= 0 || contamination >= 1 {
		contamination = 0.02
	}
	return &IsolationForest{
		numTrees:      numTrees,
		sampleSize:    sampleSize,
		maxDepth:      int(math.Ceil(math.Log2(float64(sampleSize)))),
		contamination: contamination,
		seed:          seed,
	}
}

// Fit trains the forest on the given samples and derives the decision
// offset so roughly the contamination fraction of the training set
// falls below zero.
func (f *IsolationForest) Fit(data [][]float64) error {
	if len(data) == 0 {
		return fmt.Errorf("isolation forest: no training data")
	}
	if len(data[0]) == 0 {
		return fmt.Errorf("isolation forest: empty feature vectors")
	}

	rng := rand.New(rand.NewSource(f.seed))
	trees := make([]*isolationTree, f.numTrees)
	for i := range trees {
		sample := sampleRows(rng, data, f.sampleSize)
		trees[i] = &isolationTree{root: buildTree(rng, sample, 0, f.maxDepth)}
	}
	f.trees = trees

	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = f.anomalyScore(row)
	}
	sort.Float64s(scores)
	cut := int(float64(len(scores)) * (1 - f.contamination))
	if cut >= len(scores) {
		cut = len(scores) - 1
	}
	f.offset = scores[cut]

	return nil
}

// Fitted reports whether Fit has completed successfully.
func (f *IsolationForest) Fitted() bool {
	return len(f.trees) > 0
}

// DecisionValue returns the decision score for one sample: positive
// values are normal, negative values anomalous.
func (f *IsolationForest) DecisionValue(sample []float64) (float64, error) {
	if !f.Fitted() {
		return 0, fmt.Errorf("isolation forest: not fitted")
	}
	if len(sample) == 0 {
		return 0, fmt.Errorf("isolation forest: empty sample")
	}
	return f.offset - f.anomalyScore(sample), nil
}

// anomalyScore is the standard isolation forest score in (0,1]:
// higher means more isolated, thus more anomalous.
func (f *IsolationForest) anomalyScore(sample []float64) float64 {
	total := 0.0
	for _, tree := range f.trees {
		total += pathLength(tree.root, sample, 0)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/averagePathLength(f.sampleSize))
}

func buildTree(rng *rand.Rand, data [][]float64, depth, maxDepth int) *treeNode {
	if len(data) <= 1 || depth >= maxDepth {
		return &treeNode{size: len(data)}
	}

	featureIdx := rng.Intn(len(data[0]))
	minVal, maxVal := featureRange(data, featureIdx)
	if minVal == maxVal {
		return &treeNode{size: len(data)}
	}

	splitValue := minVal + rng.Float64()*(maxVal-minVal)

	var left, right [][]float64
	for _, row := range data {
		if row[featureIdx] < splitValue {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &treeNode{
		splitFeature: featureIdx,
		splitValue:   splitValue,
		size:         len(data),
		left:         buildTree(rng, left, depth+1, maxDepth),
		right:        buildTree(rng, right, depth+1, maxDepth),
	}
}

func pathLength(node *treeNode, sample []float64, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + averagePathLength(node.size)
	}
	idx := node.splitFeature
	if idx >= len(sample) {
		idx = len(sample) - 1
	}
	if sample[idx] < node.splitValue {
		return pathLength(node.left, sample, depth+1)
	}
	return pathLength(node.right, sample, depth+1)
}

func sampleRows(rng *rand.Rand, data [][]float64, size int) [][]float64 {
	if len(data) <= size {
		return data
	}
	sample := make([][]float64, size)
	for i := range sample {
		sample[i] = data[rng.Intn(len(data))]
	}
	return sample
}

func featureRange(data [][]float64, idx int) (float64, float64) {
	minVal, maxVal := data[0][idx], data[0][idx]
	for _, row := range data {
		if row[idx] < minVal {
			minVal = row[idx]
		}
		if row[idx] > maxVal {
			maxVal = row[idx]
		}
	}
	return minVal, maxVal
}

// averagePathLength is the expected path length of an unsuccessful BST
// search over n samples, the normalization constant c(n).
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	const eulerMascheroni = 0.5772156649
	return 2.0*(math.Log(float64(n-1))+eulerMascheroni) - 2.0*float64(n-1)/float64(n)
}
