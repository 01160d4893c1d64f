package mlearn

import (
	"math"
	"sort"
)

// Node is a single decision node. Leaves have nil children and carry the
// predicted value.
type Node struct {
	Feature   int
	Threshold float64
	Left      *Node
	Right     *Node
	Value     float64
}

// Tree is a CART regression tree split by variance reduction. A node becomes
// a leaf when it has fewer than MinSamplesSplit samples, zero variance, no
// valid threshold, or sits at MaxDepth (0 means unbounded).
type Tree struct {
	Root            *Node
	NFeatures       int
	MinSamplesSplit int
	MaxDepth        int
	Importances     []float64
}

func NewTree(minSamplesSplit, maxDepth int) *Tree {
	if minSamplesSplit < 2 {
		minSamplesSplit = 2
	}
	return &Tree{MinSamplesSplit: minSamplesSplit, MaxDepth: maxDepth}
}

func (t *Tree) Fit(X [][]float64, y []float64) {
	t.NFeatures = 0
	if len(X) > 0 {
		t.NFeatures = len(X[0])
	}
	t.Importances = make([]float64, t.NFeatures)

	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	t.Root = t.build(X, y, idx, len(y), 0)

	total := 0.0
	for _, v := range t.Importances {
		total += v
	}
	if total > 0 {
		for i := range t.Importances {
			t.Importances[i] /= total
		}
	}
}

func (t *Tree) build(X [][]float64, y []float64, idx []int, nTotal, depth int) *Node {
	n := len(idx)
	mean, variance := meanVariance(y, idx)
	if n < t.MinSamplesSplit || variance <= 1e-12 || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return &Node{Feature: -1, Value: mean}
	}

	nodeSSE := variance * float64(n)
	bestFeature := -1
	bestThreshold := 0.0
	bestScore := math.Inf(1)

	order := make([]int, n)
	for f := 0; f < t.NFeatures; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		var sumL, sumSqL, sumR, sumSqR float64
		for _, i := range order {
			sumR += y[i]
			sumSqR += y[i] * y[i]
		}
		for pos := 0; pos < n-1; pos++ {
			i := order[pos]
			sumL += y[i]
			sumSqL += y[i] * y[i]
			sumR -= y[i]
			sumSqR -= y[i] * y[i]

			v := X[i][f]
			next := X[order[pos+1]][f]
			if next <= v {
				continue
			}
			nL := float64(pos + 1)
			nR := float64(n - pos - 1)
			// summed squared error of both children
			score := (sumSqL - sumL*sumL/nL) + (sumSqR - sumR*sumR/nR)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = (v + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return &Node{Feature: -1, Value: mean}
	}

	leftIdx := make([]int, 0, n)
	rightIdx := make([]int, 0, n)
	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	if decrease := (nodeSSE - bestScore) / float64(nTotal); decrease > 0 {
		t.Importances[bestFeature] += decrease
	}

	return &Node{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Value:     mean,
		Left:      t.build(X, y, leftIdx, nTotal, depth+1),
		Right:     t.build(X, y, rightIdx, nTotal, depth+1),
	}
}

func (t *Tree) Predict(x []float64) float64 {
	node := t.Root
	for node.Left != nil {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

func meanVariance(y []float64, idx []int) (float64, float64) {
	n := float64(len(idx))
	if n == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}
