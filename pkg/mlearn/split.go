package mlearn

import (
	"math"
	"math/rand"
)

// TrainTestSplit shuffles [0,n) with a seeded generator and reserves
// ceil(n*testSize) indices for evaluation.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })

	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest > n {
		nTest = n
	}
	return idx[nTest:], idx[:nTest]
}

// KFold cuts [0,n) into k consecutive folds, the first n%k folds one element
// larger. No shuffling.
func KFold(n, k int) [][]int {
	folds := make([][]int, k)
	base := n / k
	rem := n % k
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < rem {
			size++
		}
		fold := make([]int, size)
		for j := 0; j < size; j++ {
			fold[j] = start + j
		}
		start += size
		folds[i] = fold
	}
	return folds
}

// Take returns the elements of s at the given indices.
func Take[T any](s []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = s[j]
	}
	return out
}
