package mlearn

import (
	"errors"
	"math/rand"
	"runtime"
	"sync"
)

// Forest averages bootstrap-trained regression trees. Tree i draws from a
// generator seeded with Seed+i, so the fitted forest is identical for a
// given seed no matter how the training workers are scheduled.
type Forest struct {
	Trees           []*Tree
	NEstimators     int
	MinSamplesSplit int
	MaxDepth        int
	Seed            int64
	NFeatures       int
}

func NewForest(nEstimators int, seed int64) *Forest {
	if nEstimators <= 0 {
		nEstimators = 100
	}
	return &Forest{NEstimators: nEstimators, MinSamplesSplit: 2, Seed: seed}
}

func (f *Forest) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return errors.New("mlearn: empty training set")
	}
	if len(X) != len(y) {
		return errors.New("mlearn: feature and label counts differ")
	}

	f.NFeatures = len(X[0])
	f.Trees = make([]*Tree, f.NEstimators)

	workers := runtime.NumCPU()
	if workers > f.NEstimators {
		workers = f.NEstimators
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < f.NEstimators; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			rng := rand.New(rand.NewSource(f.Seed + int64(i)))
			bx, by := bootstrapSample(X, y, rng)
			tree := NewTree(f.MinSamplesSplit, f.MaxDepth)
			tree.Fit(bx, by)
			f.Trees[i] = tree
		}(i)
	}
	wg.Wait()
	return nil
}

func bootstrapSample(X [][]float64, y []float64, rng *rand.Rand) ([][]float64, []float64) {
	n := len(X)
	bx := make([][]float64, n)
	by := make([]float64, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		bx[i] = X[j]
		by[i] = y[j]
	}
	return bx, by
}

func (f *Forest) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(f.Trees) == 0 {
		return out
	}
	for i, x := range X {
		var sum float64
		for _, tree := range f.Trees {
			sum += tree.Predict(x)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out
}

// FeatureImportances averages each tree's normalized impurity decreases and
// renormalizes so the result sums to one (all zeros if no split ever
// reduced impurity).
func (f *Forest) FeatureImportances() []float64 {
	imp := make([]float64, f.NFeatures)
	for _, tree := range f.Trees {
		for j, v := range tree.Importances {
			imp[j] += v
		}
	}
	var total float64
	for _, v := range imp {
		total += v
	}
	if total > 0 {
		for j := range imp {
			imp[j] /= total
		}
	}
	return imp
}
