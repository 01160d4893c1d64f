package mlearn

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Importance is one entry of a ranked feature-importance list.
type Importance struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"importance"`
}

// CrossValR2 fits a fresh pipeline per fold on the complement rows and
// scores R2 on the fold, over consecutive k folds of the full input (see the
// package note on fold overlap). Returns the mean and population standard
// deviation of the fold scores.
func CrossValR2(numeric [][]float64, categorical [][]string, y []float64, k int, factory func() *Pipeline) (mean, std float64, err error) {
	n := len(y)
	if k < 2 {
		return 0, 0, fmt.Errorf("mlearn: need at least 2 folds, got %d", k)
	}
	if n < k {
		return 0, 0, fmt.Errorf("mlearn: cannot cut %d samples into %d folds", n, k)
	}
	if categorical == nil {
		categorical = make([][]string, n)
	}

	scores := make([]float64, 0, k)
	for _, fold := range KFold(n, k) {
		inFold := make([]bool, n)
		for _, i := range fold {
			inFold[i] = true
		}
		trainIdx := make([]int, 0, n-len(fold))
		for i := 0; i < n; i++ {
			if !inFold[i] {
				trainIdx = append(trainIdx, i)
			}
		}

		p := factory()
		if err := p.Fit(Take(numeric, trainIdx), Take(categorical, trainIdx), Take(y, trainIdx)); err != nil {
			return 0, 0, err
		}
		pred, err := p.Predict(Take(numeric, fold), Take(categorical, fold))
		if err != nil {
			return 0, 0, err
		}
		scores = append(scores, R2(Take(y, fold), pred))
	}
	return stat.Mean(scores, nil), stat.PopStdDev(scores, nil), nil
}
