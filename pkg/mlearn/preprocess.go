package mlearn

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// NumericTransformer mean-imputes missing values (represented as NaN) and
// standardizes each column to zero mean and unit variance. The spread is the
// population standard deviation of the imputed training column; zero-variance
// columns get scale 1 so transformed values stay finite.
type NumericTransformer struct {
	Means  []float64
	Scales []float64
}

func (nt *NumericTransformer) Fit(X [][]float64) {
	cols := 0
	if len(X) > 0 {
		cols = len(X[0])
	}
	nt.Means = make([]float64, cols)
	nt.Scales = make([]float64, cols)

	imputed := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		present := make([]float64, 0, len(X))
		for i := range X {
			if !math.IsNaN(X[i][j]) {
				present = append(present, X[i][j])
			}
		}
		if len(present) > 0 {
			nt.Means[j] = stat.Mean(present, nil)
		}

		for i := range X {
			v := X[i][j]
			if math.IsNaN(v) {
				v = nt.Means[j]
			}
			imputed[i] = v
		}
		sd := stat.PopStdDev(imputed, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		nt.Scales[j] = sd
	}
}

func (nt *NumericTransformer) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		row := make([]float64, len(nt.Means))
		for j := range nt.Means {
			v := X[i][j]
			if math.IsNaN(v) {
				v = nt.Means[j]
			}
			row[j] = (v - nt.Means[j]) / nt.Scales[j]
		}
		out[i] = row
	}
	return out
}

// OneHotEncoder maps each categorical column to one indicator column per
// category seen during fit, categories sorted lexically. Values unseen at
// transform time yield an all-zero block instead of an error.
type OneHotEncoder struct {
	Categories [][]string
}

func (enc *OneHotEncoder) Fit(X [][]string) {
	cols := 0
	if len(X) > 0 {
		cols = len(X[0])
	}
	enc.Categories = make([][]string, cols)
	for j := 0; j < cols; j++ {
		seen := make(map[string]struct{})
		for i := range X {
			seen[X[i][j]] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for c := range seen {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		enc.Categories[j] = cats
	}
}

func (enc *OneHotEncoder) Transform(X [][]string) [][]float64 {
	width := enc.Width()
	out := make([][]float64, len(X))
	for i := range X {
		row := make([]float64, width)
		offset := 0
		for j, cats := range enc.Categories {
			v := X[i][j]
			for k, c := range cats {
				if v == c {
					row[offset+k] = 1
					break
				}
			}
			offset += len(cats)
		}
		out[i] = row
	}
	return out
}

func (enc *OneHotEncoder) Width() int {
	w := 0
	for _, cats := range enc.Categories {
		w += len(cats)
	}
	return w
}

// FeatureNames expands column names into per-category names,
// "<column>_<category>".
func (enc *OneHotEncoder) FeatureNames(columns []string) []string {
	names := make([]string, 0, enc.Width())
	for j, cats := range enc.Categories {
		for _, c := range cats {
			names = append(names, columns[j]+"_"+c)
		}
	}
	return names
}
