package mlearn

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
)

// MissingCategory is the constant imputed for absent categorical values. It
// becomes an ordinary category during fit, so rows missing the value at
// prediction time land on its indicator column rather than an error.
const MissingCategory = "unknown"

// Pipeline bundles the preprocessing transforms and the forest into a single
// invocable unit, so training and scoring can never disagree about column
// layout. Numeric rows use NaN for missing values, categorical rows use "".
type Pipeline struct {
	NumericFeatures     []string
	CategoricalFeatures []string
	Numeric             *NumericTransformer
	Encoder             *OneHotEncoder
	Forest              *Forest
}

func NewPipeline(numeric, categorical []string, nEstimators int, seed int64) *Pipeline {
	return &Pipeline{
		NumericFeatures:     numeric,
		CategoricalFeatures: categorical,
		Numeric:             &NumericTransformer{},
		Encoder:             &OneHotEncoder{},
		Forest:              NewForest(nEstimators, seed),
	}
}

func (p *Pipeline) Fit(numeric [][]float64, categorical [][]string, y []float64) error {
	n := len(y)
	if n == 0 {
		return errors.New("mlearn: empty training set")
	}
	if categorical == nil {
		categorical = make([][]string, n)
	}
	if len(numeric) != n || len(categorical) != n {
		return errors.New("mlearn: feature and label counts differ")
	}
	if err := p.checkWidths(numeric, categorical); err != nil {
		return err
	}

	p.Numeric.Fit(numeric)
	cat := imputeCategorical(categorical)
	p.Encoder.Fit(cat)

	X := assemble(p.Numeric.Transform(numeric), p.Encoder.Transform(cat))
	return p.Forest.Fit(X, y)
}

func (p *Pipeline) Predict(numeric [][]float64, categorical [][]string) ([]float64, error) {
	if p.Forest == nil || len(p.Forest.Trees) == 0 {
		return nil, errors.New("mlearn: pipeline is not fitted")
	}
	if categorical == nil {
		categorical = make([][]string, len(numeric))
	}
	if len(categorical) != len(numeric) {
		return nil, errors.New("mlearn: numeric and categorical row counts differ")
	}
	if err := p.checkWidths(numeric, categorical); err != nil {
		return nil, err
	}

	X := assemble(p.Numeric.Transform(numeric), p.Encoder.Transform(imputeCategorical(categorical)))
	return p.Forest.Predict(X), nil
}

func (p *Pipeline) checkWidths(numeric [][]float64, categorical [][]string) error {
	for i := range numeric {
		if len(numeric[i]) != len(p.NumericFeatures) {
			return fmt.Errorf("mlearn: row %d has %d numeric values, want %d", i, len(numeric[i]), len(p.NumericFeatures))
		}
	}
	for i := range categorical {
		if len(categorical[i]) != len(p.CategoricalFeatures) {
			return fmt.Errorf("mlearn: row %d has %d categorical values, want %d", i, len(categorical[i]), len(p.CategoricalFeatures))
		}
	}
	return nil
}

// FeatureNames lists the expanded column layout the forest was fitted on:
// the numeric features followed by one name per one-hot category.
func (p *Pipeline) FeatureNames() []string {
	names := make([]string, 0, len(p.NumericFeatures)+p.Encoder.Width())
	names = append(names, p.NumericFeatures...)
	names = append(names, p.Encoder.FeatureNames(p.CategoricalFeatures)...)
	return names
}

func imputeCategorical(X [][]string) [][]string {
	out := make([][]string, len(X))
	for i := range X {
		row := make([]string, len(X[i]))
		for j, v := range X[i] {
			if v == "" {
				v = MissingCategory
			}
			row[j] = v
		}
		out[i] = row
	}
	return out
}

func assemble(numeric, encoded [][]float64) [][]float64 {
	out := make([][]float64, len(numeric))
	for i := range numeric {
		row := make([]float64, 0, len(numeric[i])+len(encoded[i]))
		row = append(row, numeric[i]...)
		row = append(row, encoded[i]...)
		out[i] = row
	}
	return out
}

// Encode serializes the fitted pipeline as a single gob stream.
func (p *Pipeline) Encode(w io.Writer) error {
	return gob.NewEncoder(w).Encode(p)
}

// DecodePipeline reads a pipeline previously written by Encode.
func DecodePipeline(r io.Reader) (*Pipeline, error) {
	var p Pipeline
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
