package mlearn

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fittedPipeline(t *testing.T) (*Pipeline, [][]float64, [][]string, []float64) {
	t.Helper()

	types := []string{"TMA", "CMA", "Exam"}
	var num [][]float64
	var cat [][]string
	var y []float64
	for i := 0; i < 60; i++ {
		w := float64(i % 12)
		v := float64(i % 9)
		num = append(num, []float64{w, v})
		kind := types[i%3]
		cat = append(cat, []string{kind})
		offset := map[string]float64{"TMA": 0, "CMA": 1, "Exam": 3}[kind]
		y = append(y, 0.75+0.06*w+0.35*math.Log1p(v)+offset)
	}

	p := NewPipeline([]string{"weight", "vle_count_total"}, []string{"assessment_type"}, 40, 42)
	require.NoError(t, p.Fit(num, cat, y))
	return p, num, cat, y
}

func TestPipelineFitPredict(t *testing.T) {
	p, num, cat, y := fittedPipeline(t)

	pred, err := p.Predict(num, cat)
	require.NoError(t, err)
	require.Len(t, pred, len(y))
	assert.GreaterOrEqual(t, R2(y, pred), 0.5, "refitting on training rows must beat the mean predictor")
}

func TestPipelineFeatureNames(t *testing.T) {
	p, _, _, _ := fittedPipeline(t)

	assert.Equal(t, []string{
		"weight", "vle_count_total",
		"assessment_type_CMA", "assessment_type_Exam", "assessment_type_TMA",
	}, p.FeatureNames())
}

func TestPipelineUnknownCategoryScores(t *testing.T) {
	p, _, _, _ := fittedPipeline(t)

	pred, err := p.Predict([][]float64{{5, 3}}, [][]string{{"never_seen_type"}})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(pred[0]))
}

func TestPipelineImputesMissingAtPredict(t *testing.T) {
	p, _, _, _ := fittedPipeline(t)

	pred, err := p.Predict([][]float64{{math.NaN(), math.NaN()}}, [][]string{{""}})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(pred[0]))
}

func TestPipelineGobRoundTrip(t *testing.T) {
	p, num, cat, _ := fittedPipeline(t)

	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))

	loaded, err := DecodePipeline(&buf)
	require.NoError(t, err)

	want, err := p.Predict(num, cat)
	require.NoError(t, err)
	got, err := loaded.Predict(num, cat)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, p.FeatureNames(), loaded.FeatureNames())
}

func TestPipelineWidthMismatch(t *testing.T) {
	p, _, _, _ := fittedPipeline(t)

	_, err := p.Predict([][]float64{{1}}, [][]string{{"TMA"}})
	assert.Error(t, err)
}

func TestPipelineNotFitted(t *testing.T) {
	p := NewPipeline([]string{"weight"}, nil, 5, 42)
	_, err := p.Predict([][]float64{{1}}, nil)
	assert.Error(t, err)
}
