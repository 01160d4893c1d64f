package service

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/util"
	"studyplanner_backend/pkg/logger"
	"studyplanner_backend/pkg/mlearn"
	"studyplanner_backend/pkg/monitoring"
)

// PredictionService scores assignment records against the persisted pipeline.
// The loaded model is held behind an atomic pointer and replaced wholesale on
// reload, never mutated in place.
type PredictionService struct {
	Artifacts *repository.ArtifactRepository
	current   atomic.Pointer[mlearn.Pipeline]
}

func NewPredictionService(artifacts *repository.ArtifactRepository) *PredictionService {
	return &PredictionService{Artifacts: artifacts}
}

// LoadModel reads the artifact from disk and swaps it in. Any failure clears
// the current model, so a corrupt artifact cannot leave a stale pipeline
// serving predictions.
func (s *PredictionService) LoadModel() (string, error) {
	pipeline, err := s.Artifacts.LoadPipeline()
	if err != nil {
		s.current.Store(nil)
		return "", err
	}
	s.current.Store(pipeline)
	logger.Log.Info("Model loaded", zap.String("path", s.Artifacts.ModelPath()))
	return s.Artifacts.ModelPath(), nil
}

// Ready reports whether a model is currently loaded.
func (s *PredictionService) Ready() bool {
	return s.current.Load() != nil
}

// Predict normalizes field aliases per record, scores the whole batch in one
// pipeline call, and echoes each record's identifier and display name. A
// single malformed record rejects the entire batch.
func (s *PredictionService) Predict(records []map[string]interface{}) ([]model.PredictionResult, error) {
	pipeline := s.current.Load()
	if pipeline == nil {
		monitoring.PredictionCounter.WithLabelValues("not_ready").Inc()
		return nil, util.ErrModelNotReady
	}

	feats := make([]model.AssignmentFeatures, len(records))
	for i, rec := range records {
		f, err := normalizeRecord(rec)
		if err != nil {
			monitoring.PredictionCounter.WithLabelValues("failure").Inc()
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		feats[i] = f
	}

	numeric := make([][]float64, len(feats))
	categorical := make([][]string, len(feats))
	for i, f := range feats {
		numeric[i] = projectNumeric(f, pipeline.NumericFeatures)
		categorical[i] = projectCategorical(f, pipeline.CategoricalFeatures)
	}

	hours, err := pipeline.Predict(numeric, categorical)
	if err != nil {
		monitoring.PredictionCounter.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("score batch: %w", err)
	}

	results := make([]model.PredictionResult, len(records))
	for i, rec := range records {
		results[i] = model.PredictionResult{
			AssignmentID:   firstTruthy(rec, "assignment_id", "id", "assignment"),
			Assignment:     firstTruthy(rec, "assignment", "name", "assignment_name"),
			PredictedHours: math.Round(hours[i]*100) / 100,
		}
	}
	monitoring.PredictionCounter.WithLabelValues("success").Inc()
	return results, nil
}

// normalizeRecord resolves each canonical feature from its alias list. An
// absent, nil, or empty value falls through to the next alias, then to the
// default; a present value that cannot be coerced to the expected type
// rejects the record.
func normalizeRecord(rec map[string]interface{}) (model.AssignmentFeatures, error) {
	weight, err := resolveNumber(rec, []string{"weight", "weight_percent"}, 0)
	if err != nil {
		return model.AssignmentFeatures{}, err
	}
	vle, err := resolveNumber(rec, []string{"vle_count_total", "vle_count"}, 0)
	if err != nil {
		return model.AssignmentFeatures{}, err
	}
	past, err := resolveNumber(rec, []string{"past_avg_score", "past_score", "student_past_avg"}, 50)
	if err != nil {
		return model.AssignmentFeatures{}, err
	}
	return model.AssignmentFeatures{
		Weight:         weight,
		VLECountTotal:  vle,
		PastAvgScore:   past,
		AssessmentType: resolveString(rec, []string{"assessment_type", "type"}, mlearn.MissingCategory),
	}, nil
}

func resolveNumber(rec map[string]interface{}, aliases []string, fallback float64) (float64, error) {
	for _, a := range aliases {
		v, ok := rec[a]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, nil
		case float32:
			return float64(t), nil
		case int:
			return float64(t), nil
		case int64:
			return float64(t), nil
		case string:
			if t == "" {
				continue
			}
			parsed, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: field %s: cannot coerce %q to a number", util.ErrMalformedRecord, a, t)
			}
			return parsed, nil
		default:
			return 0, fmt.Errorf("%w: field %s: unexpected type %T", util.ErrMalformedRecord, a, v)
		}
	}
	return fallback, nil
}

func resolveString(rec map[string]interface{}, aliases []string, fallback string) string {
	for _, a := range aliases {
		if v, ok := rec[a].(string); ok && v != "" {
			return v
		}
	}
	return fallback
}

// projectNumeric lays a record out in the pipeline's numeric column order.
// A feature the pipeline knows but this service does not becomes NaN and is
// filled by the fitted imputer.
func projectNumeric(f model.AssignmentFeatures, columns []string) []float64 {
	row := make([]float64, len(columns))
	for j, name := range columns {
		switch name {
		case "weight":
			row[j] = f.Weight
		case "vle_count_total":
			row[j] = f.VLECountTotal
		case "past_avg_score":
			row[j] = f.PastAvgScore
		default:
			row[j] = math.NaN()
		}
	}
	return row
}

func projectCategorical(f model.AssignmentFeatures, columns []string) []string {
	row := make([]string, len(columns))
	for j, name := range columns {
		if name == "assessment_type" {
			row[j] = f.AssessmentType
		}
	}
	return row
}

// firstTruthy returns the first alias whose value is present and not nil,
// empty string, zero, or false, keeping the value's original type.
func firstTruthy(rec map[string]interface{}, aliases ...string) interface{} {
	for _, a := range aliases {
		v, ok := rec[a]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t == "" {
				continue
			}
		case float64:
			if t == 0 {
				continue
			}
		case int:
			if t == 0 {
				continue
			}
		case bool:
			if !t {
				continue
			}
		}
		return v
	}
	return nil
}
