package service

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/util"
	"studyplanner_backend/pkg/logger"
	"studyplanner_backend/pkg/mlearn"
	"studyplanner_backend/pkg/monitoring"
)

const (
	labelColumn  = "assignment_hours"
	testFraction = 0.20
	cvFolds      = 5
)

// featureCandidates is the fixed candidate list; only columns present in the
// loaded dataset are used, in this order.
var featureCandidates = []string{"weight", "vle_count_total", "past_avg_score", "assessment_type"}

const categoricalFeature = "assessment_type"

// TrainingService fits the scheduling model from the engineered dataset and
// persists the pipeline artifact together with a metrics report.
type TrainingService struct {
	Tables     *repository.TableRepository
	Artifacts  *repository.ArtifactRepository
	Candidates []string
	Seed       int64
	Estimators int
	MaxDepth   int
}

func NewTrainingService(tables *repository.TableRepository, artifacts *repository.ArtifactRepository, candidates []string, seed int64, estimators, maxDepth int) *TrainingService {
	return &TrainingService{
		Tables:     tables,
		Artifacts:  artifacts,
		Candidates: candidates,
		Seed:       seed,
		Estimators: estimators,
		MaxDepth:   maxDepth,
	}
}

// Train runs the full pipeline: load the first available dataset, hold out a
// seeded 20% split, fit preprocessing and the forest on the rest, evaluate,
// and persist artifact plus report. Cross-validation and importances are
// best-effort and recorded as absent when they fail.
func (s *TrainingService) Train() (report *model.TrainingReport, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		monitoring.TrainingRuns.WithLabelValues(status).Inc()
		monitoring.TrainingDuration.Observe(time.Since(start).Seconds())
	}()

	dataPath := s.findDataFile()
	if dataPath == "" {
		return nil, fmt.Errorf("%w: looked for %s", util.ErrNoTrainingData, strings.Join(s.Candidates, ", "))
	}
	table, err := s.Tables.LoadTable(dataPath, "training")
	if err != nil {
		return nil, fmt.Errorf("load training data: %w", err)
	}

	labelIdx := table.Index(labelColumn)
	if labelIdx < 0 {
		return nil, fmt.Errorf("%w: %s", util.ErrMissingLabel, dataPath)
	}
	var features, numericCols, categoricalCols []string
	for _, c := range featureCandidates {
		if table.Index(c) < 0 {
			continue
		}
		features = append(features, c)
		if c == categoricalFeature {
			categoricalCols = append(categoricalCols, c)
		} else {
			numericCols = append(numericCols, c)
		}
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: %s has none of %s", util.ErrNoFeatures, dataPath, strings.Join(featureCandidates, ", "))
	}

	numeric, categorical, y, err := s.extractMatrix(table, numericCols, categoricalCols, labelIdx)
	if err != nil {
		return nil, err
	}
	n := len(y)
	logger.Log.Info("Training dataset loaded",
		zap.String("path", dataPath),
		zap.Int("rows", n),
		zap.Strings("features", features))

	trainIdx, testIdx := mlearn.TrainTestSplit(n, testFraction, s.Seed)
	factory := func() *mlearn.Pipeline {
		p := mlearn.NewPipeline(numericCols, categoricalCols, s.Estimators, s.Seed)
		p.Forest.MaxDepth = s.MaxDepth
		return p
	}

	pipeline := factory()
	if err := pipeline.Fit(
		mlearn.Take(numeric, trainIdx),
		mlearn.Take(categorical, trainIdx),
		mlearn.Take(y, trainIdx),
	); err != nil {
		return nil, fmt.Errorf("fit pipeline: %w", err)
	}

	yTest := mlearn.Take(y, testIdx)
	yPred, err := pipeline.Predict(mlearn.Take(numeric, testIdx), mlearn.Take(categorical, testIdx))
	if err != nil {
		return nil, fmt.Errorf("evaluate on held-out split: %w", err)
	}

	report = &model.TrainingReport{
		DataFile: dataPath,
		NSamples: n,
		Features: features,
		Target:   labelColumn,
		R2Test:   mlearn.R2(yTest, yPred),
		MAETest:  mlearn.MAE(yTest, yPred),
		RMSETest: mlearn.RMSE(yTest, yPred),
	}

	if cvMean, cvStd, cvErr := mlearn.CrossValR2(numeric, categorical, y, cvFolds, factory); cvErr != nil {
		logger.Log.Warn("Cross-validation skipped", zap.Error(cvErr))
	} else {
		report.CVR2Mean = &cvMean
		report.CVR2Std = &cvStd
	}
	report.FeatureImportances = s.rankImportances(pipeline)

	if err := s.Artifacts.SavePipeline(pipeline); err != nil {
		return nil, fmt.Errorf("save model artifact: %w", err)
	}
	if err := s.Artifacts.SaveReport(report); err != nil {
		return nil, fmt.Errorf("save training report: %w", err)
	}
	monitoring.ModelTestR2.Set(report.R2Test)

	logger.Log.Info("Training complete",
		zap.Float64("r2_test", report.R2Test),
		zap.Float64("rmse_test", report.RMSETest),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

func (s *TrainingService) findDataFile() string {
	for _, p := range s.Candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// extractMatrix pulls the feature columns and label out of the table. Empty
// numeric cells become NaN for the imputer; non-empty cells that fail to
// parse are fatal, as is any unparseable label cell.
func (s *TrainingService) extractMatrix(table *model.Table, numericCols, categoricalCols []string, labelIdx int) ([][]float64, [][]string, []float64, error) {
	numIdx := make([]int, len(numericCols))
	for j, c := range numericCols {
		numIdx[j] = table.Index(c)
	}
	catIdx := make([]int, len(categoricalCols))
	for j, c := range categoricalCols {
		catIdx[j] = table.Index(c)
	}

	n := len(table.Rows)
	numeric := make([][]float64, n)
	categorical := make([][]string, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		numeric[i] = make([]float64, len(numIdx))
		for j, idx := range numIdx {
			cell := strings.TrimSpace(table.Cell(i, idx))
			if cell == "" {
				numeric[i][j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("column %s row %d: parse %q: %w", numericCols[j], i+1, cell, err)
			}
			numeric[i][j] = v
		}
		categorical[i] = make([]string, len(catIdx))
		for j, idx := range catIdx {
			categorical[i][j] = strings.TrimSpace(table.Cell(i, idx))
		}
		cell := strings.TrimSpace(table.Cell(i, labelIdx))
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("label column %s row %d: parse %q: %w", labelColumn, i+1, cell, err)
		}
		y[i] = v
	}
	return numeric, categorical, y, nil
}

// rankImportances zips the fitted forest's importances with the expanded
// feature names and sorts descending. A width mismatch yields nil rather
// than a partial list.
func (s *TrainingService) rankImportances(pipeline *mlearn.Pipeline) []mlearn.Importance {
	names := pipeline.FeatureNames()
	scores := pipeline.Forest.FeatureImportances()
	if len(names) != len(scores) {
		logger.Log.Warn("Importance extraction skipped",
			zap.Int("names", len(names)),
			zap.Int("scores", len(scores)))
		return nil
	}
	out := make([]mlearn.Importance, len(names))
	for i := range names {
		out[i] = mlearn.Importance{Feature: names[i], Score: scores[i]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}
