package service

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/util"
	"studyplanner_backend/pkg/logger"
)

// Proxy-label coefficients. Downstream consumers depend on the exact numeric
// range these produce; do not retune them.
const (
	hoursBase       = 0.75
	weightCoef      = 0.06
	engagementCoef  = 0.35
	proficiencyCoef = 0.25
	minHours        = 0.25
	maxHours        = 20.0
)

// FeatureService assembles the engineered training dataset from a directory
// of raw tabular sources with varying schemas.
type FeatureService struct {
	Tables     *repository.TableRepository
	Artifacts  *repository.ArtifactRepository
	RawDir     string
	OutputPath string
}

func NewFeatureService(tables *repository.TableRepository, artifacts *repository.ArtifactRepository, rawDir, outputPath string) *FeatureService {
	return &FeatureService{
		Tables:     tables,
		Artifacts:  artifacts,
		RawDir:     rawDir,
		OutputPath: outputPath,
	}
}

// BuildResult summarizes a dataset build.
type BuildResult struct {
	Rows       int    `json:"rows"`
	OutputPath string `json:"output_path"`
}

// BuildDataset locates the raw tables, joins submissions with assessment
// metadata, aggregates per-student engagement and historical scores,
// derives the proxy label, and writes the engineered CSV.
func (s *FeatureService) BuildDataset() (*BuildResult, error) {
	csvs, err := s.Tables.FindCSVs(s.RawDir)
	if err != nil {
		return nil, err
	}
	if len(csvs) == 0 {
		return nil, fmt.Errorf("%w: no csv files under %s", util.ErrTableNotFound, s.RawDir)
	}

	assessPath := s.Tables.PickFile(csvs, []string{"assessments"}, []string{"student"})
	subsPath := s.Tables.PickFile(csvs, []string{"studentassessment", "student_assessment", "student-assessment"}, nil)
	var vleParts []string
	for _, p := range csvs {
		name := strings.ToLower(filepath.Base(p))
		if strings.Contains(name, "studentvle") || strings.Contains(name, "student_vle") {
			vleParts = append(vleParts, p)
		}
	}
	logger.Log.Info("Raw tables chosen",
		zap.String("assessments", assessPath),
		zap.String("submissions", subsPath),
		zap.Int("engagement_parts", len(vleParts)),
		zap.String("engagement_meta", s.Tables.PickFile(csvs, []string{"vle"}, []string{"studentvle"})),
		zap.String("student_info", s.Tables.PickFile(csvs, []string{"studentinfo", "student_info"}, nil)))

	assessments, err := s.Tables.LoadTable(assessPath, "assessments")
	if err != nil {
		return nil, fmt.Errorf("%w: assessments: %v", util.ErrTableNotFound, err)
	}
	subs, err := s.Tables.LoadTable(subsPath, "studentAssessment")
	if err != nil {
		return nil, fmt.Errorf("%w: studentAssessment: %v", util.ErrTableNotFound, err)
	}

	var vle *model.Table
	if len(vleParts) > 0 {
		vle, err = s.Tables.LoadConcat(vleParts, "studentVle")
		if err != nil {
			logger.Log.Warn("Engagement table unreadable, counts default to 0", zap.Error(err))
			vle = nil
		}
	}

	if !assessments.ResolveAlias("id_assessment", []string{"id_assessment", "id", "assessment_id"}) {
		return nil, fmt.Errorf("%w: assessments table %s has no assessment identifier", util.ErrMissingColumn, assessPath)
	}
	if !subs.ResolveAlias("id_assessment", []string{"id_assessment", "id"}) {
		return nil, fmt.Errorf("%w: submissions table %s has no assessment identifier", util.ErrMissingColumn, subsPath)
	}
	if !subs.ResolveAlias("id_student", []string{"id_student", "studentid", "student_id"}) {
		return nil, fmt.Errorf("%w: submissions table %s has no student identifier", util.ErrMissingColumn, subsPath)
	}
	assessments.ResolveAlias("weight", []string{"weight", "assessment_weight"})
	assessments.ResolveAlias("assessment_type", []string{"assessment_type", "type"})

	pastAvg := s.pastAverages(subs)
	vleTotals := s.engagementTotals(vle)

	rows := s.assembleRows(subs, assessments, pastAvg, vleTotals)
	if err := s.Artifacts.WriteFeatureCSV(s.OutputPath, rows); err != nil {
		return nil, err
	}

	logger.Log.Info("Engineered dataset written",
		zap.String("path", s.OutputPath),
		zap.Int("rows", len(rows)))
	return &BuildResult{Rows: len(rows), OutputPath: s.OutputPath}, nil
}

// pastAverages computes each student's mean of non-missing scores. A student
// whose scores are all missing gets 0 (distinct from the nil a student
// absent from the submissions table would keep).
func (s *FeatureService) pastAverages(subs *model.Table) map[string]float64 {
	sidIdx := subs.Index("id_student")
	scoreIdx := subs.Index("score")

	sums := make(map[string]float64)
	counts := make(map[string]int)
	students := make(map[string]bool)
	for i := range subs.Rows {
		sid := strings.TrimSpace(subs.Cell(i, sidIdx))
		if sid == "" {
			continue
		}
		students[sid] = true
		if scoreIdx < 0 {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(subs.Cell(i, scoreIdx)), 64); err == nil {
			sums[sid] += v
			counts[sid]++
		}
	}

	out := make(map[string]float64, len(students))
	for sid := range students {
		if counts[sid] > 0 {
			out[sid] = sums[sid] / float64(counts[sid])
		} else {
			out[sid] = 0
		}
	}
	return out
}

// engagementTotals sums the activity column per student, falling back to one
// count per row when no known activity column exists. A nil table or one
// without a student identifier yields an empty map, read as 0 everywhere.
func (s *FeatureService) engagementTotals(vle *model.Table) map[string]float64 {
	out := make(map[string]float64)
	if vle == nil {
		return out
	}
	if !vle.ResolveAlias("id_student", []string{"id_student", "studentid"}) {
		logger.Log.Warn("Engagement table has no student identifier, counts default to 0")
		return out
	}
	sidIdx := vle.Index("id_student")

	clickIdx := -1
	for _, c := range []string{"sum_click", "sumclick", "clicks", "activity", "count"} {
		if i := vle.Index(c); i >= 0 {
			clickIdx = i
			break
		}
	}

	for i := range vle.Rows {
		sid := strings.TrimSpace(vle.Cell(i, sidIdx))
		if sid == "" {
			continue
		}
		if clickIdx < 0 {
			out[sid]++
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(vle.Cell(i, clickIdx)), 64); err == nil {
			out[sid] += v
		}
	}
	return out
}

// assembleRows left-joins submissions to assessment metadata on the
// assessment identifier. Metadata with several rows per identifier
// duplicates the submission, and submissions with no metadata keep default
// weight and type; rows missing either identifier are dropped.
func (s *FeatureService) assembleRows(subs, assessments *model.Table, pastAvg, vleTotals map[string]float64) []model.FeatureRow {
	aidIdx := assessments.Index("id_assessment")
	weightIdx := assessments.Index("weight")
	typeIdx := assessments.Index("assessment_type")
	metaByID := make(map[string][]int)
	for i := range assessments.Rows {
		id := strings.TrimSpace(assessments.Cell(i, aidIdx))
		if id != "" {
			metaByID[id] = append(metaByID[id], i)
		}
	}

	subAidIdx := subs.Index("id_assessment")
	subSidIdx := subs.Index("id_student")
	subScoreIdx := subs.Index("score")

	var rows []model.FeatureRow
	dropped := 0
	for i := range subs.Rows {
		sid := strings.TrimSpace(subs.Cell(i, subSidIdx))
		aid := strings.TrimSpace(subs.Cell(i, subAidIdx))
		if sid == "" || aid == "" {
			dropped++
			continue
		}

		var score *float64
		if subScoreIdx >= 0 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(subs.Cell(i, subScoreIdx)), 64); err == nil {
				score = &v
			}
		}
		var past *float64
		if v, ok := pastAvg[sid]; ok {
			past = &v
		}
		vleCount := vleTotals[sid]

		matches := metaByID[aid]
		if len(matches) == 0 {
			rows = append(rows, s.featureRow(sid, aid, "", 0, score, vleCount, past))
			continue
		}
		for _, m := range matches {
			weight := 0.0
			if v, err := strconv.ParseFloat(strings.TrimSpace(assessments.Cell(m, weightIdx)), 64); err == nil {
				weight = v
			}
			typ := strings.TrimSpace(assessments.Cell(m, typeIdx))
			rows = append(rows, s.featureRow(sid, aid, typ, weight, score, vleCount, past))
		}
	}
	if dropped > 0 {
		logger.Log.Info("Dropped rows with missing identifiers", zap.Int("count", dropped))
	}
	return rows
}

func (s *FeatureService) featureRow(sid, aid, typ string, weight float64, score *float64, vleCount float64, past *float64) model.FeatureRow {
	return model.FeatureRow{
		StudentID:       sid,
		AssessmentID:    aid,
		AssessmentType:  typ,
		Weight:          weight,
		Score:           score,
		VLECountTotal:   vleCount,
		PastAvgScore:    past,
		AssignmentHours: ProxyHours(weight, vleCount, past),
	}
}

// ProxyHours derives the study-time label: heavier assessments and more
// engagement activity raise it (the log term models diminishing returns),
// while a stronger historical average lowers it. A nil historical average
// substitutes the neutral 50, which is not the same as an average of 0.
func ProxyHours(weight, vleCount float64, pastAvg *float64) float64 {
	past := 50.0
	if pastAvg != nil {
		past = *pastAvg
	}
	hours := hoursBase + weight*weightCoef + math.Log1p(vleCount)*engagementCoef - (past/100.0)*proficiencyCoef
	if hours < minHours {
		hours = minHours
	}
	if hours > maxHours {
		hours = maxHours
	}
	return math.Round(hours*100) / 100
}
