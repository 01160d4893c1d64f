package service_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/internal/util"
)

func floatPtr(v float64) *float64 { return &v }

func TestProxyHours_WorkedExample(t *testing.T) {
	got := service.ProxyHours(10, 5, floatPtr(78))

	assert.Equal(t, 1.78, got)
}

func TestProxyHours_NilPastMatchesNeutralFifty(t *testing.T) {
	assert.Equal(t, service.ProxyHours(10, 5, floatPtr(50)), service.ProxyHours(10, 5, nil))
	assert.Equal(t, service.ProxyHours(0, 0, floatPtr(50)), service.ProxyHours(0, 0, nil))
}

func TestProxyHours_BoundedForValidInputs(t *testing.T) {
	for _, weight := range []float64{0, 1, 10, 50, 100} {
		for _, vle := range []float64{0, 1, 5, 100, 10000} {
			for _, past := range []float64{0, 25, 50, 78, 100} {
				got := service.ProxyHours(weight, vle, floatPtr(past))
				assert.GreaterOrEqual(t, got, 0.25)
				assert.LessOrEqual(t, got, 20.0)
			}
		}
	}
}

func TestProxyHours_ClampsDirtyInputs(t *testing.T) {
	assert.Equal(t, 0.25, service.ProxyHours(-50, 0, floatPtr(100)))
	assert.Equal(t, 20.0, service.ProxyHours(400, 0, nil))
}

func TestProxyHours_Monotonic(t *testing.T) {
	base := service.ProxyHours(10, 5, floatPtr(60))

	assert.GreaterOrEqual(t, service.ProxyHours(11, 5, floatPtr(60)), base)
	assert.GreaterOrEqual(t, service.ProxyHours(10, 6, floatPtr(60)), base)
	assert.LessOrEqual(t, service.ProxyHours(10, 5, floatPtr(61)), base)
}

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newFeatureService(t *testing.T, rawDir string) *service.FeatureService {
	t.Helper()
	out := filepath.Join(t.TempDir(), "oulad_training.csv")
	return service.NewFeatureService(repository.NewTableRepository(), repository.NewArtifactRepository(t.TempDir()), rawDir, out)
}

func TestBuildDataset_EndToEnd(t *testing.T) {
	rawDir := t.TempDir()
	// Aliased headers on purpose: ID, Assessment_Weight and Type resolve to
	// the canonical names. A2 appears twice in the metadata.
	writeCSV(t, filepath.Join(rawDir, "assessments.csv"),
		"ID, Assessment_Weight ,Type\nA1,10,TMA\nA2,20,CMA\nA2,25,Exam\n")
	writeCSV(t, filepath.Join(rawDir, "studentAssessment.csv"),
		"id_assessment,id_student,score\n"+
			"A1,S1,80\n"+
			"A2,S1,60\n"+
			"A9,S2,\n"+
			",S3,50\n"+
			"A1,,70\n")
	writeCSV(t, filepath.Join(rawDir, "studentVle_2013.csv"),
		"id_student,sum_click\nS1,3\nS1,4\n")
	writeCSV(t, filepath.Join(rawDir, "studentVle_2014.csv"),
		"id_student,sum_click\nS1,5\nS2,2\n")

	svc := newFeatureService(t, rawDir)
	result, err := svc.BuildDataset()

	require.NoError(t, err)
	assert.Equal(t, 4, result.Rows)
	assert.FileExists(t, result.OutputPath)

	table, err := repository.NewTableRepository().LoadTable(result.OutputPath, "out")
	require.NoError(t, err)
	require.Len(t, table.Rows, 4)
	assert.Equal(t,
		[]string{"student_id", "assessment_id", "assessment_type", "weight", "score", "vle_count_total", "past_avg_score", "assignment_hours"},
		table.Columns)

	hours := func(w, v float64, past *float64) string {
		return strconv.FormatFloat(service.ProxyHours(w, v, past), 'g', -1, 64)
	}

	// S1 past average is (80+60)/2 over both submissions; engagement sums
	// across the concatenated parts.
	assert.Equal(t, []string{"S1", "A1", "TMA", "10", "80", "12", "70", hours(10, 12, floatPtr(70))}, table.Rows[0])
	// A2 metadata is duplicated, so the one submission yields two rows.
	assert.Equal(t, []string{"S1", "A2", "CMA", "20", "60", "12", "70", hours(20, 12, floatPtr(70))}, table.Rows[1])
	assert.Equal(t, []string{"S1", "A2", "Exam", "25", "60", "12", "70", hours(25, 12, floatPtr(70))}, table.Rows[2])
	// A9 has no metadata: weight 0, empty type. S2 has no usable score, so
	// its past average is 0, not null.
	assert.Equal(t, []string{"S2", "A9", "", "0", "", "2", "0", hours(0, 2, floatPtr(0))}, table.Rows[3])
}

func TestBuildDataset_NoEngagementTable(t *testing.T) {
	rawDir := t.TempDir()
	writeCSV(t, filepath.Join(rawDir, "assessments.csv"), "id_assessment,weight,assessment_type\nA1,10,TMA\n")
	writeCSV(t, filepath.Join(rawDir, "studentAssessment.csv"), "id_assessment,id_student,score\nA1,S1,80\n")

	svc := newFeatureService(t, rawDir)
	result, err := svc.BuildDataset()

	require.NoError(t, err)
	require.Equal(t, 1, result.Rows)

	table, err := repository.NewTableRepository().LoadTable(result.OutputPath, "out")
	require.NoError(t, err)
	assert.Equal(t, "0", table.Rows[0][5])
}

func TestBuildDataset_CountsRowsWithoutClickColumn(t *testing.T) {
	rawDir := t.TempDir()
	writeCSV(t, filepath.Join(rawDir, "assessments.csv"), "id_assessment,weight,assessment_type\nA1,10,TMA\n")
	writeCSV(t, filepath.Join(rawDir, "studentAssessment.csv"), "id_assessment,id_student,score\nA1,S1,80\n")
	writeCSV(t, filepath.Join(rawDir, "studentVle.csv"), "id_student,site\nS1,x\nS1,y\nS1,z\n")

	svc := newFeatureService(t, rawDir)
	result, err := svc.BuildDataset()

	require.NoError(t, err)
	table, err := repository.NewTableRepository().LoadTable(result.OutputPath, "out")
	require.NoError(t, err)
	assert.Equal(t, "3", table.Rows[0][5])
}

func TestBuildDataset_EmptyDirectory(t *testing.T) {
	svc := newFeatureService(t, t.TempDir())

	_, err := svc.BuildDataset()

	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrTableNotFound))
}

func TestBuildDataset_MissingAssessmentIdentifier(t *testing.T) {
	rawDir := t.TempDir()
	writeCSV(t, filepath.Join(rawDir, "assessments.csv"), "weight,assessment_type\n10,TMA\n")
	writeCSV(t, filepath.Join(rawDir, "studentAssessment.csv"), "id_assessment,id_student,score\nA1,S1,80\n")

	svc := newFeatureService(t, rawDir)
	_, err := svc.BuildDataset()

	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrMissingColumn))
}

func TestBuildDataset_MissingStudentIdentifier(t *testing.T) {
	rawDir := t.TempDir()
	writeCSV(t, filepath.Join(rawDir, "assessments.csv"), "id_assessment,weight,assessment_type\nA1,10,TMA\n")
	writeCSV(t, filepath.Join(rawDir, "studentAssessment.csv"), "id_assessment,score\nA1,80\n")

	svc := newFeatureService(t, rawDir)
	_, err := svc.BuildDataset()

	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrMissingColumn))
}
