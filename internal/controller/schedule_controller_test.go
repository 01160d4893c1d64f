package controller_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyplanner_backend/internal/config"
	"studyplanner_backend/internal/controller"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/pkg/mlearn"
)

// envelope mirrors the JSON shape every handler responds with.
type envelope struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Details interface{}            `json:"details"`
}

type testEnv struct {
	router     *gin.Engine
	artifacts  *repository.ArtifactRepository
	prediction *service.PredictionService
	rawDir     string
	dataDir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rawDir := t.TempDir()
	dataDir := t.TempDir()

	tables := repository.NewTableRepository()
	artifacts := repository.NewArtifactRepository(t.TempDir())

	datasetPath := filepath.Join(dataDir, "oulad_training.csv")

	feature := service.NewFeatureService(tables, artifacts, rawDir, datasetPath)
	training := service.NewTrainingService(tables, artifacts, []string{datasetPath}, 42, 30, 0)
	prediction := service.NewPredictionService(artifacts)
	canvas := service.NewCanvasService(config.CanvasConfig{})

	schedule := controller.NewScheduleController(training, prediction, artifacts)
	dataset := controller.NewDatasetController(feature)
	course := controller.NewCourseController(canvas)
	health := controller.NewHealthController(prediction, artifacts)

	router := gin.New()
	api := router.Group("/api")
	api.GET("/health", health.HealthCheck)
	api.POST("/train", schedule.Train)
	api.POST("/reload_model", schedule.ReloadModel)
	api.POST("/predict", schedule.Predict)
	api.GET("/model/metrics", schedule.Metrics)
	api.POST("/dataset/build", dataset.Build)
	api.GET("/courses", course.Courses)
	api.GET("/assignments", course.Assignments)
	api.POST("/parse_custom", course.ParseCustom)
	api.POST("/download_file", course.DownloadFile)

	return &testEnv{
		router:     router,
		artifacts:  artifacts,
		prediction: prediction,
		rawDir:     rawDir,
		dataDir:    dataDir,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

// seedModel persists a small fitted pipeline so endpoints that need a model
// can run without going through the training endpoint first.
func (e *testEnv) seedModel(t *testing.T) {
	t.Helper()

	types := []string{"TMA", "CMA", "Exam"}
	var numeric [][]float64
	var categorical [][]string
	var labels []float64
	for i := 0; i < 40; i++ {
		w := float64(5 + (i*7)%40)
		v := float64((i * 13) % 200)
		p := float64(30 + (i*11)%70)
		numeric = append(numeric, []float64{w, v, p})
		categorical = append(categorical, []string{types[i%3]})
		labels = append(labels, service.ProxyHours(w, v, &p))
	}

	pipeline := mlearn.NewPipeline(
		[]string{"weight", "vle_count_total", "past_avg_score"},
		[]string{"assessment_type"},
		20, 7,
	)
	require.NoError(t, pipeline.Fit(numeric, categorical, labels))
	require.NoError(t, e.artifacts.SavePipeline(pipeline))
}

func (e *testEnv) writeTrainingCSV(t *testing.T, n int) {
	t.Helper()

	var b strings.Builder
	b.WriteString("weight,vle_count_total,past_avg_score,assessment_type,assignment_hours\n")
	types := []string{"TMA", "CMA", "Exam"}
	for i := 0; i < n; i++ {
		w := float64(5 + (i*7)%40)
		v := float64((i * 13) % 200)
		p := float64(30 + (i*11)%70)
		hours := service.ProxyHours(w, v, &p)
		fmt.Fprintf(&b, "%g,%g,%g,%s,%s\n", w, v, p, types[i%3], strconv.FormatFloat(hours, 'g', -1, 64))
	}
	path := filepath.Join(e.dataDir, "oulad_training.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func TestPredictEndpoint_MissingAssignmentsField(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/predict", map[string]interface{}{"foo": 1})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request JSON must contain 'assignments' field (list)", body.Message)
}

func TestPredictEndpoint_ModelNotLoaded(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/predict", map[string]interface{}{
		"assignments": []map[string]interface{}{{"weight": 10.0}},
	})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Schedule model not loaded. Train model first or call /api/reload_model.", body.Message)
}

func TestPredictEndpoint_ScoresBatchInOrder(t *testing.T) {
	env := newTestEnv(t)
	env.seedModel(t)
	_, err := env.prediction.LoadModel()
	require.NoError(t, err)

	rec, body := env.do(t, http.MethodPost, "/api/predict", map[string]interface{}{
		"assignments": []map[string]interface{}{
			{
				"assignment_id":   "a-1",
				"assignment":      "Essay",
				"weight":          10.0,
				"vle_count_total": 5.0,
				"past_avg_score":  78.0,
				"assessment_type": "TMA",
			},
			{"id": 7, "name": "Quiz", "weight_percent": 25.0},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	predictions, ok := body.Data["predictions"].([]interface{})
	require.True(t, ok)
	require.Len(t, predictions, 2)

	first, ok := predictions[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "a-1", first["assignment_id"])
	assert.Equal(t, "Essay", first["assignment"])
	hours, ok := first["predicted_hours"].(float64)
	require.True(t, ok)
	assert.Greater(t, hours, 0.0)

	second, ok := predictions[1].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 7.0, second["assignment_id"])
	assert.Equal(t, "Quiz", second["assignment"])
}

func TestPredictEndpoint_EmptyBatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedModel(t)
	_, err := env.prediction.LoadModel()
	require.NoError(t, err)

	rec, body := env.do(t, http.MethodPost, "/api/predict", map[string]interface{}{
		"assignments": []map[string]interface{}{},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	predictions, ok := body.Data["predictions"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, predictions)
}

func TestTrainEndpoint_FullCycle(t *testing.T) {
	env := newTestEnv(t)
	env.writeTrainingCSV(t, 60)

	rec, body := env.do(t, http.MethodPost, "/api/train", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body.Data["trained"])
	metrics, ok := body.Data["metrics"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, metrics, "r2_test")
	assert.Contains(t, metrics, "feature_importances")
	assert.Equal(t, float64(60), metrics["n_samples"])

	// Training reloads the prediction service as a side effect.
	rec, _ = env.do(t, http.MethodPost, "/api/predict", map[string]interface{}{
		"assignments": []map[string]interface{}{
			{"weight": 10.0, "vle_count_total": 5.0, "past_avg_score": 78.0},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/model/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok = body.Data["metrics"].(map[string]interface{})
	assert.True(t, ok)
}

func TestTrainEndpoint_FailsWithoutDataset(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/train", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Training pipeline failed", body.Message)
	assert.NotNil(t, body.Details)
}

func TestReloadModelEndpoint_MissingArtifact(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/reload_model", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Model file not found or failed to load", body.Message)
}

func TestReloadModelEndpoint_LoadsSeededArtifact(t *testing.T) {
	env := newTestEnv(t)
	env.seedModel(t)

	rec, body := env.do(t, http.MethodPost, "/api/reload_model", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body.Data["reloaded"])
	assert.Equal(t, env.artifacts.ModelPath(), body.Data["model_path"])
}

func TestMetricsEndpoint_NotFoundBeforeTraining(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/model/metrics", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No training report found. Train a model first.", body.Message)
}

func TestHealthEndpoint_ReportsComponentState(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body.Data["status"])
	components, ok := body.Data["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "not_loaded", components["model"])
	assert.Equal(t, "absent", components["training_report"])

	env.seedModel(t)
	_, err := env.prediction.LoadModel()
	require.NoError(t, err)

	_, body = env.do(t, http.MethodGet, "/api/health", nil)
	components, ok = body.Data["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "loaded", components["model"])
}
