package repository

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"studyplanner_backend/internal/model"
	"studyplanner_backend/pkg/mlearn"
)

const (
	ModelFileName   = "schedule_model.gob"
	MetricsFileName = "training_metrics.json"
)

// ArtifactRepository persists the fitted pipeline, the metrics report, and
// the engineered CSV. Every write goes to a temp file in the destination
// directory followed by a rename, so a concurrent load never observes a
// half-written artifact.
type ArtifactRepository struct {
	modelDir string
}

func NewArtifactRepository(modelDir string) *ArtifactRepository {
	return &ArtifactRepository{modelDir: modelDir}
}

func (r *ArtifactRepository) ModelPath() string {
	return filepath.Join(r.modelDir, ModelFileName)
}

func (r *ArtifactRepository) MetricsPath() string {
	return filepath.Join(r.modelDir, MetricsFileName)
}

func (r *ArtifactRepository) SavePipeline(p *mlearn.Pipeline) error {
	return atomicWrite(r.ModelPath(), func(f *os.File) error {
		return p.Encode(f)
	})
}

func (r *ArtifactRepository) LoadPipeline() (*mlearn.Pipeline, error) {
	f, err := os.Open(r.ModelPath())
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return mlearn.DecodePipeline(f)
}

func (r *ArtifactRepository) SaveReport(report *model.TrainingReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(r.MetricsPath(), func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

func (r *ArtifactRepository) LoadReport() (*model.TrainingReport, error) {
	data, err := os.ReadFile(r.MetricsPath())
	if err != nil {
		return nil, err
	}
	var report model.TrainingReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.MetricsPath(), err)
	}
	return &report, nil
}

// WriteFeatureCSV writes the engineered dataset. Nil Score/PastAvgScore
// serialize as empty cells so the nullable distinction survives the file.
func (r *ArtifactRepository) WriteFeatureCSV(path string, rows []model.FeatureRow) error {
	return atomicWrite(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(model.EngineeredColumns); err != nil {
			return err
		}
		for _, row := range rows {
			record := []string{
				row.StudentID,
				row.AssessmentID,
				row.AssessmentType,
				formatFloat(row.Weight),
				formatOptional(row.Score),
				formatFloat(row.VLECountTotal),
				formatOptional(row.PastAvgScore),
				formatFloat(row.AssignmentHours),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// atomicWrite creates a temp file next to path, hands it to write, syncs,
// and renames it into place. The temp file is removed on any failure.
func atomicWrite(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		return err
	}
	tmp = nil
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
