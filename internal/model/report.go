package model

import "studyplanner_backend/pkg/mlearn"

// TrainingReport is the metrics/metadata record written next to the model
// artifact and overwritten on every run. CV fields and importances are nil
// when their best-effort computation failed.
type TrainingReport struct {
	DataFile           string              `json:"data_file"`
	NSamples           int                 `json:"n_samples"`
	Features           []string            `json:"features"`
	Target             string              `json:"target"`
	R2Test             float64             `json:"r2_test"`
	MAETest            float64             `json:"mae_test"`
	RMSETest           float64             `json:"rmse_test"`
	CVR2Mean           *float64            `json:"cv_r2_mean"`
	CVR2Std            *float64            `json:"cv_r2_std"`
	FeatureImportances []mlearn.Importance `json:"feature_importances"`
}
