package model

// PredictRequest carries loosely structured assignment-like records; field
// names vary by caller, so each record stays a raw map until alias
// normalization.
type PredictRequest struct {
	Assignments []map[string]interface{} `json:"assignments" binding:"required"`
}

// AssignmentFeatures is one record after alias normalization, in the layout
// the fitted pipeline expects.
type AssignmentFeatures struct {
	Weight         float64
	VLECountTotal  float64
	PastAvgScore   float64
	AssessmentType string
}

// PredictionResult echoes the caller's identifier and display name (both
// taken from the first populated alias, so they keep their original JSON
// type) along with the predicted hours.
type PredictionResult struct {
	AssignmentID   interface{} `json:"assignment_id"`
	Assignment     interface{} `json:"assignment"`
	PredictedHours float64     `json:"predicted_hours"`
}
