package model

// FeatureRow is one engineered training example: a per-student submission
// joined with its assessment metadata, engagement total, and historical
// average. Score and PastAvgScore are nil when the source value is missing;
// for PastAvgScore the distinction from zero matters, since the label
// formula substitutes a neutral 50 for nil but not for 0.
type FeatureRow struct {
	StudentID       string
	AssessmentID    string
	AssessmentType  string
	Weight          float64
	Score           *float64
	VLECountTotal   float64
	PastAvgScore    *float64
	AssignmentHours float64
}

// EngineeredColumns is the column order of the engineered training CSV.
var EngineeredColumns = []string{
	"student_id",
	"assessment_id",
	"assessment_type",
	"weight",
	"score",
	"vle_count_total",
	"past_avg_score",
	"assignment_hours",
}
