package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"studyplanner_backend/internal/model"
)

var htmlTagPattern = regexp.MustCompile(`<.*?>`)

// dueDateLayouts covers the ISO8601 shapes Canvas emits: full timestamps
// with or without a zone, and bare dates.
var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CleanHTML strips markup tags from an assignment description.
func CleanHTML(raw string) string {
	return htmlTagPattern.ReplaceAllString(raw, "")
}

// FormatDueDate renders an ISO due date as a readable string. An empty
// input means the assignment has no due date; an unparseable one is
// reported as invalid rather than erroring.
func FormatDueDate(due string) string {
	if due == "" {
		return "No due date"
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, due); err == nil {
			return t.Format("Jan 02, 2006 03:04 PM")
		}
	}
	return "Invalid date"
}

// ParseCanvasAssignment standardizes one raw Canvas assignment object into
// the compact form the frontend renders.
func ParseCanvasAssignment(raw map[string]interface{}) model.ParsedAssignment {
	return model.ParsedAssignment{
		Course:      stringField(raw, "course_name", "Unknown"),
		Name:        stringField(raw, "name", "No Title"),
		DueDate:     FormatDueDate(stringField(raw, "due_at", "")),
		Description: CleanHTML(stringField(raw, "description", "")),
	}
}

// SummarizeAssignments flattens parsed assignments into one readable text
// block, one line per assignment.
func SummarizeAssignments(assignments []model.ParsedAssignment) string {
	lines := make([]string, len(assignments))
	for i, a := range assignments {
		lines[i] = fmt.Sprintf("%s - %s (Due: %s): %s", a.Course, a.Name, a.DueDate, a.Description)
	}
	return strings.Join(lines, "\n")
}

func stringField(raw map[string]interface{}, key, fallback string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return fallback
}
