package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/service"
)

func TestCleanHTML(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"no tags at all", "no tags at all"},
		{"", ""},
		{"<div>\n<span>x</span>\n</div>", "\nx\n"},
		{"a < b and c > d", "a  d"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, service.CleanHTML(tc.in))
	}
}

func TestFormatDueDate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", "No due date"},
		{"2026-03-15T23:59:00Z", "Mar 15, 2026 11:59 PM"},
		{"2026-03-15T23:59:00+01:00", "Mar 15, 2026 11:59 PM"},
		{"2026-03-15T08:05:00", "Mar 15, 2026 08:05 AM"},
		{"2026-03-15", "Mar 15, 2026 12:00 AM"},
		{"tomorrow", "Invalid date"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, service.FormatDueDate(tc.in), "input %q", tc.in)
	}
}

func TestParseCanvasAssignment(t *testing.T) {
	parsed := service.ParseCanvasAssignment(map[string]interface{}{
		"course_name": "History",
		"name":        "Essay",
		"due_at":      "2026-03-15T23:59:00Z",
		"description": "<p>Write <i>something</i></p>",
	})

	assert.Equal(t, model.ParsedAssignment{
		Course:      "History",
		Name:        "Essay",
		DueDate:     "Mar 15, 2026 11:59 PM",
		Description: "Write something",
	}, parsed)
}

func TestParseCanvasAssignment_Defaults(t *testing.T) {
	parsed := service.ParseCanvasAssignment(map[string]interface{}{})

	assert.Equal(t, model.ParsedAssignment{
		Course:      "Unknown",
		Name:        "No Title",
		DueDate:     "No due date",
		Description: "",
	}, parsed)
}

func TestSummarizeAssignments(t *testing.T) {
	summary := service.SummarizeAssignments([]model.ParsedAssignment{
		{Course: "History", Name: "Essay", DueDate: "Mar 15, 2026 11:59 PM", Description: "Write it"},
		{Course: "Math", Name: "Quiz", DueDate: "No due date", Description: ""},
	})

	assert.Equal(t,
		"History - Essay (Due: Mar 15, 2026 11:59 PM): Write it\n"+
			"Math - Quiz (Due: No due date): ",
		summary)
}

func TestSummarizeAssignments_Empty(t *testing.T) {
	assert.Equal(t, "", service.SummarizeAssignments(nil))
}
