package model

// ParsedAssignment is a Canvas assignment object reduced to the fields the
// frontend renders: display strings only, HTML stripped, due date already
// formatted (or "No due date" / "Invalid date").
type ParsedAssignment struct {
	Course      string `json:"course"`
	Name        string `json:"name"`
	DueDate     string `json:"due_date"`
	Description string `json:"description"`
}
