package domain

import "time"

// Task is a unit of work owned by exactly one user. The owner is set at
// creation and never changes; deleting the owner cascades to their tasks.
type Task struct {
	Audit
	Title     string    `json:"title"`
	Detail    *string   `json:"detail"`
	DueDate   time.Time `json:"dueDate"`
	CreatedBy int64     `json:"createdBy"`
}
