package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task is a unit of work in the dependency graph. A task may depend on
// other tasks; its due date must be on or after the due date of every
// dependency.
type Task struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title       string         `gorm:"not null" json:"title" validate:"required"`
	Description string         `gorm:"type:text" json:"description"`
	DueDate     time.Time      `gorm:"not null;index" json:"due_date" validate:"required"`
	Status      TaskStatus     `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	AssigneeID  *uuid.UUID     `gorm:"type:uuid;index" json:"assignee_id"`
	CreatedBy   uuid.UUID      `gorm:"type:uuid;not null;index" json:"created_by" validate:"required"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TaskDependency is one directed edge of the graph: TaskID depends on
// DependencyID. The pair is unique and self-loops are rejected before
// persistence (the store also carries a check constraint).
type TaskDependency struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TaskID       uuid.UUID `gorm:"type:uuid;not null;index:idx_task_dependency_pair,unique" json:"task_id"`
	DependencyID uuid.UUID `gorm:"type:uuid;not null;index:idx_task_dependency_pair,unique" json:"dependency_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Assigned reports whether the task has an assignee.
func (t *Task) Assigned() bool { return t.AssigneeID != nil }

// Overdue reports whether the task's due date has passed and its status
// still allows the sweep to mark it delayed.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate.Before(now) && !t.Status.Terminal()
}

// TitlesOf joins task titles for user-facing violation messages, in the
// order given, preserving the original titles.
func TitlesOf(tasks []Task) string {
	out := ""
	for i, t := range tasks {
		if i > 0 {
			out += ", "
		}
		out += t.Title
	}
	return out
}
