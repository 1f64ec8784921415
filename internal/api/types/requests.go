package types

import "time"

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"omitempty,min=7"`
	Role     string `json:"role" validate:"omitempty,oneof=manager employee"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TaskCreateRequest struct {
	Title         string    `json:"title" validate:"required,max=255"`
	Description   string    `json:"description"`
	DueDate       time.Time `json:"due_date" validate:"required"`
	DependencyIDs []string  `json:"dependency_ids" validate:"omitempty,dive,uuid4"`
}

// TaskUpdateRequest carries only the fields the caller wants to change.
// A non-nil DependencyIDs fully replaces the task's dependency set.
type TaskUpdateRequest struct {
	Title         *string    `json:"title" validate:"omitempty,max=255"`
	Description   *string    `json:"description"`
	DueDate       *time.Time `json:"due_date"`
	DependencyIDs *[]string  `json:"dependency_ids" validate:"omitempty,dive,uuid4"`
}

type TaskAssignRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required,uuid4"`
}

type TaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending assigned in-progress completed cancelled delayed"`
}
