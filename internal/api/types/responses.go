package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskgrid/engine/internal/models"
	"github.com/taskgrid/engine/internal/services"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type APIError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Violations []Violation `json:"violations,omitempty"`
}

type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
	Role  string    `json:"role"`
}

func FromUser(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, Phone: u.Phone, Role: string(u.Role)}
}

type TaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     time.Time  `json:"due_date"`
	Status      string     `json:"status"`
	AssigneeID  *uuid.UUID `json:"assignee_id,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func FromTask(t *models.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Status:      string(t.Status),
		AssigneeID:  t.AssigneeID,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromTasks(tasks []models.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i := range tasks {
		out[i] = FromTask(&tasks[i])
	}
	return out
}

type TaskDetailResponse struct {
	TaskResponse
	Dependencies []TaskResponse `json:"dependencies"`
	Dependents   []TaskResponse `json:"dependents"`
}

func FromTaskDetail(d *services.TaskDetail) TaskDetailResponse {
	return TaskDetailResponse{
		TaskResponse: FromTask(&d.Task),
		Dependencies: FromTasks(d.Dependencies),
		Dependents:   FromTasks(d.Dependents),
	}
}

type AssignmentResponse struct {
	Task     TaskResponse            `json:"task"`
	Assigned []services.AssignedTask `json:"assigned"`
}

func FromAssignment(r *services.AssignmentResult) AssignmentResponse {
	return AssignmentResponse{Task: FromTask(&r.Task), Assigned: r.Assigned}
}
