package models

import "fmt"

// TaskStatus is the closed set of states a task moves through.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusAssigned   TaskStatus = "assigned"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
	StatusDelayed    TaskStatus = "delayed"
)

// AllStatuses lists every valid status in declaration order.
func AllStatuses() []TaskStatus {
	return []TaskStatus{
		StatusPending,
		StatusAssigned,
		StatusInProgress,
		StatusCompleted,
		StatusCancelled,
		StatusDelayed,
	}
}

// ParseTaskStatus converts a wire value into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled, StatusDelayed:
		return TaskStatus(s), nil
	default:
		return "", fmt.Errorf("invalid task status %q", s)
	}
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	_, err := ParseTaskStatus(string(s))
	return err == nil
}

// Terminal reports whether a task in this status is excluded from the
// overdue sweep.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusDelayed:
		return true
	default:
		return false
	}
}

// IsRestrictedTransition reports whether moving a task away from the given
// status requires a privileged caller. The engine only answers the
// question; whether the caller is privileged is the policy layer's call.
func IsRestrictedTransition(from TaskStatus) bool {
	switch from {
	case StatusCompleted, StatusDelayed, StatusCancelled:
		return true
	case StatusPending, StatusAssigned, StatusInProgress:
		return false
	default:
		return false
	}
}
