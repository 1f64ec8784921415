package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskgrid/engine/internal/models"
)

// TaskFilter narrows and pages task listings.
type TaskFilter struct {
	Status     *models.TaskStatus
	AssigneeID *uuid.UUID
	CreatedBy  *uuid.UUID
	Search     string
	SortBy     string
	SortDesc   bool
	Page       int
	PageSize   int
}

// TaskStore is the persistence contract the task engine consumes. Tasks and
// dependency edges live behind it; everything the graph algorithms see is
// fetched through these methods. RunInTransaction scopes a read-then-write
// sequence to one atomic unit of work: the callback receives a store bound
// to the transaction, and any error rolls back every write made through it.
type TaskStore interface {
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListTasksByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Task, error)
	// ListTasksByIDsForUpdate additionally takes row locks so concurrent
	// assignment cascades over overlapping closures serialize.
	ListTasksByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]models.Task, error)
	SaveTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id uuid.UUID) error
	ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, int64, error)
	ListOverdueTasks(ctx context.Context, before time.Time) ([]models.Task, error)

	// GetEdgesFrom returns the IDs the task directly depends on.
	GetEdgesFrom(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error)
	// GetEdgesTo returns the IDs of tasks that directly depend on taskID.
	GetEdgesTo(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error)
	// EdgesFrom returns the adjacency for a whole frontier in one query.
	EdgesFrom(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	AddEdge(ctx context.Context, taskID, dependencyID uuid.UUID) error
	RemoveEdge(ctx context.Context, taskID, dependencyID uuid.UUID) error

	RunInTransaction(ctx context.Context, fn func(TaskStore) error) error
}
