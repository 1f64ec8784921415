package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskgrid/engine/internal/graph"
	"github.com/taskgrid/engine/internal/models"
	"github.com/taskgrid/engine/internal/notify"
	"github.com/taskgrid/engine/internal/repository"
	appErr "github.com/taskgrid/engine/pkg/errors"
	"github.com/taskgrid/engine/pkg/logger"
	"go.uber.org/zap"
)

// TaskService orchestrates every mutation of the task dependency graph.
// Cycle, date-order, and completion-gate checks run before any write, and
// each operation's reads and writes share one transaction so concurrent
// callers cannot interleave a cycle or a stale closure into the store.
type TaskService interface {
	CreateTask(ctx context.Context, createdBy uuid.UUID, input *CreateTaskInput) (*TaskDetail, error)
	GetTask(ctx context.Context, taskID uuid.UUID) (*TaskDetail, error)
	ListTasks(ctx context.Context, f repository.TaskFilter) ([]models.Task, int64, error)
	UpdateTask(ctx context.Context, taskID uuid.UUID, input *UpdateTaskInput) (*TaskDetail, error)
	AssignTask(ctx context.Context, taskID, assigneeID uuid.UUID) (*AssignmentResult, error)
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status models.TaskStatus, allowRestricted bool) (*TaskDetail, error)
	DeleteTask(ctx context.Context, taskID uuid.UUID) error

	AllDependencies(ctx context.Context, taskID uuid.UUID) ([]models.Task, error)
	WouldCreateCycle(ctx context.Context, taskID, dependencyID uuid.UUID) (bool, error)
	AllDependenciesCompleted(ctx context.Context, taskID uuid.UUID) (bool, error)

	MarkOverdueTasks(ctx context.Context) (*OverdueResult, error)
}

type CreateTaskInput struct {
	Title         string
	Description   string
	DueDate       time.Time
	DependencyIDs []uuid.UUID
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	// DependencyIDs, when non-nil, replaces the full dependency set. An
	// empty slice clears it.
	DependencyIDs *[]uuid.UUID
}

// TaskDetail is a task plus its direct dependencies, loaded together for
// presentation.
type TaskDetail struct {
	Task         models.Task
	Dependencies []models.Task
	Dependents   []models.Task
}

// AssignedTask is the caller-facing summary of one task touched by an
// assignment cascade.
type AssignedTask struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

// AssignmentResult reports the cascade outcome: the primary task first,
// then every dependency the cascade assigned, in closure-traversal order.
type AssignmentResult struct {
	Task     models.Task
	Assigned []AssignedTask
}

type OverdueResult struct {
	MarkedCount  int
	MarkedTitles []string
}

type taskService struct {
	store    repository.TaskStore
	notifier notify.Notifier
}

func NewTaskService(store repository.TaskStore, notifier notify.Notifier) TaskService {
	return &taskService{store: store, notifier: notifier}
}

var _ TaskService = (*taskService)(nil)

func (s *taskService) CreateTask(ctx context.Context, createdBy uuid.UUID, input *CreateTaskInput) (*TaskDetail, error) {
	logger.L().Info("create task", zap.String("created_by", createdBy.String()), zap.String("title", input.Title))

	depIDs := dedupeIDs(input.DependencyIDs)

	var detail *TaskDetail
	err := s.store.RunInTransaction(ctx, func(tx repository.TaskStore) error {
		// Validation happens again here even when the boundary already ran
		// it: the engine stands alone and must not trust its caller.
		if err := validateGraphChange(ctx, tx, graphChange{
			DueDate:        input.DueDate,
			DueDateChanged: true,
			DependencyIDs:  depIDs,
			DepsChanged:    len(depIDs) > 0,
		}); err != nil {
			return err
		}

		task := &models.Task{
			Title:       input.Title,
			Description: input.Description,
			DueDate:     input.DueDate,
			Status:      models.StatusPending,
			CreatedBy:   createdBy,
		}
		if err := tx.SaveTask(ctx, task); err != nil {
			return err
		}
		for _, depID := range depIDs {
			if err := tx.AddEdge(ctx, task.ID, depID); err != nil {
				return err
			}
		}

		deps, err := tx.ListTasksByIDs(ctx, depIDs)
		if err != nil {
			return err
		}
		detail = &TaskDetail{Task: *task, Dependencies: orderTasksByIDs(deps, depIDs)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("task created", zap.String("task_id", detail.Task.ID.String()), zap.Int("dependencies", len(detail.Dependencies)))
	return detail, nil
}

func (s *taskService) GetTask(ctx context.Context, taskID uuid.UUID) (*TaskDetail, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	depIDs, err := s.store.GetEdgesFrom(ctx, taskID)
	if err != nil {
		return nil, err
	}
	deps, err := s.store.ListTasksByIDs(ctx, depIDs)
	if err != nil {
		return nil, err
	}
	dependentIDs, err := s.store.GetEdgesTo(ctx, taskID)
	if err != nil {
		return nil, err
	}
	dependents, err := s.store.ListTasksByIDs(ctx, dependentIDs)
	if err != nil {
		return nil, err
	}
	return &TaskDetail{
		Task:         *task,
		Dependencies: orderTasksByIDs(deps, depIDs),
		Dependents:   orderTasksByIDs(dependents, dependentIDs),
	}, nil
}

func (s *taskService) ListTasks(ctx context.Context, f repository.TaskFilter) ([]models.Task, int64, error) {
	return s.store.ListTasks(ctx, f)
}

func (s *taskService) UpdateTask(ctx context.Context, taskID uuid.UUID, input *UpdateTaskInput) (*TaskDetail, error) {
	logger.L().Info("update task", zap.String("task_id", taskID.String()))

	var detail *TaskDetail
	err := s.store.RunInTransaction(ctx, func(tx repository.TaskStore) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}

		currentDeps, err := tx.GetEdgesFrom(ctx, taskID)
		if err != nil {
			return err
		}

		proposedDue := task.DueDate
		if input.DueDate != nil {
			proposedDue = *input.DueDate
		}
		proposedDeps := currentDeps
		if input.DependencyIDs != nil {
			proposedDeps = dedupeIDs(*input.DependencyIDs)
		}

		if err := validateGraphChange(ctx, tx, graphChange{
			TaskID:         &taskID,
			DueDate:        proposedDue,
			DueDateChanged: input.DueDate != nil,
			DependencyIDs:  proposedDeps,
			DepsChanged:    input.DependencyIDs != nil,
		}); err != nil {
			return err
		}

		if input.Title != nil {
			task.Title = *input.Title
		}
		if input.Description != nil {
			task.Description = *input.Description
		}
		task.DueDate = proposedDue
		if err := tx.SaveTask(ctx, task); err != nil {
			return err
		}

		// Sync semantics: the supplied set fully replaces the edge set, but
		// edges present in both are left untouched.
		if input.DependencyIDs != nil {
			if err := syncEdges(ctx, tx, taskID, currentDeps, proposedDeps); err != nil {
				return err
			}
		}

		deps, err := tx.ListTasksByIDs(ctx, proposedDeps)
		if err != nil {
			return err
		}
		detail = &TaskDetail{Task: *task, Dependencies: orderTasksByIDs(deps, proposedDeps)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("task updated", zap.String("task_id", taskID.String()))
	return detail, nil
}

func syncEdges(ctx context.Context, tx repository.TaskStore, taskID uuid.UUID, current, desired []uuid.UUID) error {
	want := make(map[uuid.UUID]bool, len(desired))
	for _, id := range desired {
		want[id] = true
	}
	have := make(map[uuid.UUID]bool, len(current))
	for _, id := range current {
		have[id] = true
		if !want[id] {
			if err := tx.RemoveEdge(ctx, taskID, id); err != nil {
				return err
			}
		}
	}
	for _, id := range desired {
		if !have[id] {
			if err := tx.AddEdge(ctx, taskID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// AssignTask assigns the task and cascades the assignment through its
// transitive dependency closure. Only dependencies with no assignee are
// touched; a dependency someone already owns keeps its assignee and status.
// The closure read and every write share one transaction with row locks so
// racing cascades over overlapping closures cannot both win a dependency.
func (s *taskService) AssignTask(ctx context.Context, taskID, assigneeID uuid.UUID) (*AssignmentResult, error) {
	logger.L().Info("assign task", zap.String("task_id", taskID.String()), zap.String("assignee_id", assigneeID.String()))

	var result *AssignmentResult
	err := s.store.RunInTransaction(ctx, func(tx repository.TaskStore) error {
		locked, err := tx.ListTasksByIDsForUpdate(ctx, []uuid.UUID{taskID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return appErr.New(appErr.CodeNotFound, "task not found")
		}
		task := locked[0]

		if task.Assigned() {
			return appErr.New(appErr.CodeConflict, "this task is already assigned")
		}

		closureIDs, err := graph.NewWalker(tx).Closure(ctx, taskID)
		if err != nil {
			return err
		}
		closure, err := tx.ListTasksByIDsForUpdate(ctx, closureIDs)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Task, len(closure))
		for _, t := range closure {
			byID[t.ID] = t
		}

		assigned := []AssignedTask{{ID: task.ID, Title: task.Title, DueDate: task.DueDate}}
		for _, id := range closureIDs {
			dep, ok := byID[id]
			if !ok || dep.Assigned() {
				continue
			}
			dep.AssigneeID = &assigneeID
			dep.Status = models.StatusAssigned
			if err := tx.SaveTask(ctx, &dep); err != nil {
				return err
			}
			assigned = append(assigned, AssignedTask{ID: dep.ID, Title: dep.Title, DueDate: dep.DueDate})
		}

		task.AssigneeID = &assigneeID
		task.Status = models.StatusAssigned
		if err := tx.SaveTask(ctx, &task); err != nil {
			return err
		}

		result = &AssignmentResult{Task: task, Assigned: assigned}
		return nil
	})
	if err != nil {
		return nil, err
	}

	refs := make([]notify.TaskRef, len(result.Assigned))
	for i, a := range result.Assigned {
		refs[i] = notify.TaskRef{ID: a.ID, Title: a.Title, DueDate: a.DueDate}
	}
	if nerr := s.notifier.TaskAssigned(ctx, assigneeID, refs); nerr != nil {
		logger.L().Warn("assignment notification failed", zap.String("task_id", taskID.String()), zap.Error(nerr))
	}

	logger.L().Info("task assigned", zap.String("task_id", taskID.String()), zap.Int("tasks_touched", len(result.Assigned)))
	return result, nil
}

func (s *taskService) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status models.TaskStatus, allowRestricted bool) (*TaskDetail, error) {
	logger.L().Info("update task status", zap.String("task_id", taskID.String()), zap.String("status", string(status)))

	var detail *TaskDetail
	err := s.store.RunInTransaction(ctx, func(tx repository.TaskStore) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}

		if !status.Valid() {
			return appErr.NewValidation([]appErr.Violation{{Field: "status", Message: "invalid status value"}})
		}

		if models.IsRestrictedTransition(task.Status) && !allowRestricted {
			return appErr.New(appErr.CodeConflict,
				"only privileged callers can change the status of completed, delayed, or cancelled tasks")
		}

		if status == models.StatusCompleted {
			incomplete, err := s.incompleteDependencies(ctx, tx, taskID)
			if err != nil {
				return err
			}
			if len(incomplete) > 0 {
				return appErr.NewValidation([]appErr.Violation{{
					Field:   "status",
					Message: fmt.Sprintf("cannot mark task as completed. The following dependency tasks are not completed: %s", models.TitlesOf(incomplete)),
				}})
			}
		}

		task.Status = status
		if err := tx.SaveTask(ctx, task); err != nil {
			return err
		}

		depIDs, err := tx.GetEdgesFrom(ctx, taskID)
		if err != nil {
			return err
		}
		deps, err := tx.ListTasksByIDs(ctx, depIDs)
		if err != nil {
			return err
		}
		detail = &TaskDetail{Task: *task, Dependencies: orderTasksByIDs(deps, depIDs)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("task status updated", zap.String("task_id", taskID.String()), zap.String("status", string(status)))
	return detail, nil
}

func (s *taskService) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	logger.L().Info("delete task", zap.String("task_id", taskID.String()))

	err := s.store.RunInTransaction(ctx, func(tx repository.TaskStore) error {
		if _, err := tx.GetTask(ctx, taskID); err != nil {
			return err
		}

		dependentIDs, err := tx.GetEdgesTo(ctx, taskID)
		if err != nil {
			return err
		}
		if len(dependentIDs) > 0 {
			dependents, err := tx.ListTasksByIDs(ctx, dependentIDs)
			if err != nil {
				return err
			}
			return appErr.New(appErr.CodeConflict,
				fmt.Sprintf("cannot delete this task. The following tasks depend on it: %s", models.TitlesOf(dependents)))
		}

		outgoing, err := tx.GetEdgesFrom(ctx, taskID)
		if err != nil {
			return err
		}
		for _, depID := range outgoing {
			if err := tx.RemoveEdge(ctx, taskID, depID); err != nil {
				return err
			}
		}
		return tx.DeleteTask(ctx, taskID)
	})
	if err != nil {
		return err
	}

	logger.L().Info("task deleted", zap.String("task_id", taskID.String()))
	return nil
}

// AllDependencies returns the task's full transitive dependency set in
// closure-traversal order.
func (s *taskService) AllDependencies(ctx context.Context, taskID uuid.UUID) ([]models.Task, error) {
	if _, err := s.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	closureIDs, err := graph.NewWalker(s.store).Closure(ctx, taskID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasksByIDs(ctx, closureIDs)
	if err != nil {
		return nil, err
	}
	return orderTasksByIDs(tasks, closureIDs), nil
}

func (s *taskService) WouldCreateCycle(ctx context.Context, taskID, dependencyID uuid.UUID) (bool, error) {
	return graph.NewWalker(s.store).WouldCreateCycle(ctx, taskID, dependencyID)
}

// AllDependenciesCompleted reports whether every direct dependency has
// status completed. A task with no dependencies is trivially eligible.
func (s *taskService) AllDependenciesCompleted(ctx context.Context, taskID uuid.UUID) (bool, error) {
	incomplete, err := s.incompleteDependencies(ctx, s.store, taskID)
	if err != nil {
		return false, err
	}
	return len(incomplete) == 0, nil
}

func (s *taskService) incompleteDependencies(ctx context.Context, store repository.TaskStore, taskID uuid.UUID) ([]models.Task, error) {
	depIDs, err := store.GetEdgesFrom(ctx, taskID)
	if err != nil {
		return nil, err
	}
	deps, err := store.ListTasksByIDs(ctx, depIDs)
	if err != nil {
		return nil, err
	}
	var incomplete []models.Task
	for _, dep := range deps {
		if dep.Status != models.StatusCompleted {
			incomplete = append(incomplete, dep)
		}
	}
	return orderTasksByIDs(incomplete, depIDs), nil
}

// MarkOverdueTasks moves every task past its due date, and not already
// completed, cancelled, or delayed, into the delayed status. Invoked by the
// external scheduler through the sweeper binary.
func (s *taskService) MarkOverdueTasks(ctx context.Context) (*OverdueResult, error) {
	now := time.Now()

	var marked []models.Task
	err := s.store.RunInTransaction(ctx, func(tx repository.TaskStore) error {
		overdue, err := tx.ListOverdueTasks(ctx, now)
		if err != nil {
			return err
		}
		for i := range overdue {
			overdue[i].Status = models.StatusDelayed
			if err := tx.SaveTask(ctx, &overdue[i]); err != nil {
				return err
			}
		}
		marked = overdue
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &OverdueResult{MarkedCount: len(marked)}
	refs := make([]notify.TaskRef, 0, len(marked))
	for _, t := range marked {
		result.MarkedTitles = append(result.MarkedTitles, t.Title)
		refs = append(refs, notify.TaskRef{ID: t.ID, Title: t.Title, DueDate: t.DueDate})
	}
	if len(refs) > 0 {
		if nerr := s.notifier.TasksDelayed(ctx, refs); nerr != nil {
			logger.L().Warn("delayed notification failed", zap.Error(nerr))
		}
	}

	logger.L().Info("overdue sweep finished", zap.Int("marked", result.MarkedCount))
	return result, nil
}
