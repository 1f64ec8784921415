package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskgrid/engine/internal/graph"
	"github.com/taskgrid/engine/internal/models"
	"github.com/taskgrid/engine/internal/repository"
	appErr "github.com/taskgrid/engine/pkg/errors"
)

// graphChange describes a proposed mutation for validation purposes.
// TaskID is nil for a task being created. DependencyIDs is the full
// proposed dependency set when DepsChanged is true.
type graphChange struct {
	TaskID         *uuid.UUID
	DueDate        time.Time
	DueDateChanged bool
	DependencyIDs  []uuid.UUID
	DepsChanged    bool
}

// validateGraphChange evaluates every dependency rule for the proposed
// change and returns a single validation error carrying all detected
// violations. Nothing short-circuits: the caller sees every offending task
// at once, named by title.
func validateGraphChange(ctx context.Context, store repository.TaskStore, ch graphChange) error {
	var violations []appErr.Violation

	deps, err := store.ListTasksByIDs(ctx, ch.DependencyIDs)
	if err != nil {
		return err
	}

	if ch.DepsChanged {
		if ch.TaskID != nil {
			for _, depID := range ch.DependencyIDs {
				if depID == *ch.TaskID {
					violations = append(violations, appErr.Violation{
						Field:   "dependency_ids",
						Message: "a task cannot depend on itself",
					})
					break
				}
			}
		}

		if len(deps) < len(ch.DependencyIDs) {
			violations = append(violations, appErr.Violation{
				Field:   "dependency_ids",
				Message: "one or more dependency tasks do not exist",
			})
		}

		if ch.TaskID != nil {
			walker := graph.NewWalker(store)
			for _, dep := range deps {
				cyclic, err := walker.WouldCreateCycle(ctx, *ch.TaskID, dep.ID)
				if err != nil {
					return err
				}
				if cyclic {
					violations = append(violations, appErr.Violation{
						Field:   "dependency_ids",
						Message: fmt.Sprintf("cannot add dependency '%s' as it would create a circular dependency", dep.Title),
					})
				}
			}
		}
	}

	// A task is never due before anything it depends on. Equal due dates
	// are fine.
	var lateDeps []models.Task
	for _, dep := range deps {
		if dep.DueDate.After(ch.DueDate) {
			lateDeps = append(lateDeps, dep)
		}
	}
	if len(lateDeps) > 0 {
		violations = append(violations, appErr.Violation{
			Field:   "due_date",
			Message: fmt.Sprintf("the due date must be equal to or after the due dates of all dependency tasks. Invalid dependencies: %s", models.TitlesOf(lateDeps)),
		})
	}

	if ch.DueDateChanged && ch.TaskID != nil {
		dependentIDs, err := store.GetEdgesTo(ctx, *ch.TaskID)
		if err != nil {
			return err
		}
		dependents, err := store.ListTasksByIDs(ctx, dependentIDs)
		if err != nil {
			return err
		}
		var earlyDependents []models.Task
		for _, d := range dependents {
			if d.DueDate.Before(ch.DueDate) {
				earlyDependents = append(earlyDependents, d)
			}
		}
		if len(earlyDependents) > 0 {
			violations = append(violations, appErr.Violation{
				Field:   "due_date",
				Message: fmt.Sprintf("cannot update due date. The following tasks depend on this task and have earlier due dates: %s", models.TitlesOf(earlyDependents)),
			})
		}
	}

	if len(violations) > 0 {
		return appErr.NewValidation(violations)
	}
	return nil
}

// dedupeIDs preserves first-seen order.
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// orderTasksByIDs arranges tasks to match the given ID order, dropping IDs
// with no matching task.
func orderTasksByIDs(tasks []models.Task, ids []uuid.UUID) []models.Task {
	byID := make(map[uuid.UUID]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	out := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}
