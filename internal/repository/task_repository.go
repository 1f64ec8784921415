package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/taskgrid/engine/internal/models"
	appErr "github.com/taskgrid/engine/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres unique_violation.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// sortableTaskFields whitelists ListTasks sort columns.
var sortableTaskFields = map[string]string{
	"title":      "title",
	"due_date":   "due_date",
	"status":     "status",
	"created_at": "created_at",
}

type gormTaskStore struct {
	db *gorm.DB
}

// NewTaskStore returns the Postgres-backed TaskStore.
func NewTaskStore(db *gorm.DB) TaskStore {
	return &gormTaskStore{db: db}
}

var _ TaskStore = (*gormTaskStore)(nil)

func (r *gormTaskStore) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.New(appErr.CodeNotFound, "task not found")
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get task failed")
	}
	return &t, nil
}

func (r *gormTaskStore) ListTasksByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []models.Task
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list tasks by ids failed")
	}
	return out, nil
}

func (r *gormTaskStore) ListTasksByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]models.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []models.Task
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "lock tasks failed")
	}
	return out, nil
}

func (r *gormTaskStore) SaveTask(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "save task failed")
	}
	return nil
}

func (r *gormTaskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "delete task failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "task not found")
	}
	return nil
}

func (r *gormTaskStore) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Task{})

	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *f.AssigneeID)
	}
	if f.CreatedBy != nil {
		q = q.Where("created_by = ?", *f.CreatedBy)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "count tasks failed")
	}

	col, ok := sortableTaskFields[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	q = q.Order(col + " " + dir)

	page := f.Page
	if page <= 0 {
		page = 1
	}
	size := f.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	q = q.Offset((page - 1) * size).Limit(size)

	var out []models.Task
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "list tasks failed")
	}
	return out, total, nil
}

func (r *gormTaskStore) ListOverdueTasks(ctx context.Context, before time.Time) ([]models.Task, error) {
	var out []models.Task
	err := r.db.WithContext(ctx).
		Where("due_date < ?", before).
		Where("status NOT IN ?", []models.TaskStatus{models.StatusCompleted, models.StatusCancelled, models.StatusDelayed}).
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list overdue tasks failed")
	}
	return out, nil
}

func (r *gormTaskStore) GetEdgesFrom(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.TaskDependency{}).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Pluck("dependency_id", &ids).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get dependency edges failed")
	}
	return ids, nil
}

func (r *gormTaskStore) GetEdgesTo(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.TaskDependency{}).
		Where("dependency_id = ?", taskID).
		Order("created_at ASC").
		Pluck("task_id", &ids).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get dependent edges failed")
	}
	return ids, nil
}

func (r *gormTaskStore) EdgesFrom(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	adj := make(map[uuid.UUID][]uuid.UUID, len(taskIDs))
	if len(taskIDs) == 0 {
		return adj, nil
	}
	var edges []models.TaskDependency
	err := r.db.WithContext(ctx).
		Where("task_id IN ?", taskIDs).
		Order("created_at ASC").
		Find(&edges).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get adjacency failed")
	}
	for _, e := range edges {
		adj[e.TaskID] = append(adj[e.TaskID], e.DependencyID)
	}
	return adj, nil
}

func (r *gormTaskStore) AddEdge(ctx context.Context, taskID, dependencyID uuid.UUID) error {
	edge := models.TaskDependency{TaskID: taskID, DependencyID: dependencyID}
	if err := r.db.WithContext(ctx).Create(&edge).Error; err != nil {
		if isUniqueViolation(err) {
			return appErr.New(appErr.CodeConflict, "dependency already exists")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "add dependency edge failed")
	}
	return nil
}

func (r *gormTaskStore) RemoveEdge(ctx context.Context, taskID, dependencyID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND dependency_id = ?", taskID, dependencyID).
		Delete(&models.TaskDependency{}).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "remove dependency edge failed")
	}
	return nil
}

// RunInTransaction executes fn against a transaction-bound store. A non-nil
// error from fn rolls back everything written through it.
func (r *gormTaskStore) RunInTransaction(ctx context.Context, fn func(TaskStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTaskStore{db: tx})
	})
}
