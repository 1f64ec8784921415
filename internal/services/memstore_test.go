package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskgrid/engine/internal/models"
	"github.com/taskgrid/engine/internal/repository"
	appErr "github.com/taskgrid/engine/pkg/errors"
)

// memStore is an in-memory TaskStore for service tests. RunInTransaction
// snapshots state and restores it when the callback fails, mirroring the
// rollback behavior of the real store.
type memStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]models.Task
	edges []models.TaskDependency
	seq   int

	// failSaveAt makes the Nth SaveTask call fail (1-based); 0 disables.
	failSaveAt int
	saveCalls  int
}

func newMemStore() *memStore {
	return &memStore{tasks: make(map[uuid.UUID]models.Task)}
}

var _ repository.TaskStore = (*memStore)(nil)

func (m *memStore) GetTask(_ context.Context, id uuid.UUID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "task not found")
	}
	return &t, nil
}

func (m *memStore) ListTasksByIDs(_ context.Context, ids []uuid.UUID) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Task
	for _, id := range ids {
		if t, ok := m.tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListTasksByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]models.Task, error) {
	return m.ListTasksByIDs(ctx, ids)
}

func (m *memStore) SaveTask(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.failSaveAt > 0 && m.saveCalls == m.failSaveAt {
		return appErr.New(appErr.CodeInternal, "save task failed")
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
		task.CreatedAt = time.Now()
	}
	task.UpdatedAt = time.Now()
	m.tasks[task.ID] = *task
	return nil
}

func (m *memStore) DeleteTask(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return appErr.New(appErr.CodeNotFound, "task not found")
	}
	delete(m.tasks, id)
	return nil
}

func (m *memStore) ListTasks(_ context.Context, f repository.TaskFilter) ([]models.Task, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Task
	for _, t := range m.tasks {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID) {
			continue
		}
		if f.Search != "" && !strings.Contains(t.Title, f.Search) && !strings.Contains(t.Description, f.Search) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (m *memStore) ListOverdueTasks(_ context.Context, before time.Time) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Task
	for _, t := range m.tasks {
		if t.DueDate.Before(before) && !t.Status.Terminal() {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *memStore) GetEdgesFrom(_ context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for _, e := range m.edges {
		if e.TaskID == taskID {
			out = append(out, e.DependencyID)
		}
	}
	return out, nil
}

func (m *memStore) GetEdgesTo(_ context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for _, e := range m.edges {
		if e.DependencyID == taskID {
			out = append(out, e.TaskID)
		}
	}
	return out, nil
}

func (m *memStore) EdgesFrom(_ context.Context, taskIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in := make(map[uuid.UUID]bool, len(taskIDs))
	for _, id := range taskIDs {
		in[id] = true
	}
	out := make(map[uuid.UUID][]uuid.UUID)
	for _, e := range m.edges {
		if in[e.TaskID] {
			out[e.TaskID] = append(out[e.TaskID], e.DependencyID)
		}
	}
	return out, nil
}

func (m *memStore) AddEdge(_ context.Context, taskID, dependencyID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.edges {
		if e.TaskID == taskID && e.DependencyID == dependencyID {
			return appErr.New(appErr.CodeConflict, "dependency edge already exists")
		}
	}
	m.seq++
	m.edges = append(m.edges, models.TaskDependency{
		ID:           uuid.New(),
		TaskID:       taskID,
		DependencyID: dependencyID,
		CreatedAt:    time.Now().Add(time.Duration(m.seq)),
	})
	return nil
}

func (m *memStore) RemoveEdge(_ context.Context, taskID, dependencyID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.edges {
		if e.TaskID == taskID && e.DependencyID == dependencyID {
			m.edges = append(m.edges[:i], m.edges[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) RunInTransaction(_ context.Context, fn func(repository.TaskStore) error) error {
	m.mu.Lock()
	tasksSnap := make(map[uuid.UUID]models.Task, len(m.tasks))
	for k, v := range m.tasks {
		tasksSnap[k] = v
	}
	edgesSnap := append([]models.TaskDependency(nil), m.edges...)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.tasks = tasksSnap
		m.edges = edgesSnap
		m.mu.Unlock()
		return err
	}
	return nil
}
