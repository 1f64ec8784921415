package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskgrid/engine/internal/api/middleware"
	"github.com/taskgrid/engine/internal/api/types"
	"github.com/taskgrid/engine/internal/models"
	"github.com/taskgrid/engine/internal/repository"
	"github.com/taskgrid/engine/internal/services"
	appErr "github.com/taskgrid/engine/pkg/errors"
	"github.com/taskgrid/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockTaskService struct{ mock.Mock }

func (m *mockTaskService) CreateTask(ctx context.Context, createdBy uuid.UUID, input *services.CreateTaskInput) (*services.TaskDetail, error) {
	args := m.Called(ctx, createdBy, input)
	if d := args.Get(0); d != nil {
		return d.(*services.TaskDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskService) GetTask(ctx context.Context, taskID uuid.UUID) (*services.TaskDetail, error) {
	args := m.Called(ctx, taskID)
	if d := args.Get(0); d != nil {
		return d.(*services.TaskDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskService) ListTasks(ctx context.Context, f repository.TaskFilter) ([]models.Task, int64, error) {
	args := m.Called(ctx, f)
	var tasks []models.Task
	if v := args.Get(0); v != nil {
		tasks = v.([]models.Task)
	}
	return tasks, args.Get(1).(int64), args.Error(2)
}

func (m *mockTaskService) UpdateTask(ctx context.Context, taskID uuid.UUID, input *services.UpdateTaskInput) (*services.TaskDetail, error) {
	args := m.Called(ctx, taskID, input)
	if d := args.Get(0); d != nil {
		return d.(*services.TaskDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskService) AssignTask(ctx context.Context, taskID, assigneeID uuid.UUID) (*services.AssignmentResult, error) {
	args := m.Called(ctx, taskID, assigneeID)
	if d := args.Get(0); d != nil {
		return d.(*services.AssignmentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskService) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status models.TaskStatus, allowRestricted bool) (*services.TaskDetail, error) {
	args := m.Called(ctx, taskID, status, allowRestricted)
	if d := args.Get(0); d != nil {
		return d.(*services.TaskDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskService) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	return m.Called(ctx, taskID).Error(0)
}

func (m *mockTaskService) AllDependencies(ctx context.Context, taskID uuid.UUID) ([]models.Task, error) {
	args := m.Called(ctx, taskID)
	var tasks []models.Task
	if v := args.Get(0); v != nil {
		tasks = v.([]models.Task)
	}
	return tasks, args.Error(1)
}

func (m *mockTaskService) WouldCreateCycle(ctx context.Context, taskID, dependencyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, taskID, dependencyID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTaskService) AllDependenciesCompleted(ctx context.Context, taskID uuid.UUID) (bool, error) {
	args := m.Called(ctx, taskID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTaskService) MarkOverdueTasks(ctx context.Context) (*services.OverdueResult, error) {
	args := m.Called(ctx)
	if d := args.Get(0); d != nil {
		return d.(*services.OverdueResult), args.Error(1)
	}
	return nil, args.Error(1)
}

var _ services.TaskService = (*mockTaskService)(nil)

func authedRequest(method, target string, body []byte, userID uuid.UUID, role models.Role) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID.String())
	ctx = context.WithValue(ctx, middleware.UserRoleKey, string(role))
	return req.WithContext(ctx)
}

func TestCreateForbiddenForEmployee(t *testing.T) {
	svc := &mockTaskService{}
	h := NewTasksHandler(svc, nil, validator.New())

	body, _ := json.Marshal(types.TaskCreateRequest{Title: "T", DueDate: time.Now()})
	req := authedRequest(http.MethodPost, "/api/v1/tasks", body, uuid.New(), models.RoleEmployee)
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	svc.AssertNotCalled(t, "CreateTask")
}

func TestCreateReturnsViolations(t *testing.T) {
	svc := &mockTaskService{}
	h := NewTasksHandler(svc, nil, validator.New())

	verr := appErr.NewValidation([]appErr.Violation{
		{Field: "dependencies", Message: "adding this dependency would create a circular dependency"},
	})
	svc.On("CreateTask", mock.Anything, mock.Anything, mock.Anything).Return(nil, verr)

	body, _ := json.Marshal(types.TaskCreateRequest{Title: "T", DueDate: time.Now().Add(24 * time.Hour)})
	req := authedRequest(http.MethodPost, "/api/v1/tasks", body, uuid.New(), models.RoleManager)
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp types.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.False(t, resp.Success)
	require.Len(t, resp.Error.Violations, 1)
	assert.Equal(t, "dependencies", resp.Error.Violations[0].Field)
}

func TestCreateSucceeds(t *testing.T) {
	svc := &mockTaskService{}
	h := NewTasksHandler(svc, nil, validator.New())

	creator := uuid.New()
	detail := &services.TaskDetail{Task: models.Task{
		ID:      uuid.New(),
		Title:   "Build API",
		DueDate: time.Now().Add(24 * time.Hour),
		Status:  models.StatusPending,
	}}
	svc.On("CreateTask", mock.Anything, creator, mock.MatchedBy(func(in *services.CreateTaskInput) bool {
		return in.Title == "Build API"
	})).Return(detail, nil)

	body, _ := json.Marshal(types.TaskCreateRequest{Title: "Build API", DueDate: detail.Task.DueDate})
	req := authedRequest(http.MethodPost, "/api/v1/tasks", body, creator, models.RoleManager)
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	svc.AssertExpectations(t)
}

func TestListScopesEmployeeToOwnTasks(t *testing.T) {
	svc := &mockTaskService{}
	h := NewTasksHandler(svc, nil, validator.New())

	userID := uuid.New()
	svc.On("ListTasks", mock.Anything, mock.MatchedBy(func(f repository.TaskFilter) bool {
		return f.AssigneeID != nil && *f.AssigneeID == userID
	})).Return([]models.Task{}, int64(0), nil)

	req := authedRequest(http.MethodGet, "/api/v1/tasks", nil, userID, models.RoleEmployee)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestDeleteConflictMapsTo409(t *testing.T) {
	svc := &mockTaskService{}
	h := NewTasksHandler(svc, nil, validator.New())

	id := uuid.New()
	svc.On("DeleteTask", mock.Anything, id).
		Return(appErr.New(appErr.CodeConflict, "cannot delete this task. The following tasks depend on it: Deploy"))

	req := authedRequest(http.MethodDelete, "/api/v1/tasks/"+id.String(), nil, uuid.New(), models.RoleManager)
	req = withURLParam(req, "id", id.String())
	rr := httptest.NewRecorder()
	h.Delete(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
