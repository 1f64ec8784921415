package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskgrid/engine/internal/api/types"
	"github.com/taskgrid/engine/internal/models"
	"github.com/taskgrid/engine/internal/repository"
	"github.com/taskgrid/engine/internal/services"
)

type TasksHandler struct {
	tasks    services.TaskService
	users    repository.UserRepository
	validate *validator.Validate
}

func NewTasksHandler(tasks services.TaskService, users repository.UserRepository, v *validator.Validate) *TasksHandler {
	return &TasksHandler{tasks: tasks, users: users, validate: v}
}

func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok || !u.HasPermission(models.PermTaskView) {
		writeErrorStr(w, http.StatusForbidden, "not allowed to view tasks")
		return
	}

	f := repository.TaskFilter{
		Search: r.URL.Query().Get("search"),
		SortBy: r.URL.Query().Get("sort_by"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := models.ParseTaskStatus(s)
		if err != nil {
			writeErrorStr(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		f.Status = &status
	}
	if a := r.URL.Query().Get("assignee_id"); a != "" {
		id, err := uuid.Parse(a)
		if err != nil {
			writeErrorStr(w, http.StatusBadRequest, "invalid assignee_id")
			return
		}
		f.AssigneeID = &id
	}
	f.SortDesc = r.URL.Query().Get("order") == "desc"
	f.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	f.PageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 100 {
		f.PageSize = 20
	}

	// Without view-all, a caller only sees tasks assigned to them.
	if !u.HasPermission(models.PermTaskViewAll) {
		f.AssigneeID = &u.ID
	}

	items, total, err := h.tasks.ListTasks(r.Context(), f)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    types.FromTasks(items),
		Meta:    &types.Meta{Page: f.Page, PageSize: f.PageSize, Total: total},
	})
}

func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok || !u.HasPermission(models.PermTaskCreate) {
		writeErrorStr(w, http.StatusForbidden, "not allowed to create tasks")
		return
	}

	var req types.TaskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	depIDs, err := parseUUIDs(req.DependencyIDs)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid dependency id")
		return
	}

	detail, err := h.tasks.CreateTask(r.Context(), u.ID, &services.CreateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		DueDate:       req.DueDate,
		DependencyIDs: depIDs,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: types.FromTaskDetail(detail)})
}

func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok || !u.HasPermission(models.PermTaskView) {
		writeErrorStr(w, http.StatusForbidden, "not allowed to view tasks")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid task id")
		return
	}

	detail, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !u.HasPermission(models.PermTaskViewAll) && !ownsTask(&detail.Task, u.ID) {
		writeErrorStr(w, http.StatusForbidden, "not allowed to view this task")
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: types.FromTaskDetail(detail)})
}

// Dependencies returns the task's full transitive dependency set.
func (h *TasksHandler) Dependencies(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok || !u.HasPermission(models.PermTaskView) {
		writeErrorStr(w, http.StatusForbidden, "not allowed to view tasks")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid task id")
		return
	}

	deps, err := h.tasks.AllDependencies(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: types.FromTasks(deps)})
}

func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok || !u.HasPermission(models.PermTaskUpdate) {
		writeErrorStr(w, http.StatusForbidden, "not allowed to update tasks")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req types.TaskUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}

	input := &services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if req.DependencyIDs != nil {
		depIDs, err := parseUUIDs(*req.DependencyIDs)
		if err != nil {
			writeErrorStr(w, http.StatusBadRequest, "invalid dependency id")
			return
		}
		input.DependencyIDs = &depIDs
	}

	detail, err := h.tasks.UpdateTask(r.Context(), id, input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: types.FromTaskDetail(detail)})
}

func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok || !u.HasPermission(models.PermTaskDelete) {
		writeErrorStr(w, http.StatusForbidden, "not allowed to delete tasks")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}

func (h *TasksHandler) Assign(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok || !u.HasPermission(models.PermTaskAssign) {
		writeErrorStr(w, http.StatusForbidden, "not allowed to assign tasks")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req types.TaskAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	assigneeID, err := uuid.Parse(req.AssigneeID)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid assignee id")
		return
	}

	var assignee models.User
	if err := h.users.GetByID(r.Context(), assigneeID, &assignee); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.tasks.AssignTask(r.Context(), id, assigneeID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: types.FromAssignment(result)})
}

func (h *TasksHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok || !u.HasPermission(models.PermTaskUpdateStatus) {
		writeErrorStr(w, http.StatusForbidden, "not allowed to update task status")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req types.TaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	status, err := models.ParseTaskStatus(req.Status)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "unknown status")
		return
	}

	if !u.HasPermission(models.PermTaskViewAll) {
		current, err := h.tasks.GetTask(r.Context(), id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		if !ownsTask(&current.Task, u.ID) {
			writeErrorStr(w, http.StatusForbidden, "not allowed to update this task")
			return
		}
	}

	detail, err := h.tasks.UpdateTaskStatus(r.Context(), id, status, u.CanOverrideRestrictedStatus())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: types.FromTaskDetail(detail)})
}

func ownsTask(t *models.Task, userID uuid.UUID) bool {
	if t.CreatedBy == userID {
		return true
	}
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

func parseUUIDs(in []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(in))
	for _, s := range in {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
