package handlers

import (
	"net/http"

	"github.com/taskgrid/engine/internal/api/middleware"
	"github.com/taskgrid/engine/internal/api/types"
	"github.com/taskgrid/engine/internal/models"
	"github.com/taskgrid/engine/internal/repository"
)

type ProfileHandler struct {
	users repository.UserRepository
}

func NewProfileHandler(users repository.UserRepository) *ProfileHandler {
	return &ProfileHandler{users: users}
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok {
		writeErrorStr(w, http.StatusUnauthorized, "missing caller identity")
		return
	}
	var full models.User
	if err := h.users.GetByID(r.Context(), u.ID, &full); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: types.FromUser(&full)})
}

// Permissions lists what the caller's role grants, so clients can gate UI.
func (h *ProfileHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetUserRole(r.Context())
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data: map[string]any{
			"role":        role,
			"permissions": models.PermissionsFor(role),
		},
	})
}
