package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskgrid/engine/internal/api/middleware"
	"github.com/taskgrid/engine/internal/api/types"
	"github.com/taskgrid/engine/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAppError(w http.ResponseWriter, err error) {
	writeJSON(w, types.HTTPStatus(err), types.APIResponse{Success: false, Error: types.FromAppError(err)})
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: "invalid", Message: msg}})
}

// caller reconstructs the authenticated user from the claims the auth
// middleware stored. Only the id and role matter for permission checks.
func caller(r *http.Request) (models.User, bool) {
	id, err := uuid.Parse(middleware.GetUserID(r.Context()))
	if err != nil {
		return models.User{}, false
	}
	return models.User{ID: id, Role: middleware.GetUserRole(r.Context())}, true
}
