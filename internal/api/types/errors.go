package types

import (
	"errors"
	"net/http"

	appErr "github.com/taskgrid/engine/pkg/errors"
)

// FromAppError flattens an error into the wire shape, carrying field
// violations through when the error holds any.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var ae *appErr.AppError
	if !errors.As(err, &ae) {
		return &APIError{Code: string(appErr.CodeUnknown), Message: err.Error()}
	}
	out := &APIError{Code: string(ae.Code), Message: ae.Message}
	for _, v := range ae.Violations {
		out.Violations = append(out.Violations, Violation{Field: v.Field, Message: v.Message})
	}
	return out
}

// HTTPStatus maps an error code to the status the handler should write.
func HTTPStatus(err error) int {
	var ae *appErr.AppError
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Code {
	case appErr.CodeInvalid:
		return http.StatusUnprocessableEntity
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeConflict:
		return http.StatusConflict
	case appErr.CodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.CodeForbidden:
		return http.StatusForbidden
	case appErr.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
