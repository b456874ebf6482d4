// Package apierror renders errors as the API's standard JSON error body.
package apierror

import (
	"errors"
	"net/http"

	"part-request-portal-api-server/internal/requests"
)

// StandardError is the body of every non-2xx response.
type StandardError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (e *StandardError) Error() string {
	return e.Message
}

// HTTPStatus maps the error code to a status.
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case "InvalidRequest", "ValidationError":
		return http.StatusBadRequest
	case "Unauthorized":
		return http.StatusUnauthorized
	case "Forbidden":
		return http.StatusForbidden
	case "RequestNotFound":
		return http.StatusNotFound
	case "InvalidTransition":
		return http.StatusConflict
	case "ServiceUnavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func New(code, message, details string) *StandardError {
	return &StandardError{Code: code, Message: message, Details: details}
}

func NewInvalidRequest(message, details string) *StandardError {
	return New("InvalidRequest", message, details)
}

func NewUnauthorized(message string) *StandardError {
	return New("Unauthorized", message, "")
}

func NewForbidden() *StandardError {
	return New("Forbidden", "you do not have permission to access this resource", "")
}

func NewServiceUnavailable(message string) *StandardError {
	return New("ServiceUnavailable", message, "")
}

func NewInternalError(message string) *StandardError {
	return New("InternalError", message, "")
}

// FromError translates controller errors. Store failures are reported
// without their underlying cause.
func FromError(err error) *StandardError {
	var (
		std  *StandardError
		verr *requests.ValidationError
		terr *requests.TransitionError
		serr *requests.StoreError
	)
	switch {
	case errors.As(err, &std):
		return std
	case errors.As(err, &verr):
		details := ""
		if verr.Field != "" {
			details = "Field: " + verr.Field
		}
		return New("ValidationError", verr.Error(), details)
	case errors.As(err, &terr):
		return New("InvalidTransition", terr.Error(), "Status: "+string(terr.From))
	case errors.Is(err, requests.ErrNotFound):
		return New("RequestNotFound", "part request not found", "")
	case errors.Is(err, requests.ErrForbidden):
		return NewForbidden()
	case errors.As(err, &serr):
		return New("DatabaseError", "request store unavailable", "Operation: "+serr.Op)
	}
	return NewInternalError("internal server error")
}
