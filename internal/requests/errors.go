package requests

import (
	"errors"
	"fmt"

	"part-request-portal-api-server/internal/models"
)

var (
	// ErrNotFound is returned when the request does not exist or lies
	// outside the caller's scope.
	ErrNotFound = errors.New("part request not found")
	// ErrForbidden is returned when the caller's role may not perform the operation.
	ErrForbidden = errors.New("operation not permitted for this caller")
)

// ValidationError reports malformed input. It is raised before any store call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransitionError reports an illegal state change or a mutation attempted
// on a completed request. It is raised before any store call.
type TransitionError struct {
	From  models.RequestStatus
	To    models.RequestStatus
	Event Event
}

// Terminal reports whether the rejection is due to the request being completed.
func (e *TransitionError) Terminal() bool { return e.From == models.StatusCompleted }

func (e *TransitionError) Error() string {
	if e.Terminal() {
		return fmt.Sprintf("request is in terminal state %q: %s not permitted", e.From, e.Event)
	}
	if e.To == "" {
		return fmt.Sprintf("%s not permitted from %q", e.Event, e.From)
	}
	return fmt.Sprintf("%s not permitted from %q to %q", e.Event, e.From, e.To)
}

// StoreError wraps a failure reported by the request store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s failed: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }
