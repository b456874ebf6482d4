package requests

import "part-request-portal-api-server/internal/models"

// Event is a lifecycle action applied to an existing request.
type Event string

const (
	EventSetStatus Event = "set-status"
	EventFinalize  Event = "finalize"
	EventEdit      Event = "edit"
	EventDelete    Event = "delete"
)

type transition struct {
	from  models.RequestStatus
	event Event
	to    models.RequestStatus
}

// Every legal edge of the lifecycle. completed has no outgoing edges.
var transitions = map[transition]struct{}{
	{models.StatusPending, EventSetStatus, models.StatusAvailable}:    {},
	{models.StatusPending, EventSetStatus, models.StatusOutOfStock}:   {},
	{models.StatusAvailable, EventSetStatus, models.StatusOutOfStock}: {},
	{models.StatusOutOfStock, EventSetStatus, models.StatusAvailable}: {},
	{models.StatusAvailable, EventFinalize, models.StatusCompleted}:   {},
}

// CheckTransition validates moving from one status to another through event.
func CheckTransition(from models.RequestStatus, event Event, to models.RequestStatus) error {
	if from == models.StatusCompleted {
		return &TransitionError{From: from, To: to, Event: event}
	}
	if _, ok := transitions[transition{from, event, to}]; !ok {
		return &TransitionError{From: from, To: to, Event: event}
	}
	return nil
}

// CheckMutable rejects edit and delete on completed requests.
func CheckMutable(status models.RequestStatus, event Event) error {
	if status == models.StatusCompleted {
		return &TransitionError{From: status, Event: event}
	}
	return nil
}
