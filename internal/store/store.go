// Package store defines the contract the lifecycle controller needs from the
// request collection: insert with a generated id, partial update, delete,
// point reads, filtered/ordered queries and push subscriptions.
package store

import (
	"context"
	"errors"

	"part-request-portal-api-server/internal/models"
)

// ErrNotFound is returned when no record has the given id.
var ErrNotFound = errors.New("store: record not found")

// Field names as persisted. Drivers translate queries using these keys.
const (
	FieldID                 = "id"
	FieldOSNumber           = "osNumber"
	FieldCostCenter         = "costCenter"
	FieldReservation        = "reservation"
	FieldRegistrationNumber = "registrationNumber"
	FieldRequesterName      = "requesterName"
	FieldRequestDate        = "requestDate"
	FieldStatus             = "status"
	FieldItems              = "items"
)

// Op is a comparison operator supported in a Condition.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
)

// Condition is one predicate over a string-valued field.
type Condition struct {
	Field string
	Op    Op
	Value string
}

// SortKey orders results by Field; Desc flips the direction.
type SortKey struct {
	Field string
	Desc  bool
}

// Query is a conjunction of conditions plus a multi-key ordering.
type Query struct {
	Where   []Condition
	OrderBy []SortKey
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	OSNumber           *string
	CostCenter         *string
	Reservation        *string
	RegistrationNumber *string
	RequesterName      *string
	Status             *models.RequestStatus
	Items              []models.RequestItem
}

// Empty reports whether applying p would change nothing.
func (p Patch) Empty() bool {
	return p.OSNumber == nil && p.CostCenter == nil && p.Reservation == nil &&
		p.RegistrationNumber == nil && p.RequesterName == nil && p.Status == nil &&
		p.Items == nil
}

// SnapshotFunc receives the full ordered result set after every change
// batch. A non-nil err means the subscription failed; records is nil then.
type SnapshotFunc func(records []models.PartRequest, err error)

// Subscription is a live watch. Cancel is idempotent and stops further
// callback invocations once it returns. It waits for an in-flight callback,
// so it must not be called from inside the SnapshotFunc.
type Subscription interface {
	Cancel()
}

// RequestStore is the request collection.
type RequestStore interface {
	Insert(ctx context.Context, r models.PartRequest) (string, error)
	Update(ctx context.Context, id string, p Patch) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.PartRequest, error)
	Find(ctx context.Context, q Query) ([]models.PartRequest, error)
	Watch(ctx context.Context, q Query, fn SnapshotFunc) (Subscription, error)
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Cancel() { f() }
