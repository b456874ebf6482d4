// Package requests implements the part request lifecycle: role-scoped
// queries, live subscriptions, and validated mutations that are forwarded
// to the request store.
package requests

import (
	"context"
	"errors"
	"time"

	"part-request-portal-api-server/internal/metrics"
	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/notify"
	"part-request-portal-api-server/internal/store"

	"go.uber.org/zap"
)

type Controller struct {
	store    store.RequestStore
	notifier notify.Publisher
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewController wires the controller. notifier and m may be nil.
func NewController(s store.RequestStore, notifier notify.Publisher, m *metrics.Metrics, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:    s,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Created is the outcome of a successful Create. Identity carries the
// caller's scope after creation: a submitter's first request pins its
// registration number as the scope key.
type Created struct {
	ID       string
	Identity models.Identity
	Pinned   bool
}

func (c *Controller) Create(ctx context.Context, id models.Identity, in CreateInput) (created Created, err error) {
	defer func() { c.observe("create", err) }()

	in, err = normalizeCreate(id, in)
	if err != nil {
		return Created{}, err
	}
	record := models.PartRequest{
		OSNumber:           in.OSNumber,
		CostCenter:         in.CostCenter,
		Reservation:        in.Reservation,
		RegistrationNumber: in.RegistrationNumber,
		RequesterName:      in.RequesterName,
		RequestDate:        c.now().UTC().Truncate(time.Millisecond),
		Status:             models.StatusPending,
		Items:              in.Items,
	}
	newID, err := c.store.Insert(ctx, record)
	if err != nil {
		return Created{}, c.storeError("insert", err)
	}

	created = Created{ID: newID, Identity: id}
	if !id.IsAdmin() && !id.HasScope() {
		created.Identity.RegistrationNumber = in.RegistrationNumber
		created.Pinned = true
	}
	c.logger.Info("Part request created",
		zap.String("request_id", newID),
		zap.String("role", string(id.Role)),
		zap.Int("items", len(in.Items)),
	)
	return created, nil
}

func (c *Controller) Edit(ctx context.Context, id models.Identity, requestID string, u Update) (err error) {
	defer func() { c.observe("edit", err) }()

	if !id.IsAdmin() {
		return ErrForbidden
	}
	u, err = normalizeUpdate(u)
	if err != nil {
		return err
	}
	current, err := c.load(ctx, id, requestID)
	if err != nil {
		return err
	}
	if err := CheckMutable(current.Status, EventEdit); err != nil {
		return err
	}
	patch := store.Patch{
		OSNumber:           u.OSNumber,
		CostCenter:         u.CostCenter,
		Reservation:        u.Reservation,
		RegistrationNumber: u.RegistrationNumber,
		RequesterName:      u.RequesterName,
	}
	if u.Items != nil {
		patch.Items = *u.Items
	}
	if patch.Empty() {
		return nil
	}
	if err := c.store.Update(ctx, requestID, patch); err != nil {
		return c.storeError("update", err)
	}
	return nil
}

func (c *Controller) Delete(ctx context.Context, id models.Identity, requestID string) (err error) {
	defer func() { c.observe("delete", err) }()

	if !id.IsAdmin() {
		return ErrForbidden
	}
	current, err := c.load(ctx, id, requestID)
	if err != nil {
		return err
	}
	if err := CheckMutable(current.Status, EventDelete); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, requestID); err != nil {
		return c.storeError("delete", err)
	}
	c.logger.Info("Part request deleted", zap.String("request_id", requestID))
	return nil
}

func (c *Controller) SetStatus(ctx context.Context, id models.Identity, requestID string, status models.RequestStatus) (err error) {
	defer func() { c.observe("set_status", err) }()

	if !id.IsAdmin() {
		return ErrForbidden
	}
	if !status.Valid() {
		return &ValidationError{Field: "status", Message: "unknown status"}
	}
	current, err := c.load(ctx, id, requestID)
	if err != nil {
		return err
	}
	if err := CheckTransition(current.Status, EventSetStatus, status); err != nil {
		return err
	}
	if err := c.store.Update(ctx, requestID, store.Patch{Status: &status}); err != nil {
		return c.storeError("update", err)
	}
	c.logger.Info("Part request status changed",
		zap.String("request_id", requestID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)),
	)
	if status == models.StatusAvailable {
		c.notify(ctx, current, status)
	}
	return nil
}

// Finalize closes an available request. Administrators may force-close any
// request; submitters may only confirm pickup of requests in their scope.
func (c *Controller) Finalize(ctx context.Context, id models.Identity, requestID string) (err error) {
	defer func() { c.observe("finalize", err) }()

	current, err := c.load(ctx, id, requestID)
	if err != nil {
		return err
	}
	if err := CheckTransition(current.Status, EventFinalize, models.StatusCompleted); err != nil {
		return err
	}
	completed := models.StatusCompleted
	if err := c.store.Update(ctx, requestID, store.Patch{Status: &completed}); err != nil {
		return c.storeError("update", err)
	}
	c.logger.Info("Part request finalized",
		zap.String("request_id", requestID),
		zap.String("role", string(id.Role)),
	)
	return nil
}

// Get reads one request through the caller's projection.
func (c *Controller) Get(ctx context.Context, id models.Identity, requestID string) (models.PartRequestView, error) {
	r, err := c.load(ctx, id, requestID)
	if err != nil {
		return models.PartRequestView{}, err
	}
	return Project(id, r), nil
}

// List returns the caller's current visible set once, in scope order.
func (c *Controller) List(ctx context.Context, id models.Identity) ([]models.PartRequestView, error) {
	scope := ResolveScope(id)
	if scope.Empty {
		return []models.PartRequestView{}, nil
	}
	records, err := c.store.Find(ctx, scope.Query)
	if err != nil {
		return nil, c.storeError("find", err)
	}
	return ProjectAll(id, records), nil
}

// Search filters the administrator's full list by work-order number,
// requester name or item material.
func (c *Controller) Search(ctx context.Context, id models.Identity, term string) ([]models.PartRequestView, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}
	records, err := c.store.Find(ctx, ResolveScope(id).Query)
	if err != nil {
		return nil, c.storeError("find", err)
	}
	matched := records[:0]
	for _, r := range records {
		if matchesTerm(r, term) {
			matched = append(matched, r)
		}
	}
	return ProjectAll(id, matched), nil
}

// Records returns the raw administrator list, used by exports.
func (c *Controller) Records(ctx context.Context, id models.Identity) ([]models.PartRequest, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}
	records, err := c.store.Find(ctx, ResolveScope(id).Query)
	if err != nil {
		return nil, c.storeError("find", err)
	}
	return records, nil
}

// load fetches a request and hides it from submitters outside its scope.
func (c *Controller) load(ctx context.Context, id models.Identity, requestID string) (models.PartRequest, error) {
	if requestID == "" {
		return models.PartRequest{}, &ValidationError{Field: "id", Message: "is required"}
	}
	r, err := c.store.Get(ctx, requestID)
	if err != nil {
		return models.PartRequest{}, c.storeError("get", err)
	}
	if !owns(id, r) {
		return models.PartRequest{}, ErrNotFound
	}
	return r, nil
}

func (c *Controller) storeError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	c.logger.Error("Request store operation failed", zap.String("op", op), zap.Error(err))
	return &StoreError{Op: op, Err: err}
}

func (c *Controller) notify(ctx context.Context, r models.PartRequest, status models.RequestStatus) {
	if c.notifier == nil {
		return
	}
	n := notify.Notification{
		Event:              notify.EventRequestAvailable,
		RequestID:          r.ID,
		RegistrationNumber: r.RegistrationNumber,
		RequesterName:      r.RequesterName,
		Status:             status,
		OccurredAt:         c.now().UTC(),
	}
	if err := c.notifier.Publish(ctx, n); err != nil {
		c.logger.Warn("Failed to publish notification",
			zap.String("request_id", r.ID),
			zap.Error(err),
		)
	}
}

func (c *Controller) observe(op string, err error) {
	c.metrics.Mutation(op, outcome(err))
}

func outcome(err error) string {
	var (
		verr *ValidationError
		terr *TransitionError
		serr *StoreError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &terr):
		return "transition"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.As(err, &serr):
		return "store_error"
	}
	return "error"
}
