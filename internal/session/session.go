// Package session keeps caller sessions: the role a caller signed in with
// and, for submitters, the registration number their view is scoped to.
package session

import (
	"context"
	"errors"
	"time"

	"part-request-portal-api-server/internal/models"
)

var ErrNotFound = errors.New("session not found")

// Session is the server-side record a bearer token points at.
type Session struct {
	ID        string          `json:"id"`
	Identity  models.Identity `json:"identity"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	Create(ctx context.Context, id models.Identity) (Session, error)
	Get(ctx context.Context, sessionID string) (Session, error)
	// PinScope sets the registration number of a session that has none yet.
	// It returns the session as stored afterwards.
	PinScope(ctx context.Context, sessionID, registrationNumber string) (Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// pin applies the first-write-wins rule shared by every Store.
func pin(s Session, registrationNumber string) Session {
	if s.Identity.IsAdmin() || s.Identity.HasScope() || registrationNumber == "" {
		return s
	}
	s.Identity.RegistrationNumber = registrationNumber
	return s
}
