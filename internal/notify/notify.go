// Package notify publishes request notifications to interested parties,
// such as the "ready for pickup" message sent when a request becomes
// available.
package notify

import (
	"context"
	"time"

	"part-request-portal-api-server/internal/models"

	"go.uber.org/zap"
)

const EventRequestAvailable = "request_available"

type Notification struct {
	Event              string               `json:"event"`
	RequestID          string               `json:"requestId"`
	RegistrationNumber string               `json:"registrationNumber"`
	RequesterName      string               `json:"requesterName"`
	Status             models.RequestStatus `json:"status"`
	OccurredAt         time.Time            `json:"occurredAt"`
}

// Publisher delivers notifications. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
	Close() error
}

// LogPublisher only records notifications in the log. It is used when no
// broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, n Notification) error {
	p.logger.Info("Notification",
		zap.String("event", n.Event),
		zap.String("request_id", n.RequestID),
		zap.String("registration_number", n.RegistrationNumber),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
