package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"scrap/internal/domain"
)

// EventType is the routing key of a published event.
type EventType string

const (
	EventPayoutRequested EventType = "payout.requested"
	EventPayoutCompleted EventType = "payout.completed"
	EventPayoutFailed    EventType = "payout.failed"
)

// PickupEventType returns the event type announcing a pickup entering status,
// e.g. "pickup.on_the_way".
func PickupEventType(status domain.PickupStatus) EventType {
	return EventType("pickup." + strings.ToLower(string(status)))
}

// Event is a lifecycle fact handed to the notification collaborator.
// Delivery is best effort.
type Event struct {
	ID          string           `json:"id"`
	Type        EventType        `json:"type"`
	PickupID    string           `json:"pickup_id,omitempty"`
	CustomerID  string           `json:"customer_id,omitempty"`
	CollectorID string           `json:"collector_id,omitempty"`
	UserID      string           `json:"user_id,omitempty"`
	EntryID     string           `json:"entry_id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// EventPublisher delivers events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the process log. It is used when no broker
// is configured.
type LogPublisher struct{}

// Publish implements EventPublisher.
func (LogPublisher) Publish(_ context.Context, e Event) error {
	log.Printf("[EVENT] Type=%s, Pickup=%s, Customer=%s, Collector=%s, User=%s",
		e.Type, e.PickupID, e.CustomerID, e.CollectorID, e.UserID)
	return nil
}

// notifier publishes events after a write has committed. A failed publish
// never fails the operation that caused it.
type notifier struct {
	publisher EventPublisher
}

func (n notifier) emit(ctx context.Context, e Event) {
	if n.publisher == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	if err := n.publisher.Publish(ctx, e); err != nil {
		log.Printf("[EVENT] publish %s for pickup %s failed: %v", e.Type, e.PickupID, err)
	}
}

func (n notifier) pickupChanged(ctx context.Context, p *domain.PickupRequest) {
	e := Event{
		Type:        PickupEventType(p.Status),
		PickupID:    p.ID,
		CustomerID:  p.CustomerID,
		CollectorID: p.CollectorID,
		OccurredAt:  p.UpdatedAt,
	}
	if p.Status == domain.PickupStatusPaid || p.Status == domain.PickupStatusPicked {
		e.Amount = p.TotalActualAmount
	}
	n.emit(ctx, e)
}
