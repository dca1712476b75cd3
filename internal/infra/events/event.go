package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is the interface that all domain events must implement.
type Event interface {
	EventID() uuid.UUID
	// EventType returns the type name of the event, e.g. "payment.succeeded".
	EventType() string
	OccurredAt() time.Time
	// AggregateID returns the purchase record the event belongs to.
	AggregateID() uuid.UUID
	// AggregateType returns the purchase domain, e.g. "registration".
	AggregateType() string
}

// BaseEvent provides the common Event fields. Embed it in concrete events.
type BaseEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateUUID uuid.UUID `json:"aggregate_id"`
	AggregateName string    `json:"aggregate_type"`
}

func (e BaseEvent) EventID() uuid.UUID     { return e.ID }
func (e BaseEvent) EventType() string      { return e.Type }
func (e BaseEvent) OccurredAt() time.Time  { return e.Timestamp }
func (e BaseEvent) AggregateID() uuid.UUID { return e.AggregateUUID }
func (e BaseEvent) AggregateType() string  { return e.AggregateName }

// NewBaseEvent creates a BaseEvent stamped with a fresh id and the current time.
func NewBaseEvent(eventType string, aggregateID uuid.UUID, aggregateType string) BaseEvent {
	return BaseEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		AggregateUUID: aggregateID,
		AggregateName: aggregateType,
	}
}
