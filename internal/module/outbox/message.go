package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message is one pending event in the transactional outbox.
type Message struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	AggregateType string         `gorm:"not null"`
	AggregateID   uuid.UUID      `gorm:"type:uuid;not null"`
	EventType     string         `gorm:"not null"`
	Payload       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// TableName returns the table name.
func (Message) TableName() string {
	return "outbox_messages"
}

// Append stores an event in the outbox using tx, so it commits or rolls
// back together with the state change it describes.
func Append(tx *gorm.DB, aggregateType string, aggregateID uuid.UUID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	msg := &Message{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       datatypes.JSON(body),
		CreatedAt:     time.Now().UTC(),
	}
	if err := tx.Create(msg).Error; err != nil {
		return fmt.Errorf("append outbox message: %w", err)
	}
	return nil
}
