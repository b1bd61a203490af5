// Package domain defines the core outbox domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutboxRecord represents a pending event in the transactional outbox pattern.
// A record is created in the same transaction as the business write and marked
// processed exactly once its publish to the broker is confirmed.
type OutboxRecord struct {
	ID          uuid.UUID
	Topic       string
	EventType   string
	Payload     string
	Processed   bool
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
