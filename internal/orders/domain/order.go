// Package domain defines the core order domain entities and events.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orders/internal/errors"
)

// OrderStatusPending is the status an order carries when submitted.
const OrderStatusPending = "pending"

// OrderSubmittedEventType identifies the event emitted when an order is submitted.
const OrderSubmittedEventType = "order.submitted"

// Order represents an order in the system
type Order struct {
	ID          uuid.UUID
	Status      string
	Description string
	PriceCents  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderSubmitted is the event payload published when an order is submitted.
type OrderSubmitted struct {
	OrderID     uuid.UUID `json:"order_id"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewOrderSubmitted builds the submission event for an order.
func NewOrderSubmitted(order *Order, submittedAt time.Time) *OrderSubmitted {
	return &OrderSubmitted{
		OrderID:     order.ID,
		Status:      order.Status,
		Description: order.Description,
		PriceCents:  order.PriceCents,
		SubmittedAt: submittedAt,
	}
}

// Domain-specific errors for order operations.
var (
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.Wrap(errors.ErrNotFound, "order not found")

	// ErrDescriptionRequired indicates the description field is required.
	ErrDescriptionRequired = errors.Wrap(errors.ErrInvalidInput, "description is required")

	// ErrInvalidPrice indicates the price must be a positive amount of cents.
	ErrInvalidPrice = errors.Wrap(errors.ErrInvalidInput, "price must be positive")
)
