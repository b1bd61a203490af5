// Package usecase implements the order business logic: the transactional
// outbox write path plus the direct and staged publication variants.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orders/internal/orders/domain"
	outboxDomain "github.com/allisson/orders/internal/outbox/domain"
)

// SubmitOrderInput contains the input data for order submission
type SubmitOrderInput struct {
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
}

// ListOrdersInput contains pagination parameters for listing orders
type ListOrdersInput struct {
	Limit  int
	Offset int
}

// OrderUseCase defines the interface for order business logic operations.
// SubmitOrder is the transactional outbox path; the Direct and Staged
// variants publish through the event bus after the order is committed.
type OrderUseCase interface {
	SubmitOrder(ctx context.Context, input SubmitOrderInput) (*domain.Order, error)
	SubmitOrderDirect(ctx context.Context, input SubmitOrderInput) (*domain.Order, error)
	SubmitOrderStaged(ctx context.Context, input SubmitOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, input ListOrdersInput) ([]*domain.Order, error)
}

// OrderRepository defines order repository operations
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Order, error)
}

// OutboxRepository defines outbox record repository operations
type OutboxRepository interface {
	Create(ctx context.Context, record *outboxDomain.OutboxRecord) error
	ListUnprocessed(ctx context.Context, limit int) ([]*outboxDomain.OutboxRecord, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error
}
