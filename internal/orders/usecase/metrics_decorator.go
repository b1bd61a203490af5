package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orders/internal/metrics"
	"github.com/allisson/orders/internal/orders/domain"
)

// orderUseCaseWithMetrics decorates OrderUseCase with metrics instrumentation.
type orderUseCaseWithMetrics struct {
	next    OrderUseCase
	metrics metrics.BusinessMetrics
}

// NewOrderUseCaseWithMetrics wraps an OrderUseCase with metrics recording.
func NewOrderUseCaseWithMetrics(useCase OrderUseCase, m metrics.BusinessMetrics) OrderUseCase {
	return &orderUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// record captures the status and duration of a single operation.
func (o *orderUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	o.metrics.RecordOperation(ctx, "orders", operation, status)
	o.metrics.RecordDuration(ctx, "orders", operation, time.Since(start), status)
}

// SubmitOrder records metrics for outbox order submissions.
func (o *orderUseCaseWithMetrics) SubmitOrder(ctx context.Context, input SubmitOrderInput) (*domain.Order, error) {
	start := time.Now()
	order, err := o.next.SubmitOrder(ctx, input)
	o.record(ctx, "order_submit", start, err)
	return order, err
}

// SubmitOrderDirect records metrics for direct order submissions.
func (o *orderUseCaseWithMetrics) SubmitOrderDirect(
	ctx context.Context,
	input SubmitOrderInput,
) (*domain.Order, error) {
	start := time.Now()
	order, err := o.next.SubmitOrderDirect(ctx, input)
	o.record(ctx, "order_submit_direct", start, err)
	return order, err
}

// SubmitOrderStaged records metrics for staged order submissions.
func (o *orderUseCaseWithMetrics) SubmitOrderStaged(
	ctx context.Context,
	input SubmitOrderInput,
) (*domain.Order, error) {
	start := time.Now()
	order, err := o.next.SubmitOrderStaged(ctx, input)
	o.record(ctx, "order_submit_staged", start, err)
	return order, err
}

// GetOrder records metrics for order retrieval operations.
func (o *orderUseCaseWithMetrics) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	start := time.Now()
	order, err := o.next.GetOrder(ctx, id)
	o.record(ctx, "order_get", start, err)
	return order, err
}

// ListOrders records metrics for order listing operations.
func (o *orderUseCaseWithMetrics) ListOrders(ctx context.Context, input ListOrdersInput) ([]*domain.Order, error) {
	start := time.Now()
	orders, err := o.next.ListOrders(ctx, input)
	o.record(ctx, "order_list", start, err)
	return orders, err
}
