package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/orders/internal/database"
	apperrors "github.com/allisson/orders/internal/errors"
	"github.com/allisson/orders/internal/eventbus"
	"github.com/allisson/orders/internal/orders/domain"
	outboxDomain "github.com/allisson/orders/internal/outbox/domain"
	appValidation "github.com/allisson/orders/internal/validation"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// orderUseCase handles order-related business logic
type orderUseCase struct {
	txManager  database.TxManager
	orderRepo  OrderRepository
	outboxRepo OutboxRepository
	directBus  eventbus.EventBus
	stagedBus  eventbus.EventBus
	topic      string
}

// NewOrderUseCase creates a new OrderUseCase. The direct bus publishes
// straight to the broker; the staged bus targets the configured staging
// strategy.
func NewOrderUseCase(
	txManager database.TxManager,
	orderRepo OrderRepository,
	outboxRepo OutboxRepository,
	directBus eventbus.EventBus,
	stagedBus eventbus.EventBus,
	topic string,
) OrderUseCase {
	return &orderUseCase{
		txManager:  txManager,
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		directBus:  directBus,
		stagedBus:  stagedBus,
		topic:      topic,
	}
}

// validateSubmitOrderInput validates the submission input using jellydator/validation
func (uc *orderUseCase) validateSubmitOrderInput(input SubmitOrderInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Description,
			validation.Required.Error("description is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("description must be between 1 and 255 characters"),
		),
		validation.Field(&input.PriceCents,
			validation.Required.Error("price_cents is required"),
			validation.Min(1).Error("price_cents must be positive"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// newOrder builds a pending order from validated input.
func newOrder(input SubmitOrderInput) *domain.Order {
	return &domain.Order{
		ID:          uuid.Must(uuid.NewV7()),
		Status:      domain.OrderStatusPending,
		Description: strings.TrimSpace(input.Description),
		PriceCents:  input.PriceCents,
	}
}

// SubmitOrder persists the order and an order.submitted outbox record in a
// single transaction. Either both rows commit or neither does; delivery is
// left to the outbox relay.
func (uc *orderUseCase) SubmitOrder(ctx context.Context, input SubmitOrderInput) (*domain.Order, error) {
	if err := uc.validateSubmitOrderInput(input); err != nil {
		return nil, err
	}

	order := newOrder(input)

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.orderRepo.Create(ctx, order); err != nil {
			return err
		}

		event := domain.NewOrderSubmitted(order, time.Now().UTC())
		payloadJSON, err := json.Marshal(event)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal event payload")
		}

		record := &outboxDomain.OutboxRecord{
			ID:        uuid.Must(uuid.NewV7()),
			Topic:     uc.topic,
			EventType: domain.OrderSubmittedEventType,
			Payload:   string(payloadJSON),
		}

		if err := uc.outboxRepo.Create(ctx, record); err != nil {
			return apperrors.Wrap(err, "failed to create outbox record")
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

// SubmitOrderDirect persists the order, then publishes the submission event
// straight to the broker. A publish failure is reported to the caller; the
// order itself stays committed.
func (uc *orderUseCase) SubmitOrderDirect(ctx context.Context, input SubmitOrderInput) (*domain.Order, error) {
	return uc.submitAndPublish(ctx, input, uc.directBus, "failed to publish order event")
}

// SubmitOrderStaged persists the order, then stages the submission event
// through the staged event bus. A staging failure is reported to the caller;
// the order itself stays committed.
func (uc *orderUseCase) SubmitOrderStaged(ctx context.Context, input SubmitOrderInput) (*domain.Order, error) {
	return uc.submitAndPublish(ctx, input, uc.stagedBus, "failed to stage order event")
}

func (uc *orderUseCase) submitAndPublish(
	ctx context.Context,
	input SubmitOrderInput,
	bus eventbus.EventBus,
	publishErrMsg string,
) (*domain.Order, error) {
	if err := uc.validateSubmitOrderInput(input); err != nil {
		return nil, err
	}

	order := newOrder(input)

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		return uc.orderRepo.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	// Publish outside the transaction: this path trades the outbox guarantee
	// for immediacy, so a failure here leaves a committed order with no event.
	event := domain.NewOrderSubmitted(order, time.Now().UTC())
	if err := bus.Publish(ctx, order.ID.String(), event); err != nil {
		return nil, apperrors.Wrap(err, publishErrMsg)
	}

	return order, nil
}

// GetOrder retrieves an order by ID
func (uc *orderUseCase) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return uc.orderRepo.GetByID(ctx, id)
}

// ListOrders retrieves orders newest first with bounded pagination
func (uc *orderUseCase) ListOrders(ctx context.Context, input ListOrdersInput) ([]*domain.Order, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	return uc.orderRepo.List(ctx, limit, offset)
}
