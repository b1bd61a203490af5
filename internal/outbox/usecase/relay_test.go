package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"

	"github.com/allisson/orders/internal/outbox/domain"
)

// MockTxManager is a mock implementation of database.TxManager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	// Execute the function to test the logic inside
	return fn(ctx)
}

// MockOutboxRepository is a mock implementation of OutboxRepository
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, record *domain.OutboxRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockOutboxRepository) ListUnprocessed(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxRecord), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(
	ctx context.Context,
	id uuid.UUID,
	processedAt time.Time,
) error {
	args := m.Called(ctx, id, processedAt)
	return args.Error(0)
}

// MockPublisher is a mock implementation of broker.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, payload []byte, contentType string) error {
	args := m.Called(ctx, topic, payload, contentType)
	return args.Error(0)
}

func (m *MockPublisher) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newTestRelay(txManager *MockTxManager, outboxRepo *MockOutboxRepository, publisher *MockPublisher) *Relay {
	config := Config{
		Interval:  100 * time.Millisecond,
		BatchSize: 10,
	}
	return NewRelay(config, txManager, outboxRepo, publisher, nil, nil)
}

func TestNewRelay(t *testing.T) {
	config := Config{
		Interval:  5 * time.Second,
		BatchSize: 10,
	}

	relay := NewRelay(config, &MockTxManager{}, &MockOutboxRepository{}, &MockPublisher{}, nil, nil)

	assert.NotNil(t, relay)
	assert.Equal(t, config.Interval, relay.config.Interval)
	assert.Equal(t, config.BatchSize, relay.config.BatchSize)
}

func TestRelay_Start_ContextCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	relay := newTestRelay(&MockTxManager{}, &MockOutboxRepository{}, &MockPublisher{})

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel context immediately
	cancel()

	err := relay.Start(ctx)
	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

func TestRelay_Start_SurvivesCycleErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	txManager := &MockTxManager{}
	outboxRepo := &MockOutboxRepository{}
	publisher := &MockPublisher{}

	relay := newTestRelay(txManager, outboxRepo, publisher)

	// Every cycle fails on the scan; the loop must keep ticking regardless.
	outboxRepo.On("ListUnprocessed", mock.Anything, 10).Return(nil, errors.New("database error"))

	ctx, cancel := context.WithTimeout(context.Background(), 350*time.Millisecond)
	defer cancel()

	err := relay.Start(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
	outboxRepo.AssertExpectations(t)
	assert.GreaterOrEqual(t, len(outboxRepo.Calls), 2)
}

func TestRelay_ProcessRecords_Success(t *testing.T) {
	txManager := &MockTxManager{}
	outboxRepo := &MockOutboxRepository{}
	publisher := &MockPublisher{}

	relay := newTestRelay(txManager, outboxRepo, publisher)

	ctx := context.Background()
	uuid1 := uuid.Must(uuid.NewV7())
	uuid2 := uuid.Must(uuid.NewV7())
	records := []*domain.OutboxRecord{
		{
			ID:        uuid1,
			Topic:     "orders",
			EventType: "order.submitted",
			Payload:   `{"order_id": "1"}`,
		},
		{
			ID:        uuid2,
			Topic:     "orders",
			EventType: "order.submitted",
			Payload:   `{"order_id": "2"}`,
		},
	}

	// Setup expectations
	outboxRepo.On("ListUnprocessed", ctx, 10).Return(records, nil)
	publisher.On("Publish", ctx, "orders", []byte(records[0].Payload), "application/json").Return(nil)
	publisher.On("Publish", ctx, "orders", []byte(records[1].Payload), "application/json").Return(nil)
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil).Times(2)
	outboxRepo.On("MarkProcessed", mock.Anything, uuid1, mock.AnythingOfType("time.Time")).Return(nil)
	outboxRepo.On("MarkProcessed", mock.Anything, uuid2, mock.AnythingOfType("time.Time")).Return(nil)

	err := relay.ProcessRecords(ctx)

	assert.NoError(t, err)
	txManager.AssertExpectations(t)
	outboxRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRelay_ProcessRecords_NoRecords(t *testing.T) {
	txManager := &MockTxManager{}
	outboxRepo := &MockOutboxRepository{}
	publisher := &MockPublisher{}

	relay := newTestRelay(txManager, outboxRepo, publisher)

	ctx := context.Background()

	// Setup expectations
	outboxRepo.On("ListUnprocessed", ctx, 10).Return([]*domain.OutboxRecord{}, nil)

	err := relay.ProcessRecords(ctx)

	assert.NoError(t, err)
	outboxRepo.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRelay_ProcessRecords_ListError(t *testing.T) {
	txManager := &MockTxManager{}
	outboxRepo := &MockOutboxRepository{}
	publisher := &MockPublisher{}

	relay := newTestRelay(txManager, outboxRepo, publisher)

	ctx := context.Background()
	listError := errors.New("database error")

	// Setup expectations
	outboxRepo.On("ListUnprocessed", ctx, 10).Return(nil, listError)

	err := relay.ProcessRecords(ctx)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")
	outboxRepo.AssertExpectations(t)
}

func TestRelay_ProcessRecords_StopsOnFirstPublishFailure(t *testing.T) {
	txManager := &MockTxManager{}
	outboxRepo := &MockOutboxRepository{}
	publisher := &MockPublisher{}

	relay := newTestRelay(txManager, outboxRepo, publisher)

	ctx := context.Background()
	uuid1 := uuid.Must(uuid.NewV7())
	uuid2 := uuid.Must(uuid.NewV7())
	uuid3 := uuid.Must(uuid.NewV7())
	records := []*domain.OutboxRecord{
		{ID: uuid1, Topic: "orders", EventType: "order.submitted", Payload: `{"order_id": "1"}`},
		{ID: uuid2, Topic: "orders", EventType: "order.submitted", Payload: `{"order_id": "2"}`},
		{ID: uuid3, Topic: "orders", EventType: "order.submitted", Payload: `{"order_id": "3"}`},
	}

	publishError := errors.New("broker unavailable")

	// Setup expectations: the first record goes through, the second fails,
	// the third must never be attempted.
	outboxRepo.On("ListUnprocessed", ctx, 10).Return(records, nil)
	publisher.On("Publish", ctx, "orders", []byte(records[0].Payload), "application/json").Return(nil)
	publisher.On("Publish", ctx, "orders", []byte(records[1].Payload), "application/json").Return(publishError)
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil).Once()
	outboxRepo.On("MarkProcessed", mock.Anything, uuid1, mock.AnythingOfType("time.Time")).Return(nil)

	err := relay.ProcessRecords(ctx)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	txManager.AssertExpectations(t)
	outboxRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", ctx, "orders", []byte(records[2].Payload), "application/json")
	outboxRepo.AssertNotCalled(t, "MarkProcessed", mock.Anything, uuid2, mock.AnythingOfType("time.Time"))
	outboxRepo.AssertNotCalled(t, "MarkProcessed", mock.Anything, uuid3, mock.AnythingOfType("time.Time"))
}

func TestRelay_ProcessRecords_EmptyPayloadMarkedWithoutPublish(t *testing.T) {
	txManager := &MockTxManager{}
	outboxRepo := &MockOutboxRepository{}
	publisher := &MockPublisher{}

	relay := newTestRelay(txManager, outboxRepo, publisher)

	ctx := context.Background()
	uuid1 := uuid.Must(uuid.NewV7())
	records := []*domain.OutboxRecord{
		{ID: uuid1, Topic: "orders", EventType: "order.submitted", Payload: ""},
	}

	// Setup expectations: nothing to deliver, the record is marked directly.
	outboxRepo.On("ListUnprocessed", ctx, 10).Return(records, nil)
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	outboxRepo.On("MarkProcessed", mock.Anything, uuid1, mock.AnythingOfType("time.Time")).Return(nil)

	err := relay.ProcessRecords(ctx)

	assert.NoError(t, err)
	txManager.AssertExpectations(t)
	outboxRepo.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRelay_ProcessRecords_MarkError(t *testing.T) {
	txManager := &MockTxManager{}
	outboxRepo := &MockOutboxRepository{}
	publisher := &MockPublisher{}

	relay := newTestRelay(txManager, outboxRepo, publisher)

	ctx := context.Background()
	uuid1 := uuid.Must(uuid.NewV7())
	records := []*domain.OutboxRecord{
		{ID: uuid1, Topic: "orders", EventType: "order.submitted", Payload: `{"order_id": "1"}`},
	}

	markError := errors.New("update failed")

	// Setup expectations: the publish succeeds but the mark fails, so the
	// record stays unprocessed and is re-published next cycle.
	outboxRepo.On("ListUnprocessed", ctx, 10).Return(records, nil)
	publisher.On("Publish", ctx, "orders", []byte(records[0].Payload), "application/json").Return(nil)
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	outboxRepo.On("MarkProcessed", mock.Anything, uuid1, mock.AnythingOfType("time.Time")).Return(markError)

	err := relay.ProcessRecords(ctx)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "update failed")
	txManager.AssertExpectations(t)
	outboxRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRelay_ProcessRecords_ContextCancelledBetweenRecords(t *testing.T) {
	txManager := &MockTxManager{}
	outboxRepo := &MockOutboxRepository{}
	publisher := &MockPublisher{}

	relay := newTestRelay(txManager, outboxRepo, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	uuid1 := uuid.Must(uuid.NewV7())
	uuid2 := uuid.Must(uuid.NewV7())
	records := []*domain.OutboxRecord{
		{ID: uuid1, Topic: "orders", EventType: "order.submitted", Payload: `{"order_id": "1"}`},
		{ID: uuid2, Topic: "orders", EventType: "order.submitted", Payload: `{"order_id": "2"}`},
	}

	// Setup expectations: cancellation happens while the first record is in
	// flight, the second must never be attempted.
	outboxRepo.On("ListUnprocessed", ctx, 10).Return(records, nil)
	publisher.On("Publish", ctx, "orders", []byte(records[0].Payload), "application/json").
		Run(func(args mock.Arguments) { cancel() }).
		Return(nil)
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	outboxRepo.On("MarkProcessed", mock.Anything, uuid1, mock.AnythingOfType("time.Time")).Return(nil)

	err := relay.ProcessRecords(ctx)

	assert.Equal(t, context.Canceled, err)
	txManager.AssertExpectations(t)
	outboxRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", ctx, "orders", []byte(records[1].Payload), "application/json")
}
