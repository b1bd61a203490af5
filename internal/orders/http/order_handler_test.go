package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/orders/internal/errors"
	"github.com/allisson/orders/internal/orders/domain"
	"github.com/allisson/orders/internal/orders/usecase"
)

// mockOrderUseCase is a mock implementation of usecase.OrderUseCase
type mockOrderUseCase struct {
	mock.Mock
}

func (m *mockOrderUseCase) SubmitOrder(
	ctx context.Context,
	input usecase.SubmitOrderInput,
) (*domain.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderUseCase) SubmitOrderDirect(
	ctx context.Context,
	input usecase.SubmitOrderInput,
) (*domain.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderUseCase) SubmitOrderStaged(
	ctx context.Context,
	input usecase.SubmitOrderInput,
) (*domain.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderUseCase) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderUseCase) ListOrders(
	ctx context.Context,
	input usecase.ListOrdersInput,
) ([]*domain.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func newOrderRouter(uc usecase.OrderUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)

	handler := NewOrderHandler(uc, nil)
	router := gin.New()
	router.POST("/v1/orders", handler.SubmitHandler)
	router.POST("/v1/orders/direct", handler.SubmitDirectHandler)
	router.POST("/v1/orders/staged", handler.SubmitStagedHandler)
	router.GET("/v1/orders", handler.ListHandler)
	router.GET("/v1/orders/:id", handler.GetHandler)
	return router
}

func testOrder() *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:          uuid.Must(uuid.NewV7()),
		Status:      domain.OrderStatusPending,
		Description: "a pair of headphones",
		PriceCents:  19990,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestOrderHandler_Submit(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		uc := &mockOrderUseCase{}
		router := newOrderRouter(uc)

		order := testOrder()
		expectedInput := usecase.SubmitOrderInput{Description: "a pair of headphones", PriceCents: 19990}
		uc.On("SubmitOrder", mock.Anything, expectedInput).Return(order, nil)

		body := `{"description": "a pair of headphones", "price_cents": 19990}`
		req := httptest.NewRequest(http.MethodPost, "/v1/orders", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, order.ID.String(), resp["id"])
		assert.Equal(t, "pending", resp["status"])
		assert.Equal(t, float64(19990), resp["price_cents"])
		uc.AssertExpectations(t)
	})

	t.Run("invalid json body", func(t *testing.T) {
		uc := &mockOrderUseCase{}
		router := newOrderRouter(uc)

		req := httptest.NewRequest(http.MethodPost, "/v1/orders", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		uc.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
	})

	t.Run("validation error", func(t *testing.T) {
		uc := &mockOrderUseCase{}
		router := newOrderRouter(uc)

		uc.On("SubmitOrder", mock.Anything, mock.Anything).
			Return(nil, apperrors.Wrap(apperrors.ErrInvalidInput, "description is required"))

		req := httptest.NewRequest(http.MethodPost, "/v1/orders", bytes.NewReader([]byte(`{"price_cents": 100}`)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("internal error", func(t *testing.T) {
		uc := &mockOrderUseCase{}
		router := newOrderRouter(uc)

		uc.On("SubmitOrder", mock.Anything, mock.Anything).Return(nil, errors.New("database down"))

		body := `{"description": "something", "price_cents": 100}`
		req := httptest.NewRequest(http.MethodPost, "/v1/orders", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestOrderHandler_SubmitDirect(t *testing.T) {
	uc := &mockOrderUseCase{}
	router := newOrderRouter(uc)

	order := testOrder()
	uc.On("SubmitOrderDirect", mock.Anything, mock.Anything).Return(order, nil)

	body := `{"description": "a pair of headphones", "price_cents": 19990}`
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/direct", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	uc.AssertExpectations(t)
	uc.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestOrderHandler_SubmitStaged(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		uc := &mockOrderUseCase{}
		router := newOrderRouter(uc)

		order := testOrder()
		uc.On("SubmitOrderStaged", mock.Anything, mock.Anything).Return(order, nil)

		body := `{"description": "a pair of headphones", "price_cents": 19990}`
		req := httptest.NewRequest(http.MethodPost, "/v1/orders/staged", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		uc.AssertExpectations(t)
	})

	t.Run("staging failure", func(t *testing.T) {
		uc := &mockOrderUseCase{}
		router := newOrderRouter(uc)

		uc.On("SubmitOrderStaged", mock.Anything, mock.Anything).
			Return(nil, errors.New("state store unavailable"))

		body := `{"description": "a pair of headphones", "price_cents": 19990}`
		req := httptest.NewRequest(http.MethodPost, "/v1/orders/staged", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestOrderHandler_Get(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		uc := &mockOrderUseCase{}
		router := newOrderRouter(uc)

		order := testOrder()
		uc.On("GetOrder", mock.Anything, order.ID).Return(order, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/orders/"+order.ID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, order.ID.String(), resp["id"])
	})

	t.Run("invalid id", func(t *testing.T) {
		uc := &mockOrderUseCase{}
		router := newOrderRouter(uc)

		req := httptest.NewRequest(http.MethodGet, "/v1/orders/not-a-uuid", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		uc.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		uc := &mockOrderUseCase{}
		router := newOrderRouter(uc)

		id := uuid.Must(uuid.NewV7())
		uc.On("GetOrder", mock.Anything, id).Return(nil, domain.ErrOrderNotFound)

		req := httptest.NewRequest(http.MethodGet, "/v1/orders/"+id.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestOrderHandler_List(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		uc := &mockOrderUseCase{}
		router := newOrderRouter(uc)

		orders := []*domain.Order{testOrder(), testOrder()}
		uc.On("ListOrders", mock.Anything, usecase.ListOrdersInput{Limit: 10, Offset: 5}).
			Return(orders, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/orders?limit=10&offset=5", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string][]map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp["data"], 2)
	})

	t.Run("invalid limit", func(t *testing.T) {
		uc := &mockOrderUseCase{}
		router := newOrderRouter(uc)

		req := httptest.NewRequest(http.MethodGet, "/v1/orders?limit=abc", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		uc.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything)
	})
}
