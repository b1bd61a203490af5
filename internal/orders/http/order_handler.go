// Package http provides HTTP handlers for order submission and retrieval.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/orders/internal/httputil"
	"github.com/allisson/orders/internal/orders/http/dto"
	"github.com/allisson/orders/internal/orders/usecase"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderUseCase usecase.OrderUseCase
	logger       *slog.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderUseCase usecase.OrderUseCase, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderUseCase: orderUseCase,
		logger:       logger,
	}
}

// submit parses the request body and runs the given submission variant.
func (h *OrderHandler) submit(
	c *gin.Context,
	submitFn func(c *gin.Context, input usecase.SubmitOrderInput) (any, error),
) {
	var req dto.SubmitOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	response, err := submitFn(c, dto.ToSubmitOrderInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// SubmitHandler submits an order through the transactional outbox.
// POST /v1/orders
// Returns 201 Created; delivery of the order.submitted event is asynchronous.
func (h *OrderHandler) SubmitHandler(c *gin.Context) {
	h.submit(c, func(c *gin.Context, input usecase.SubmitOrderInput) (any, error) {
		order, err := h.orderUseCase.SubmitOrder(c.Request.Context(), input)
		if err != nil {
			return nil, err
		}
		return dto.MapOrderToResponse(order), nil
	})
}

// SubmitDirectHandler submits an order and publishes the event immediately.
// POST /v1/orders/direct
// No outbox guarantee: a publish failure surfaces as an error even though the
// order row is committed.
func (h *OrderHandler) SubmitDirectHandler(c *gin.Context) {
	h.submit(c, func(c *gin.Context, input usecase.SubmitOrderInput) (any, error) {
		order, err := h.orderUseCase.SubmitOrderDirect(c.Request.Context(), input)
		if err != nil {
			return nil, err
		}
		return dto.MapOrderToResponse(order), nil
	})
}

// SubmitStagedHandler submits an order and stages the event for publication.
// POST /v1/orders/staged
func (h *OrderHandler) SubmitStagedHandler(c *gin.Context) {
	h.submit(c, func(c *gin.Context, input usecase.SubmitOrderInput) (any, error) {
		order, err := h.orderUseCase.SubmitOrderStaged(c.Request.Context(), input)
		if err != nil {
			return nil, err
		}
		return dto.MapOrderToResponse(order), nil
	})
}

// GetHandler retrieves an order by ID.
// GET /v1/orders/:id
func (h *OrderHandler) GetHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid order id: %w", err), h.logger)
		return
	}

	order, err := h.orderUseCase.GetOrder(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToResponse(order))
}

// ListHandler lists orders newest first.
// GET /v1/orders?limit=N&offset=M
func (h *OrderHandler) ListHandler(c *gin.Context) {
	input := usecase.ListOrdersInput{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid limit: %w", err), h.logger)
			return
		}
		input.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid offset: %w", err), h.logger)
			return
		}
		input.Offset = offset
	}

	orders, err := h.orderUseCase.ListOrders(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrdersToListResponse(orders))
}
