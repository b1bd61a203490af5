package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/orders/internal/httputil"
	"github.com/allisson/orders/internal/orders/domain"
)

// EventHandler consumes order events delivered by the broker. It sits behind
// the CloudEvents normalizer, so the request body is the plain payload.
type EventHandler struct {
	logger *slog.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(logger *slog.Logger) *EventHandler {
	return &EventHandler{
		logger: logger,
	}
}

// OrderSubmittedHandler acknowledges an order.submitted event.
// POST /v1/events/order-submitted
func (h *EventHandler) OrderSubmittedHandler(c *gin.Context) {
	var event domain.OrderSubmitted

	if err := c.ShouldBindJSON(&event); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if h.logger != nil {
		h.logger.Info("order submitted event received",
			slog.String("order_id", event.OrderID.String()),
			slog.String("status", event.Status),
			slog.Int64("price_cents", event.PriceCents),
			slog.Time("submitted_at", event.SubmittedAt),
		)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
