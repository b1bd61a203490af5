package dto

import (
	"time"

	"github.com/allisson/orders/internal/orders/domain"
)

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MapOrderToResponse converts a domain order to a response DTO.
func MapOrderToResponse(order *domain.Order) OrderResponse {
	return OrderResponse{
		ID:          order.ID.String(),
		Status:      order.Status,
		Description: order.Description,
		PriceCents:  order.PriceCents,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

// ListOrdersResponse represents a paginated list of orders in API responses.
type ListOrdersResponse struct {
	Data []OrderResponse `json:"data"`
}

// MapOrdersToListResponse converts a slice of domain orders to a list response.
func MapOrdersToListResponse(orders []*domain.Order) ListOrdersResponse {
	data := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		data = append(data, MapOrderToResponse(order))
	}

	return ListOrdersResponse{
		Data: data,
	}
}
