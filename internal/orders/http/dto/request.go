// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"github.com/allisson/orders/internal/orders/usecase"
)

// SubmitOrderRequest represents the payload for order submission.
type SubmitOrderRequest struct {
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
}

// ToSubmitOrderInput converts the request to a use case input.
func ToSubmitOrderInput(req SubmitOrderRequest) usecase.SubmitOrderInput {
	return usecase.SubmitOrderInput{
		Description: req.Description,
		PriceCents:  req.PriceCents,
	}
}
