// Package handler exposes the versioned HTTP API. Requests and responses
// are encoded with go-faster/jx; domain errors are mapped to a JSON error
// envelope with a stable status code per error class.
package handler

import (
	"net/http"

	"github.com/avetra/ordersvc/internal/domain/inventory"
	"github.com/avetra/ordersvc/internal/domain/order"
	"github.com/avetra/ordersvc/internal/domain/product"
)

// Handler serves the /api/v1 routes, delegating to the domain services.
type Handler struct {
	orders    *order.Service
	inventory *inventory.Service
	products  product.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service, inv *inventory.Service, products product.Repository) *Handler {
	return &Handler{
		orders:    orders,
		inventory: inv,
		products:  products,
	}
}

// Register attaches the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/orders", h.CreateOrder)
	mux.HandleFunc("GET /api/v1/orders/{id}", h.GetOrder)
	mux.HandleFunc("POST /api/v1/orders/{id}/confirm", h.ConfirmOrder)
	mux.HandleFunc("POST /api/v1/orders/{id}/cancel", h.CancelOrder)

	mux.HandleFunc("GET /api/v1/products", h.ListProducts)

	mux.HandleFunc("POST /api/v1/inventory", h.CreateInventoryItem)
	mux.HandleFunc("GET /api/v1/inventory/{id}", h.GetInventoryItem)
	mux.HandleFunc("POST /api/v1/inventory/{id}/receive", h.ReceiveInventory)
	mux.HandleFunc("POST /api/v1/inventory/{id}/adjust", h.AdjustInventory)
}
