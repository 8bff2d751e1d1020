package handler

import (
	"net/http"

	"kasa/internal/model"
	"kasa/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CheckoutHandler serves the backend checkout endpoint.
type CheckoutHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.OrderService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

type orderView struct {
	Order *model.Order      `json:"order"`
	Items []model.OrderItem `json:"items"`
}

// Checkout handles POST /checkout/. A placed order answers 201; a cart the
// server had to rewrite answers 200 without an order ID.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.PlaceOrder(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	status := http.StatusOK
	if resp.OrderID != "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// GetOrder handles GET /orders/{id}.
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	order, items, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	if order == nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "order not found", h.logger)
		return
	}

	if items == nil {
		items = []model.OrderItem{}
	}
	writeJSON(w, http.StatusOK, orderView{Order: order, Items: items})
}
