package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"kasa/internal/alert"
	"kasa/internal/checkout"
	"kasa/internal/model"
	"kasa/internal/order"
	"kasa/internal/pricing"

	"github.com/rs/zerolog"
)

// Cart is the session cart as the storefront handlers use it.
type Cart interface {
	Items() model.Cart
	Total() int64
	AddItem(ctx context.Context, item model.LineItem, quantity int) error
	SetQuantity(ctx context.Context, id string, quantity int) error
	RemoveItem(ctx context.Context, id string)
}

// ProductFinder looks up one catalog product by its URL key.
type ProductFinder interface {
	Product(ctx context.Context, key string) (*model.Product, error)
}

// DraftEditor is the session order draft.
type DraftEditor interface {
	Snapshot() model.OrderDraft
	Apply(p order.Patch) error
}

// Checkout runs submissions for the session.
type Checkout interface {
	Submit(ctx context.Context) (checkout.Result, error)
	State() checkout.State
	Abandon()
}

// Alerts is the session alert queue.
type Alerts interface {
	List() []alert.Alert
	Dismiss(id uint64) bool
	Click(id uint64) bool
}

// Searcher runs type-ahead catalog searches.
type Searcher interface {
	Search(ctx context.Context, query string) ([]model.ProductSummary, error)
}

// CategoryLister returns the category tree.
type CategoryLister interface {
	Categories(ctx context.Context) ([]model.Category, error)
}

// StorefrontHandler serves the storefront session API: cart, order draft,
// checkout, alerts and catalog lookups.
type StorefrontHandler struct {
	cart       Cart
	products   ProductFinder
	draft      DraftEditor
	checkout   Checkout
	alerts     Alerts
	searcher   Searcher
	categories CategoryLister
	currency   string
	logger     zerolog.Logger
}

// StorefrontDeps groups the session components behind the storefront API.
type StorefrontDeps struct {
	Cart       Cart
	Products   ProductFinder
	Draft      DraftEditor
	Checkout   Checkout
	Alerts     Alerts
	Searcher   Searcher
	Categories CategoryLister
	Currency   string
}

// NewStorefrontHandler creates a new storefront handler.
func NewStorefrontHandler(deps StorefrontDeps, logger zerolog.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		cart:       deps.Cart,
		products:   deps.Products,
		draft:      deps.Draft,
		checkout:   deps.Checkout,
		alerts:     deps.Alerts,
		searcher:   deps.Searcher,
		categories: deps.Categories,
		currency:   deps.Currency,
		logger:     logger.With().Str("handler", "storefront").Logger(),
	}
}

type cartLineView struct {
	model.LineItem
	UnitPrice    int64 `json:"UnitPrice"`
	LineTotal    int64 `json:"LineTotal"`
	HasReduction bool  `json:"HasReduction"`
}

type cartView struct {
	Items          []cartLineView `json:"items"`
	Count          int            `json:"count"`
	Total          int64          `json:"total"`
	FormattedTotal string         `json:"formattedTotal"`
}

func (h *StorefrontHandler) cartView() cartView {
	items := h.cart.Items()
	view := cartView{Items: make([]cartLineView, 0, len(items))}
	for _, item := range items {
		view.Items = append(view.Items, cartLineView{
			LineItem:     item,
			UnitPrice:    pricing.ReducedUnitPrice(item.Price, item.Reduction, item.ReductionType),
			LineTotal:    pricing.LineTotal(item),
			HasReduction: pricing.HasReduction(item),
		})
		view.Count += item.Quantity
	}
	view.Total = h.cart.Total()
	view.FormattedTotal = pricing.Format(view.Total, h.currency)
	return view
}

// GetCart handles GET /api/cart.
func (h *StorefrontHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cartView())
}

type addItemRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// AddItem handles POST /api/cart/items. The product is fetched from the
// catalog so the line carries current price and stock.
func (h *StorefrontHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if req.ID == "" {
		writeErrorFields(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "id is required",
			[]model.FieldError{{Field: "id", Reason: "required"}}, h.logger)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := h.products.Product(r.Context(), req.ID)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	if err := h.cart.AddItem(r.Context(), product.LineItem(req.Quantity), req.Quantity); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, h.cartView())
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// SetQuantity handles PUT /api/cart/items/{id}. A quantity of zero removes
// the line.
func (h *StorefrontHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if req.Quantity == nil {
		writeErrorFields(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "quantity is required",
			[]model.FieldError{{Field: "quantity", Reason: "required"}}, h.logger)
		return
	}

	if err := h.cart.SetQuantity(r.Context(), r.PathValue("id"), *req.Quantity); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, h.cartView())
}

// RemoveItem handles DELETE /api/cart/items/{id}.
func (h *StorefrontHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.cart.RemoveItem(r.Context(), r.PathValue("id"))
	writeJSON(w, http.StatusOK, h.cartView())
}

type draftView struct {
	Draft   model.OrderDraft   `json:"draft"`
	Invalid []model.FieldError `json:"invalid"`
}

func (h *StorefrontHandler) draftView() draftView {
	draft := h.draft.Snapshot()
	invalid := order.Validate(draft)
	if invalid == nil {
		invalid = []model.FieldError{}
	}
	return draftView{Draft: draft, Invalid: invalid}
}

// GetDraft handles GET /api/order.
func (h *StorefrontHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.draftView())
}

// PatchDraft handles PATCH /api/order.
func (h *StorefrontHandler) PatchDraft(w http.ResponseWriter, r *http.Request) {
	var patch order.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	if err := h.draft.Apply(patch); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, h.draftView())
}

// Submit handles POST /api/checkout. Validation failures, reconciliation
// and transport failures all answer 200 with the Result; only a call that
// did not run is an error.
func (h *StorefrontHandler) Submit(w http.ResponseWriter, r *http.Request) {
	result, err := h.checkout.Submit(r.Context())
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type checkoutStateView struct {
	State checkout.State `json:"state"`
}

// CheckoutState handles GET /api/checkout.
func (h *StorefrontHandler) CheckoutState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, checkoutStateView{State: h.checkout.State()})
}

// AbandonCheckout handles DELETE /api/checkout.
func (h *StorefrontHandler) AbandonCheckout(w http.ResponseWriter, r *http.Request) {
	h.checkout.Abandon()
	writeJSON(w, http.StatusOK, checkoutStateView{State: h.checkout.State()})
}

// ListAlerts handles GET /api/alerts.
func (h *StorefrontHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.alerts.List()
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// DismissAlert handles DELETE /api/alerts/{id}.
func (h *StorefrontHandler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	h.alertAction(w, r, h.alerts.Dismiss)
}

// ClickAlert handles POST /api/alerts/{id}/click.
func (h *StorefrontHandler) ClickAlert(w http.ResponseWriter, r *http.Request) {
	h.alertAction(w, r, h.alerts.Click)
}

func (h *StorefrontHandler) alertAction(w http.ResponseWriter, r *http.Request, action func(uint64) bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid alert ID", h.logger)
		return
	}
	if !action(id) {
		writeDomainError(w, r, model.ErrAlertNotFound, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search?query=. A search overtaken by a newer one
// answers 409.
func (h *StorefrontHandler) Search(w http.ResponseWriter, r *http.Request) {
	products, err := h.searcher.Search(r.Context(), r.URL.Query().Get("query"))
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		return
	}
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Categories handles GET /api/categories.
func (h *StorefrontHandler) Categories(w http.ResponseWriter, r *http.Request) {
	tree, err := h.categories.Categories(r.Context())
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}
