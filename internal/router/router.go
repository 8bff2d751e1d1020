package router

import (
	"net/http"

	"kasa/internal/handler"
	"kasa/internal/middleware"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewAPI creates the catalog and checkout backend router.
func NewAPI(
	catalogHandler *handler.CatalogHandler,
	checkoutHandler *handler.CheckoutHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", handler.Health)

	mux.HandleFunc("GET /search", catalogHandler.Search)
	mux.HandleFunc("GET /products/{url}", catalogHandler.Product)
	mux.HandleFunc("GET /categories", catalogHandler.Categories)

	// Checkout is registered with and without the trailing slash
	mux.HandleFunc("POST /checkout", checkoutHandler.Checkout)
	mux.HandleFunc("POST /checkout/{$}", checkoutHandler.Checkout)
	mux.HandleFunc("GET /orders/{id}", checkoutHandler.GetOrder)

	return wrap(mux, "kasa-api", apiKey, logger)
}

// NewStorefront creates the storefront session router.
func NewStorefront(h *handler.StorefrontHandler, apiKey string, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.Health)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddItem)
	mux.HandleFunc("PUT /api/cart/items/{id}", h.SetQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.RemoveItem)

	mux.HandleFunc("GET /api/order", h.GetDraft)
	mux.HandleFunc("PATCH /api/order", h.PatchDraft)

	mux.HandleFunc("GET /api/checkout", h.CheckoutState)
	mux.HandleFunc("POST /api/checkout", h.Submit)
	mux.HandleFunc("DELETE /api/checkout", h.AbandonCheckout)

	mux.HandleFunc("GET /api/alerts", h.ListAlerts)
	mux.HandleFunc("DELETE /api/alerts/{id}", h.DismissAlert)
	mux.HandleFunc("POST /api/alerts/{id}/click", h.ClickAlert)

	mux.HandleFunc("GET /api/search", h.Search)
	mux.HandleFunc("GET /api/categories", h.Categories)

	return wrap(mux, "kasa-storefront", apiKey, logger)
}

// wrap applies middleware in order: Recovery -> RequestID -> Logging -> CORS -> APIKeyAuth.
func wrap(mux *http.ServeMux, operation, apiKey string, logger zerolog.Logger) http.Handler {
	var h http.Handler = mux
	h = middleware.APIKeyAuth(apiKey, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.RequestID(h)
	h = middleware.Recovery(logger)(h)

	return otelhttp.NewHandler(h, operation)
}
