package service

import (
	"context"

	"kasa/internal/model"

	"github.com/google/uuid"
)

// CatalogService defines the read side of the product catalog.
type CatalogService interface {
	// Search returns products matching query. The limit is clamped to the
	// configured bounds.
	Search(ctx context.Context, query string, limit int) ([]model.ProductSummary, error)

	// GetByURL retrieves a single product by its URL key.
	GetByURL(ctx context.Context, url string) (*model.Product, error)

	// Categories returns the category tree with products attached.
	Categories(ctx context.Context) ([]model.Category, error)
}

// OrderService defines the checkout endpoint operations.
type OrderService interface {
	// PlaceOrder reprices the submitted cart and records the order when
	// the cart survives repricing unchanged.
	PlaceOrder(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error)

	// GetByID retrieves a placed order with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)
}

// TreeCache holds the last built category tree.
// *storage.Snapshot[[]model.Category] satisfies it.
type TreeCache interface {
	Load(ctx context.Context) ([]model.Category, bool)
	Save(ctx context.Context, tree []model.Category)
}
