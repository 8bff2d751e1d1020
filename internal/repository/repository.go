package repository

import (
	"context"

	"kasa/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the catalog read operations.
type ProductRepository interface {
	// Search returns products whose name contains query, case-insensitively,
	// ordered by name.
	Search(ctx context.Context, query string, limit int) ([]model.ProductSummary, error)

	// GetByURL retrieves a single product by its URL key. A missing product
	// returns nil without an error.
	GetByURL(ctx context.Context, url string) (*model.Product, error)

	// GetByURLs retrieves the products for the given URL keys, keyed by URL.
	// Unknown keys are absent from the result.
	GetByURLs(ctx context.Context, urls []string) (map[string]model.Product, error)

	// ListCategorised returns every product assigned to a category.
	ListCategorised(ctx context.Context) ([]model.Product, error)
}

// CategoryRepository reads the category table.
type CategoryRepository interface {
	// GetAll returns all categories ordered by name, parents unresolved.
	GetAll(ctx context.Context) ([]model.Category, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)
}
