package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kasa/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `id, url, name, price, reduction, reduction_type, quantity, default_image, category_id, created_at, updated_at`

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var (
		p          model.Product
		categoryID *int64
	)
	err := row.Scan(
		&p.ID,
		&p.URL,
		&p.Name,
		&p.Price,
		&p.Reduction,
		&p.ReductionType,
		&p.Quantity,
		&p.DefaultImage.URL,
		&categoryID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	if categoryID != nil {
		p.CategoryID = *categoryID
	}
	p.HasReduction = p.Reduction > 0 && p.ReductionType != model.ReductionNone
	return p, nil
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Search returns products whose name contains query.
func (r *productRepository) Search(ctx context.Context, query string, limit int) ([]model.ProductSummary, error) {
	sql := `SELECT ` + productColumns + `
		FROM products
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2`

	products, err := r.queryProducts(ctx, sql, escapeLike(query), limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.ProductSummary, len(products))
	for i, p := range products {
		summaries[i] = p.ProductSummary
	}

	r.logger.Debug().
		Str("query", query).
		Int("results", len(summaries)).
		Msg("product search")

	return summaries, nil
}

// GetByURL retrieves a single product by its URL key.
func (r *productRepository) GetByURL(ctx context.Context, url string) (*model.Product, error) {
	sql := `SELECT ` + productColumns + ` FROM products WHERE url = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, sql, url))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_url", url).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_url", url).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// GetByURLs retrieves the products for the given URL keys.
func (r *productRepository) GetByURLs(ctx context.Context, urls []string) (map[string]model.Product, error) {
	if len(urls) == 0 {
		return map[string]model.Product{}, nil
	}

	sql := `SELECT ` + productColumns + ` FROM products WHERE url = ANY($1)`

	products, err := r.queryProducts(ctx, sql, urls)
	if err != nil {
		return nil, err
	}

	byURL := make(map[string]model.Product, len(products))
	for _, p := range products {
		byURL[p.URL] = p
	}

	if len(byURL) != len(urls) {
		r.logger.Debug().
			Int("requested", len(urls)).
			Int("found", len(byURL)).
			Msg("some products not found")
	}

	return byURL, nil
}

// ListCategorised returns every product assigned to a category.
func (r *productRepository) ListCategorised(ctx context.Context) ([]model.Product, error) {
	sql := `SELECT ` + productColumns + `
		FROM products
		WHERE category_id IS NOT NULL
		ORDER BY name`

	return r.queryProducts(ctx, sql)
}

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
