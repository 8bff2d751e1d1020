package service

import (
	"context"
	"fmt"
	"strings"

	"kasa/internal/config"
	"kasa/internal/model"
	"kasa/internal/repository"

	"github.com/rs/zerolog"
)

// catalogService implements CatalogService.
type catalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      TreeCache
	cfg        config.CatalogConfig
	logger     zerolog.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	cache TreeCache,
	cfg config.CatalogConfig,
	logger zerolog.Logger,
) CatalogService {
	return &catalogService{
		products:   products,
		categories: categories,
		cache:      cache,
		cfg:        cfg,
		logger:     logger.With().Str("service", "catalog").Logger(),
	}
}

// Search returns products whose name contains query.
func (s *catalogService) Search(ctx context.Context, query string, limit int) ([]model.ProductSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.ProductSummary{}, nil
	}

	if limit <= 0 {
		limit = s.cfg.SearchDefaultLimit
	}
	if limit > s.cfg.SearchMaxLimit {
		limit = s.cfg.SearchMaxLimit
	}

	results, err := s.products.Search(ctx, query, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("failed to search products")
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	return results, nil
}

// GetByURL retrieves a single product by its URL key.
func (s *catalogService) GetByURL(ctx context.Context, url string) (*model.Product, error) {
	if url == "" {
		s.logger.Warn().Msg("product URL is empty")
		return nil, model.ErrProductNotFound
	}

	product, err := s.products.GetByURL(ctx, url)
	if err != nil {
		s.logger.Error().Err(err).Str("product_url", url).Msg("failed to get product")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil {
		s.logger.Debug().Str("product_url", url).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// Categories returns the category tree, from cache when one is configured.
func (s *catalogService) Categories(ctx context.Context) ([]model.Category, error) {
	if s.cache != nil {
		if tree, ok := s.cache.Load(ctx); ok {
			return tree, nil
		}
	}

	categories, err := s.categories.GetAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get categories")
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	products, err := s.products.ListCategorised(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get categorised products")
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	tree := buildTree(categories, products)

	s.logger.Debug().
		Int("categories", len(categories)).
		Int("products", len(products)).
		Int("roots", len(tree)).
		Msg("category tree built")

	if s.cache != nil {
		s.cache.Save(ctx, tree)
	}

	return tree, nil
}

// buildTree nests categories under their parents and attaches products.
// Categories whose parent is missing become roots. Input order is kept
// among siblings.
func buildTree(categories []model.Category, products []model.Product) []model.Category {
	known := make(map[int64]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}

	byCategory := make(map[int64][]model.ProductSummary)
	for _, p := range products {
		byCategory[p.CategoryID] = append(byCategory[p.CategoryID], p.ProductSummary)
	}

	children := make(map[int64][]model.Category)
	var roots []model.Category
	for _, c := range categories {
		if c.ParentID != nil && known[*c.ParentID] && *c.ParentID != c.ID {
			children[*c.ParentID] = append(children[*c.ParentID], c)
			continue
		}
		roots = append(roots, c)
	}

	visited := make(map[int64]bool, len(categories))
	var attach func(c model.Category) model.Category
	attach = func(c model.Category) model.Category {
		visited[c.ID] = true
		c.Products = byCategory[c.ID]
		if c.Products == nil {
			c.Products = []model.ProductSummary{}
		}
		c.Children = []model.Category{}
		for _, child := range children[c.ID] {
			if !visited[child.ID] {
				c.Children = append(c.Children, attach(child))
			}
		}
		return c
	}

	tree := make([]model.Category, 0, len(roots))
	for _, r := range roots {
		tree = append(tree, attach(r))
	}
	return tree
}
