// Package catalog reads products and categories from the backend for the
// storefront. Results are display data only; the cart never trusts them
// over a checkout response.
package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"kasa/internal/model"
	"kasa/internal/remote"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultSearchLimit is used when a search does not ask for a limit.
const DefaultSearchLimit = 10

// Client is the catalog API.
type Client struct {
	remote *remote.Client

	sfg         singleflight.Group
	cacheMu     sync.RWMutex
	categories  []model.Category
	cachedAt    time.Time
	categoryTTL time.Duration
	now         func() time.Time

	logger zerolog.Logger
}

// NewClient creates a catalog client. Category trees are kept for
// categoryTTL; zero disables caching but concurrent fetches still share
// one request.
func NewClient(rc *remote.Client, categoryTTL time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		remote:      rc,
		categoryTTL: categoryTTL,
		now:         time.Now,
		logger:      logger.With().Str("component", "catalog").Logger(),
	}
}

// Search returns products whose name matches query, best match first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]model.ProductSummary, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))

	var products []model.ProductSummary
	if err := c.remote.Do(ctx, http.MethodGet, "/search", q, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Product fetches one product by its URL key. A missing product returns
// model.ErrProductNotFound.
func (c *Client) Product(ctx context.Context, key string) (*model.Product, error) {
	var product model.Product
	err := c.remote.Do(ctx, http.MethodGet, "/products/"+url.PathEscape(key), nil, nil, &product)
	if remote.IsStatus(err, http.StatusNotFound) {
		return nil, model.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Categories returns the category tree.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	if tree, ok := c.cachedCategories(); ok {
		return tree, nil
	}

	v, err, shared := c.sfg.Do("categories", func() (interface{}, error) {
		var tree []model.Category
		if err := c.remote.Do(ctx, http.MethodGet, "/categories", nil, nil, &tree); err != nil {
			return nil, err
		}

		c.cacheMu.Lock()
		c.categories = tree
		c.cachedAt = c.now()
		c.cacheMu.Unlock()

		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug().Msg("category fetch shared with concurrent caller")
	}
	return v.([]model.Category), nil
}

func (c *Client) cachedCategories() ([]model.Category, bool) {
	if c.categoryTTL <= 0 {
		return nil, false
	}

	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	if c.categories == nil || c.now().Sub(c.cachedAt) > c.categoryTTL {
		return nil, false
	}
	return c.categories, true
}
