package repository

import (
	"context"
	"testing"
	"time"

	"kasa/internal/database"
	"kasa/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL testcontainer, applies the embedded
// migrations and returns a connection pool.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(connStr, zerolog.Nop()))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// seedCategory inserts a category and returns its ID.
func seedCategory(t *testing.T, pool *pgxpool.Pool, name, slug string, parentID *int64) int64 {
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO categories (name, slug, parent_id) VALUES ($1, $2, $3) RETURNING id`,
		name, slug, parentID,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// seedProducts inserts test products into the database. A zero CategoryID
// leaves the product uncategorised.
func seedProducts(t *testing.T, pool *pgxpool.Pool, products []model.Product) {
	ctx := context.Background()

	query := `
		INSERT INTO products (url, name, price, reduction, reduction_type, quantity, default_image, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, p := range products {
		var categoryID *int64
		if p.CategoryID != 0 {
			categoryID = &p.CategoryID
		}
		_, err := pool.Exec(ctx, query,
			p.URL, p.Name, p.Price, p.Reduction, p.ReductionType, p.Quantity, p.DefaultImage.URL, categoryID)
		require.NoError(t, err)
	}
}

func product(url, name string, price int64, stock int) model.Product {
	return model.Product{ProductSummary: model.ProductSummary{
		URL:      url,
		Name:     name,
		Price:    price,
		Quantity: stock,
	}}
}

func TestProductRepository_Search(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())

	discounted := product("kettle-steel", "Steel Kettle", 4999, 3)
	discounted.Reduction = 10
	discounted.ReductionType = model.ReductionPercentage

	seedProducts(t, pool, []model.Product{
		product("kettle-glass", "Glass Kettle", 3999, 5),
		discounted,
		product("toaster", "Toaster", 2999, 0),
		product("percent", "100% Cotton Towel", 999, 7),
	})

	tests := []struct {
		name     string
		query    string
		limit    int
		expected []string
	}{
		{name: "Case insensitive match", query: "KETTLE", limit: 10, expected: []string{"kettle-glass", "kettle-steel"}},
		{name: "Limit applied", query: "kettle", limit: 1, expected: []string{"kettle-glass"}},
		{name: "No match", query: "blender", limit: 10, expected: []string{}},
		{name: "Wildcard is literal", query: "%", limit: 10, expected: []string{"percent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := repo.Search(context.Background(), tt.query, tt.limit)

			require.NoError(t, err)
			urls := make([]string, len(results))
			for i, r := range results {
				urls[i] = r.URL
			}
			assert.Equal(t, tt.expected, urls)
		})
	}

	t.Run("Reduction flag derived", func(t *testing.T) {
		results, err := repo.Search(context.Background(), "steel", 10)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.True(t, results[0].HasReduction)
		assert.Equal(t, int64(10), results[0].Reduction)
		assert.Equal(t, model.ReductionPercentage, results[0].ReductionType)
	})
}

func TestProductRepository_GetByURL(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())

	kettle := product("kettle-glass", "Glass Kettle", 3999, 5)
	kettle.DefaultImage.URL = "/img/kettle.jpg"
	seedProducts(t, pool, []model.Product{kettle})

	t.Run("Existing product", func(t *testing.T) {
		p, err := repo.GetByURL(context.Background(), "kettle-glass")

		require.NoError(t, err)
		require.NotNil(t, p)
		assert.NotZero(t, p.ID)
		assert.Equal(t, "Glass Kettle", p.Name)
		assert.Equal(t, int64(3999), p.Price)
		assert.Equal(t, 5, p.Quantity)
		assert.Equal(t, "/img/kettle.jpg", p.DefaultImage.URL)
		assert.False(t, p.HasReduction)
		assert.False(t, p.CreatedAt.IsZero())
	})

	t.Run("Missing product", func(t *testing.T) {
		p, err := repo.GetByURL(context.Background(), "nope")

		require.NoError(t, err)
		assert.Nil(t, p)
	})
}

func TestProductRepository_GetByURLs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())

	seedProducts(t, pool, []model.Product{
		product("a", "A", 100, 1),
		product("b", "B", 200, 2),
		product("c", "C", 300, 3),
	})

	tests := []struct {
		name     string
		urls     []string
		expected []string
	}{
		{name: "All found", urls: []string{"a", "c"}, expected: []string{"a", "c"}},
		{name: "Unknown skipped", urls: []string{"b", "zzz"}, expected: []string{"b"}},
		{name: "Empty input", urls: nil, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			byURL, err := repo.GetByURLs(context.Background(), tt.urls)

			require.NoError(t, err)
			assert.Len(t, byURL, len(tt.expected))
			for _, url := range tt.expected {
				assert.Contains(t, byURL, url)
				assert.Equal(t, url, byURL[url].URL)
			}
		})
	}
}

func TestProductRepository_ListCategorised(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())

	kitchen := seedCategory(t, pool, "Kitchen", "kitchen", nil)

	inCategory := product("kettle", "Kettle", 100, 1)
	inCategory.CategoryID = kitchen
	seedProducts(t, pool, []model.Product{
		inCategory,
		product("loose", "Loose", 100, 1),
	})

	products, err := repo.ListCategorised(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "kettle", products[0].URL)
	assert.Equal(t, kitchen, products[0].CategoryID)
}

func TestCategoryRepository_GetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCategoryRepository(pool, zerolog.Nop())

	home := seedCategory(t, pool, "Home", "home", nil)
	seedCategory(t, pool, "Bath", "bath", &home)

	categories, err := repo.GetAll(context.Background())

	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Bath", categories[0].Name)
	require.NotNil(t, categories[0].ParentID)
	assert.Equal(t, home, *categories[0].ParentID)
	assert.Equal(t, "Home", categories[1].Name)
	assert.Nil(t, categories[1].ParentID)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%`, escapeLike("50%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c\\d`, escapeLike(`c\d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestProductRepository_ErrorPaths(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	categories := NewCategoryRepository(pool, zerolog.Nop())

	// Close the pool to simulate database errors
	pool.Close()

	ctx := context.Background()

	t.Run("Search with closed pool", func(t *testing.T) {
		products, err := repo.Search(ctx, "a", 10)

		require.Error(t, err)
		assert.Nil(t, products)
	})

	t.Run("GetByURL with closed pool", func(t *testing.T) {
		p, err := repo.GetByURL(ctx, "a")

		require.Error(t, err)
		assert.Nil(t, p)
	})

	t.Run("GetByURLs with closed pool", func(t *testing.T) {
		products, err := repo.GetByURLs(ctx, []string{"a"})

		require.Error(t, err)
		assert.Nil(t, products)
	})

	t.Run("GetAll categories with closed pool", func(t *testing.T) {
		c, err := categories.GetAll(ctx)

		require.Error(t, err)
		assert.Nil(t, c)
	})
}
