package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"kasa/internal/config"
	"kasa/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestAPIKey is the key both test servers accept.
const TestAPIKey = "test-api-key"

// TestDB represents a migrated test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container, applies the schema
// migrations and opens a connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	if err := database.Migrate(connStr, logger); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	pool, err := database.NewPoolFromURL(ctx, connStr, config.DatabaseConfig{
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// Seeded catalog: one category with two products and one uncategorised,
// out-of-stock product.
const (
	KettleURL  = "glass-kettle"
	ToasterURL = "steel-toaster"
	GrinderURL = "coffee-grinder"
)

// SeedCatalog inserts the test catalog.
func SeedCatalog(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	var kitchenID int64
	if err := pool.QueryRow(ctx,
		`INSERT INTO categories (name, slug) VALUES ('Kitchen', 'kitchen') RETURNING id`,
	).Scan(&kitchenID); err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}

	products := []struct {
		url           string
		name          string
		price         int64
		reduction     int64
		reductionType string
		quantity      int
		categoryID    *int64
	}{
		{KettleURL, "Glass Kettle", 3000, 10, "percentage", 5, &kitchenID},
		{ToasterURL, "Steel Toaster", 4500, 0, "", 2, &kitchenID},
		{GrinderURL, "Coffee Grinder", 6000, 500, "amount", 0, nil},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx,
			`INSERT INTO products (url, name, price, reduction, reduction_type, quantity, category_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.url, p.name, p.price, p.reduction, p.reductionType, p.quantity, p.categoryID,
		)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.url, err)
		}
	}
}

// SetStock changes a product's stock.
func SetStock(t *testing.T, pool *pgxpool.Pool, url string, quantity int) {
	t.Helper()

	if _, err := pool.Exec(context.Background(),
		`UPDATE products SET quantity = $1 WHERE url = $2`, quantity, url); err != nil {
		t.Fatalf("failed to set stock of %s: %v", url, err)
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"order_items", "orders", "products", "categories"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// CountOrders returns the number of stored orders.
func CountOrders(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()

	var n int
	if err := pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	return n
}
