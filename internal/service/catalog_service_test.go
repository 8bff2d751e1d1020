package service

import (
	"context"
	"errors"
	"testing"

	"kasa/internal/config"
	"kasa/internal/model"
	"kasa/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCategoryRepository is a mock implementation of CategoryRepository.
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) GetAll(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Category), args.Error(1)
}

var testCatalogConfig = config.CatalogConfig{SearchDefaultLimit: 10, SearchMaxLimit: 50}

func TestCatalogService_Search(t *testing.T) {
	ctx := context.Background()
	results := []model.ProductSummary{{URL: "kettle", Name: "Kettle"}}

	tests := []struct {
		name      string
		query     string
		limit     int
		wantLimit int
	}{
		{name: "Default limit", query: "kettle", limit: 0, wantLimit: 10},
		{name: "Negative limit", query: "kettle", limit: -5, wantLimit: 10},
		{name: "Custom limit", query: "kettle", limit: 20, wantLimit: 20},
		{name: "Limit capped", query: "kettle", limit: 500, wantLimit: 50},
		{name: "Query trimmed", query: "  kettle ", limit: 0, wantLimit: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := new(MockProductRepository)
			products.On("Search", ctx, "kettle", tt.wantLimit).Return(results, nil)
			svc := NewCatalogService(products, new(MockCategoryRepository), nil, testCatalogConfig, zerolog.Nop())

			got, err := svc.Search(ctx, tt.query, tt.limit)

			require.NoError(t, err)
			assert.Equal(t, results, got)
			products.AssertExpectations(t)
		})
	}

	t.Run("Blank query skips repository", func(t *testing.T) {
		products := new(MockProductRepository)
		svc := NewCatalogService(products, new(MockCategoryRepository), nil, testCatalogConfig, zerolog.Nop())

		got, err := svc.Search(ctx, "   ", 10)

		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
		products.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Repository error", func(t *testing.T) {
		products := new(MockProductRepository)
		products.On("Search", ctx, "kettle", 10).Return(nil, errors.New("db down"))
		svc := NewCatalogService(products, new(MockCategoryRepository), nil, testCatalogConfig, zerolog.Nop())

		got, err := svc.Search(ctx, "kettle", 0)

		require.Error(t, err)
		assert.Nil(t, got)
	})
}

func TestCatalogService_GetByURL(t *testing.T) {
	ctx := context.Background()
	kettle := catalogProduct("kettle", 1000, 5)

	tests := []struct {
		name        string
		url         string
		setup       func(m *MockProductRepository)
		expectErr   error
		expectOther bool
	}{
		{
			name: "Found",
			url:  "kettle",
			setup: func(m *MockProductRepository) {
				m.On("GetByURL", ctx, "kettle").Return(&kettle, nil)
			},
		},
		{
			name: "Not found",
			url:  "ghost",
			setup: func(m *MockProductRepository) {
				m.On("GetByURL", ctx, "ghost").Return(nil, nil)
			},
			expectErr: model.ErrProductNotFound,
		},
		{
			name:      "Empty URL",
			url:       "",
			setup:     func(m *MockProductRepository) {},
			expectErr: model.ErrProductNotFound,
		},
		{
			name: "Repository error",
			url:  "kettle",
			setup: func(m *MockProductRepository) {
				m.On("GetByURL", ctx, "kettle").Return(nil, errors.New("db down"))
			},
			expectOther: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := new(MockProductRepository)
			tt.setup(products)
			svc := NewCatalogService(products, new(MockCategoryRepository), nil, testCatalogConfig, zerolog.Nop())

			got, err := svc.GetByURL(ctx, tt.url)

			switch {
			case tt.expectErr != nil:
				assert.ErrorIs(t, err, tt.expectErr)
				assert.Nil(t, got)
			case tt.expectOther:
				require.Error(t, err)
				assert.NotErrorIs(t, err, model.ErrProductNotFound)
			default:
				require.NoError(t, err)
				assert.Equal(t, "kettle", got.URL)
			}
		})
	}
}

func ptr(v int64) *int64 { return &v }

func TestCatalogService_Categories(t *testing.T) {
	ctx := context.Background()

	categories := []model.Category{
		{ID: 3, Name: "Bath", Slug: "bath", ParentID: ptr(1)},
		{ID: 1, Name: "Home", Slug: "home"},
		{ID: 2, Name: "Kitchen", Slug: "kitchen", ParentID: ptr(1)},
		{ID: 4, Name: "Orphan", Slug: "orphan", ParentID: ptr(99)},
	}
	kettle := catalogProduct("kettle", 1000, 5)
	kettle.CategoryID = 2
	towel := catalogProduct("towel", 500, 5)
	towel.CategoryID = 3

	t.Run("Builds tree", func(t *testing.T) {
		products := new(MockProductRepository)
		cats := new(MockCategoryRepository)
		cats.On("GetAll", ctx).Return(categories, nil)
		products.On("ListCategorised", ctx).Return([]model.Product{kettle, towel}, nil)
		svc := NewCatalogService(products, cats, nil, testCatalogConfig, zerolog.Nop())

		tree, err := svc.Categories(ctx)

		require.NoError(t, err)
		require.Len(t, tree, 2)
		assert.Equal(t, "Home", tree[0].Name)
		assert.Equal(t, "Orphan", tree[1].Name)

		home := tree[0]
		require.Len(t, home.Children, 2)
		assert.Equal(t, "Bath", home.Children[0].Name)
		assert.Equal(t, "Kitchen", home.Children[1].Name)
		assert.Empty(t, home.Products)
		require.Len(t, home.Children[1].Products, 1)
		assert.Equal(t, "kettle", home.Children[1].Products[0].URL)
		assert.Equal(t, "towel", home.Children[0].Products[0].URL)
	})

	t.Run("Served from cache", func(t *testing.T) {
		products := new(MockProductRepository)
		cats := new(MockCategoryRepository)
		cats.On("GetAll", ctx).Return(categories, nil).Once()
		products.On("ListCategorised", ctx).Return([]model.Product{kettle}, nil).Once()

		cache := storage.NewSnapshot[[]model.Category](storage.NewMemoryBackend(), "categories", zerolog.Nop())
		svc := NewCatalogService(products, cats, cache, testCatalogConfig, zerolog.Nop())

		first, err := svc.Categories(ctx)
		require.NoError(t, err)
		second, err := svc.Categories(ctx)
		require.NoError(t, err)

		require.Len(t, second, len(first))
		assert.Equal(t, first[0].Name, second[0].Name)
		assert.Equal(t, first[0].Children[1].Products, second[0].Children[1].Products)
		cats.AssertNumberOfCalls(t, "GetAll", 1)
		products.AssertNumberOfCalls(t, "ListCategorised", 1)
	})

	t.Run("Category error", func(t *testing.T) {
		cats := new(MockCategoryRepository)
		cats.On("GetAll", ctx).Return(nil, errors.New("db down"))
		svc := NewCatalogService(new(MockProductRepository), cats, nil, testCatalogConfig, zerolog.Nop())

		_, err := svc.Categories(ctx)

		assert.Error(t, err)
	})

	t.Run("Product error", func(t *testing.T) {
		products := new(MockProductRepository)
		cats := new(MockCategoryRepository)
		cats.On("GetAll", ctx).Return(categories, nil)
		products.On("ListCategorised", ctx).Return(nil, errors.New("db down"))
		svc := NewCatalogService(products, cats, nil, testCatalogConfig, zerolog.Nop())

		_, err := svc.Categories(ctx)

		assert.Error(t, err)
	})
}
