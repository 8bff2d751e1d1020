package cart

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"kasa/internal/model"
	"kasa/internal/pricing"
	"kasa/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPersister keeps every saved cart so tests can check that each
// mutation was persisted.
type recordingPersister struct {
	mu     sync.Mutex
	loaded model.Cart
	hasOne bool
	saves  []model.Cart
}

func (p *recordingPersister) Load(context.Context) (model.Cart, bool) {
	return p.loaded, p.hasOne
}

func (p *recordingPersister) Save(_ context.Context, cart model.Cart) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, cart.Clone())
}

func (p *recordingPersister) last() model.Cart {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saves) == 0 {
		return nil
	}
	return p.saves[len(p.saves)-1]
}

func newTestStore(t *testing.T) (*Store, *recordingPersister) {
	t.Helper()
	p := &recordingPersister{}
	return New(context.Background(), p, zerolog.Nop()), p
}

func TestStore_New_RestoresPersistedCart(t *testing.T) {
	p := &recordingPersister{
		loaded: model.Cart{{ID: "A", Name: "Alpha", Price: 1000, Quantity: 2}},
		hasOne: true,
	}

	store := New(context.Background(), p, zerolog.Nop())

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, int64(2000), store.Total())
}

func TestStore_New_EmptyOnFirstVisit(t *testing.T) {
	store, _ := newTestStore(t)

	assert.Equal(t, 0, store.Len())
	assert.NotNil(t, store.Items())
}

func TestStore_AddItem(t *testing.T) {
	ctx := context.Background()
	item := model.LineItem{ID: "A", Name: "Alpha", Price: 1000}

	tests := []struct {
		name      string
		seed      model.Cart
		item      model.LineItem
		quantity  int
		wantErr   error
		wantCart  model.Cart
		wantTotal int64
	}{
		{
			name:      "New line",
			item:      item,
			quantity:  2,
			wantCart:  model.Cart{{ID: "A", Name: "Alpha", Price: 1000, Quantity: 2}},
			wantTotal: 2000,
		},
		{
			name:      "Existing line is merged",
			seed:      model.Cart{{ID: "A", Name: "Alpha", Price: 1000, Quantity: 1}},
			item:      item,
			quantity:  3,
			wantCart:  model.Cart{{ID: "A", Name: "Alpha", Price: 1000, Quantity: 4}},
			wantTotal: 4000,
		},
		{
			name:      "Quantity capped at stock",
			item:      model.LineItem{ID: "B", Name: "Beta", Price: 500, Stock: 3},
			quantity:  5,
			wantCart:  model.Cart{{ID: "B", Name: "Beta", Price: 500, Quantity: 3, Stock: 3}},
			wantTotal: 1500,
		},
		{
			name:     "Zero quantity",
			item:     item,
			quantity: 0,
			wantErr:  model.ErrInvalidQuantity,
			wantCart: model.Cart{},
		},
		{
			name:     "Missing identifier",
			item:     model.LineItem{Name: "Nameless", Price: 10},
			quantity: 1,
			wantErr:  model.ErrInvalidCart,
			wantCart: model.Cart{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordingPersister{loaded: tt.seed, hasOne: tt.seed != nil}
			store := New(ctx, p, zerolog.Nop())

			err := store.AddItem(ctx, tt.item, tt.quantity)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, p.saves)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCart, p.last())
			}
			assert.Equal(t, tt.wantCart, store.Items())
			assert.Equal(t, tt.wantTotal, store.Total())
		})
	}
}

func TestStore_AddItem_Twice(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	item := model.LineItem{ID: "gitara-yamaha-c40", Name: "Yamaha C40", Price: 129900}

	require.NoError(t, store.AddItem(ctx, item, 1))
	require.NoError(t, store.AddItem(ctx, item, 1))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, int64(259800), store.Total())
}

func TestStore_SetQuantity(t *testing.T) {
	ctx := context.Background()
	seed := model.Cart{
		{ID: "A", Price: 100, Quantity: 1},
		{ID: "B", Price: 200, Quantity: 2, Stock: 5},
	}

	tests := []struct {
		name     string
		id       string
		quantity int
		wantErr  error
		wantCart model.Cart
	}{
		{
			name:     "Updates in place",
			id:       "A",
			quantity: 4,
			wantCart: model.Cart{{ID: "A", Price: 100, Quantity: 4}, {ID: "B", Price: 200, Quantity: 2, Stock: 5}},
		},
		{
			name:     "Caps at stock",
			id:       "B",
			quantity: 9,
			wantCart: model.Cart{{ID: "A", Price: 100, Quantity: 1}, {ID: "B", Price: 200, Quantity: 5, Stock: 5}},
		},
		{
			name:     "Zero removes the line",
			id:       "A",
			quantity: 0,
			wantCart: model.Cart{{ID: "B", Price: 200, Quantity: 2, Stock: 5}},
		},
		{
			name:     "Unknown id",
			id:       "Z",
			quantity: 3,
			wantErr:  model.ErrItemNotFound,
			wantCart: seed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordingPersister{loaded: seed.Clone(), hasOne: true}
			store := New(ctx, p, zerolog.Nop())

			err := store.SetQuantity(ctx, tt.id, tt.quantity)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, p.saves)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCart, p.last())
			}
			assert.Equal(t, tt.wantCart, store.Items())
		})
	}
}

func TestStore_RemoveItem(t *testing.T) {
	ctx := context.Background()
	store, p := newTestStore(t)
	require.NoError(t, store.AddItem(ctx, model.LineItem{ID: "A", Price: 100}, 1))
	require.NoError(t, store.AddItem(ctx, model.LineItem{ID: "B", Price: 200}, 1))

	store.RemoveItem(ctx, "A")
	store.RemoveItem(ctx, "missing")

	assert.Equal(t, model.Cart{{ID: "B", Price: 200, Quantity: 1}}, store.Items())
	assert.Equal(t, store.Items(), p.last())
}

func TestStore_ReplaceCart(t *testing.T) {
	ctx := context.Background()

	t.Run("Replaces without merging", func(t *testing.T) {
		store, p := newTestStore(t)
		require.NoError(t, store.AddItem(ctx, model.LineItem{ID: "A", Price: 100}, 5))

		server := model.Cart{{ID: "A", Price: 90, Quantity: 2}, {ID: "C", Price: 10, Quantity: 1}}
		require.NoError(t, store.ReplaceCart(ctx, server))

		assert.Equal(t, server, store.Items())
		assert.Equal(t, server, p.last())
	})

	t.Run("Drops non-positive quantities", func(t *testing.T) {
		store, _ := newTestStore(t)

		require.NoError(t, store.ReplaceCart(ctx, model.Cart{
			{ID: "A", Price: 100, Quantity: 0},
			{ID: "B", Price: 100, Quantity: 1},
		}))

		assert.Equal(t, model.Cart{{ID: "B", Price: 100, Quantity: 1}}, store.Items())
	})

	t.Run("Rejects duplicate identifiers", func(t *testing.T) {
		store, p := newTestStore(t)
		require.NoError(t, store.AddItem(ctx, model.LineItem{ID: "A", Price: 100}, 1))
		saves := len(p.saves)

		err := store.ReplaceCart(ctx, model.Cart{
			{ID: "B", Price: 100, Quantity: 1},
			{ID: "B", Price: 100, Quantity: 2},
		})

		assert.ErrorIs(t, err, model.ErrInvalidCart)
		assert.Equal(t, model.Cart{{ID: "A", Price: 100, Quantity: 1}}, store.Items())
		assert.Len(t, p.saves, saves)
	})

	t.Run("Empty server cart empties the store", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.AddItem(ctx, model.LineItem{ID: "A", Price: 100}, 1))

		require.NoError(t, store.ReplaceCart(ctx, model.Cart{}))

		assert.Equal(t, 0, store.Len())
	})
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	store, p := newTestStore(t)
	require.NoError(t, store.AddItem(ctx, model.LineItem{ID: "A", Price: 100}, 1))

	store.Clear(ctx)

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, model.Cart{}, p.last())
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	var seen []model.Cart
	unsubscribe := store.Subscribe(func(c model.Cart) {
		seen = append(seen, c)
	})

	require.NoError(t, store.AddItem(ctx, model.LineItem{ID: "A", Price: 100}, 1))
	store.RemoveItem(ctx, "A")
	unsubscribe()
	require.NoError(t, store.AddItem(ctx, model.LineItem{ID: "B", Price: 100}, 1))

	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 1)
	assert.Empty(t, seen[1])
}

func TestStore_Subscribe_ListenerMayReadStore(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	var total int64
	store.Subscribe(func(model.Cart) {
		total = store.Total()
	})

	require.NoError(t, store.AddItem(ctx, model.LineItem{ID: "A", Price: 250}, 2))

	assert.Equal(t, int64(500), total)
}

func TestStore_Subscribe_RegistrationOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	var order []string
	for _, name := range []string{"drawer", "badge", "total", "checkout"} {
		store.Subscribe(func(model.Cart) { order = append(order, name) })
	}
	unsubscribe := store.Subscribe(func(model.Cart) { order = append(order, "gone") })
	unsubscribe()

	require.NoError(t, store.AddItem(ctx, model.LineItem{ID: "A", Price: 100}, 1))

	assert.Equal(t, []string{"drawer", "badge", "total", "checkout"}, order)
}

func TestStore_Subscribe_ConcurrentMutationsNeverGoBack(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	var mu sync.Mutex
	var sizes []int
	store.Subscribe(func(c model.Cart) {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, len(c))
	})

	const writers = 50
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item := model.LineItem{ID: string(rune('A' + i)), Price: 100}
			assert.NoError(t, store.AddItem(ctx, item, 1))
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, sizes)
	for i := 1; i < len(sizes); i++ {
		assert.Greater(t, sizes[i], sizes[i-1])
	}
	assert.Equal(t, writers, sizes[len(sizes)-1])
}

func TestStore_RandomOperations_KeepInvariants(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	ids := []string{"A", "B", "C", "D"}

	backend := storage.NewMemoryBackend()
	snapshot := storage.NewSnapshot[model.Cart](backend, "kasa-cart", zerolog.Nop(),
		storage.WithValidation(model.Cart.Validate))
	store := New(ctx, snapshot, zerolog.Nop())

	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(5) {
		case 0, 1:
			item := model.LineItem{
				ID:            id,
				Price:         int64(rng.Intn(5000)),
				Reduction:     int64(rng.Intn(30)),
				ReductionType: model.ReductionPercentage,
				Stock:         rng.Intn(4),
			}
			_ = store.AddItem(ctx, item, rng.Intn(4))
		case 2:
			_ = store.SetQuantity(ctx, id, rng.Intn(6)-1)
		case 3:
			store.RemoveItem(ctx, id)
		case 4:
			if rng.Intn(10) == 0 {
				store.Clear(ctx)
			}
		}

		items := store.Items()
		require.NoError(t, items.Validate(), "step %d", i)

		var sum int64
		for _, item := range items {
			sum += pricing.LineTotal(item)
		}
		require.Equal(t, sum, store.Total(), "step %d", i)

		persisted, ok := snapshot.Load(ctx)
		if len(items) > 0 || ok {
			require.True(t, ok, "step %d", i)
			require.True(t, persisted.Equal(items), "step %d", i)
		}
	}
}
