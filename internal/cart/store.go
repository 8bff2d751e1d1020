// Package cart holds the client's authoritative in-memory cart.
package cart

import (
	"context"
	"sync"

	"kasa/internal/model"
	"kasa/internal/pricing"

	"github.com/rs/zerolog"
)

// Persister durably stores cart snapshots. Implementations must not fail:
// unreadable state loads as absent and write errors are absorbed.
type Persister interface {
	Load(ctx context.Context) (model.Cart, bool)
	Save(ctx context.Context, cart model.Cart)
}

// Listener is called with a snapshot of the cart after a mutation. A
// listener may read the store but must not mutate it.
type Listener func(model.Cart)

type subscription struct {
	id int
	fn Listener
}

// Store is the single owner of the session cart. Every mutation persists the
// new state before it returns and then notifies subscribers.
type Store struct {
	mu        sync.Mutex
	items     model.Cart
	version   uint64
	persister Persister

	listenersMu  sync.Mutex
	listeners    []subscription
	nextListener int

	// notifyMu serialises delivery; delivered is the newest version sent.
	notifyMu  sync.Mutex
	delivered uint64

	logger zerolog.Logger
}

// New creates a store rehydrated from persister, or empty on a first visit.
func New(ctx context.Context, persister Persister, logger zerolog.Logger) *Store {
	s := &Store{
		items:     model.Cart{},
		persister: persister,
		logger:    logger.With().Str("component", "cart-store").Logger(),
	}

	if cart, ok := persister.Load(ctx); ok {
		s.items = cart.Clone()
		s.logger.Info().Int("lines", len(s.items)).Msg("cart restored")
	}

	return s
}

// Items returns a copy of the cart lines in order.
func (s *Store) Items() model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

// Len returns the number of lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Total returns the cart total in minor units.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.CartTotal(s.items)
}

// AddItem appends item with quantity, or increases the quantity of an
// existing line with the same ID. Quantities are capped at the last known
// stock when one is known.
func (s *Store) AddItem(ctx context.Context, item model.LineItem, quantity int) error {
	if item.ID == "" {
		return model.ErrInvalidCart
	}
	if quantity <= 0 {
		return model.ErrInvalidQuantity
	}

	s.mutate(ctx, func(items model.Cart) model.Cart {
		if i := items.Index(item.ID); i >= 0 {
			line := &items[i]
			if item.Stock > 0 {
				line.Stock = item.Stock
			}
			line.Quantity = capToStock(line.Quantity+quantity, line.Stock)
			s.logger.Debug().Str("item_id", item.ID).Int("quantity", line.Quantity).Msg("cart line increased")
			return items
		}

		item.Quantity = capToStock(quantity, item.Stock)
		s.logger.Debug().Str("item_id", item.ID).Int("quantity", item.Quantity).Msg("cart line added")
		return append(items, item)
	})
	return nil
}

// SetQuantity replaces the quantity of a line in place. A quantity of zero
// or less removes the line. Unknown ids return ErrItemNotFound and leave the
// cart untouched.
func (s *Store) SetQuantity(ctx context.Context, id string, quantity int) error {
	s.mu.Lock()
	found := s.items.Index(id) >= 0
	s.mu.Unlock()
	if !found {
		return model.ErrItemNotFound
	}

	var missing bool
	s.mutate(ctx, func(items model.Cart) model.Cart {
		i := items.Index(id)
		if i < 0 {
			missing = true
			return items
		}
		if quantity <= 0 {
			return append(items[:i], items[i+1:]...)
		}
		items[i].Quantity = capToStock(quantity, items[i].Stock)
		return items
	})
	if missing {
		return model.ErrItemNotFound
	}
	return nil
}

// RemoveItem deletes the line with id; removing an absent id is a no-op.
func (s *Store) RemoveItem(ctx context.Context, id string) {
	s.mutate(ctx, func(items model.Cart) model.Cart {
		if i := items.Index(id); i >= 0 {
			return append(items[:i], items[i+1:]...)
		}
		return items
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, func(model.Cart) model.Cart {
		return model.Cart{}
	})
}

// ReplaceCart swaps the whole cart for cart without merging. Lines with a
// quantity of zero or less are dropped; a cart that still violates the cart
// invariants is rejected with ErrInvalidCart and nothing changes.
func (s *Store) ReplaceCart(ctx context.Context, cart model.Cart) error {
	next := make(model.Cart, 0, len(cart))
	for _, item := range cart {
		if item.Quantity > 0 {
			next = append(next, item)
		}
	}
	if err := next.Validate(); err != nil {
		s.logger.Warn().Int("lines", len(cart)).Msg("rejected replacement cart")
		return err
	}

	s.mutate(ctx, func(model.Cart) model.Cart {
		return next
	})
	s.logger.Info().Int("lines", len(next)).Msg("cart replaced")
	return nil
}

// Subscribe registers listener for cart changes and returns a function that
// unregisters it. Listeners are called in registration order.
func (s *Store) Subscribe(listener Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners = append(s.listeners, subscription{id: id, fn: listener})

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// mutate applies fn to a private copy of the cart, persists the result and
// publishes it, then notifies listeners outside the lock.
func (s *Store) mutate(ctx context.Context, fn func(model.Cart) model.Cart) {
	s.mu.Lock()
	next := fn(s.items.Clone())
	s.persister.Save(ctx, next)
	s.items = next
	s.version++
	version := s.version
	snapshot := next.Clone()
	s.mu.Unlock()

	s.notify(version, snapshot)
}

// notify delivers snapshots one at a time. A snapshot overtaken by a newer
// delivery is skipped, so listeners never see the cart go back in time.
func (s *Store) notify(version uint64, cart model.Cart) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if version <= s.delivered {
		s.logger.Debug().Uint64("version", version).Msg("skipping stale cart notification")
		return
	}
	s.delivered = version

	s.listenersMu.Lock()
	listeners := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		listeners[i] = sub.fn
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(cart.Clone())
	}
}

func capToStock(quantity, stock int) int {
	if stock > 0 && quantity > stock {
		return stock
	}
	return quantity
}
