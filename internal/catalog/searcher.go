package catalog

import (
	"context"
	"strings"
	"sync"

	"kasa/internal/model"
)

// SearchFunc runs one catalog search.
type SearchFunc func(ctx context.Context, query string, limit int) ([]model.ProductSummary, error)

// Searcher serialises type-ahead searches so only the latest query's
// results are ever delivered. Starting a search cancels the one before it.
type Searcher struct {
	search SearchFunc
	limit  int

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewSearcher wraps search. limit applies to every query.
func NewSearcher(search SearchFunc, limit int) *Searcher {
	return &Searcher{search: search, limit: limit}
}

// Search runs query and returns its results unless a newer query started in
// the meantime, in which case it returns model.ErrSearchSuperseded. A blank
// query returns no results without a request.
func (s *Searcher) Search(ctx context.Context, query string) ([]model.ProductSummary, error) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if query == "" {
		s.mu.Unlock()
		return []model.ProductSummary{}, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer cancel()

	results, err := s.search(ctx, query, s.limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return nil, model.ErrSearchSuperseded
	}
	s.cancel = nil
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.ProductSummary{}
	}
	return results, nil
}
