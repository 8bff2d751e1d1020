package coupon

import (
	"context"
	"fmt"
	"sync"

	"kasa/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config selects the lists a Checker loads.
type Config struct {
	// Names are passed to the Source, one list each.
	Names []string

	// MinMatchCount is how many lists must contain a code. Zero means 2,
	// capped at the number of lists.
	MinMatchCount int
}

type checker struct {
	mu       sync.RWMutex
	sets     []Set
	minMatch int
	logger   zerolog.Logger
}

// NewChecker loads every list in cfg concurrently from src.
func NewChecker(ctx context.Context, cfg Config, src Source, logger zerolog.Logger) (Checker, error) {
	logger = logger.With().Str("component", "coupon-checker").Logger()

	if len(cfg.Names) == 0 {
		return nil, fmt.Errorf("no coupon lists configured")
	}

	minMatch := cfg.MinMatchCount
	if minMatch <= 0 {
		minMatch = 2
	}
	if minMatch > len(cfg.Names) {
		minMatch = len(cfg.Names)
	}

	sets := make([]Set, len(cfg.Names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range cfg.Names {
		g.Go(func() error {
			rc, err := src.Open(gctx, name)
			if err != nil {
				return err
			}
			defer rc.Close()

			set, err := ReadSet(gctx, rc)
			if err != nil {
				return fmt.Errorf("coupon list %s: %w", name, err)
			}
			sets[i] = set

			logger.Info().
				Str("list", name).
				Int("size", set.Size()).
				Msg("coupon list loaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("failed to load coupon lists")
		return nil, err
	}

	logger.Info().
		Int("lists", len(sets)).
		Int("min_match_count", minMatch).
		Msg("coupon checker ready")

	return &checker{sets: sets, minMatch: minMatch, logger: logger}, nil
}

// NewCheckerFromSets builds a Checker over already loaded sets.
func NewCheckerFromSets(minMatch int, logger zerolog.Logger, sets ...Set) Checker {
	return &checker{
		sets:     sets,
		minMatch: minMatch,
		logger:   logger.With().Str("component", "coupon-checker").Logger(),
	}
}

func (c *checker) Check(ctx context.Context, code string) error {
	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		c.logger.Debug().
			Int("length", len(code)).
			Msg("coupon length invalid")
		return model.ErrInvalidCouponLength
	}

	if n := c.countMatches(ctx, code); n < c.minMatch {
		c.logger.Debug().
			Str("coupon", code).
			Int("match_count", n).
			Msg("coupon not found in enough lists")
		return model.ErrInvalidCoupon
	}

	return nil
}

// countMatches stops as soon as the outcome is decided either way. A closed
// checker matches nothing.
func (c *checker) countMatches(ctx context.Context, code string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	matches := 0
	for i, set := range c.sets {
		if ctx.Err() != nil {
			return matches
		}
		if set.Contains(code) {
			matches++
		}
		remaining := len(c.sets) - i - 1
		if matches >= c.minMatch || matches+remaining < c.minMatch {
			return matches
		}
	}
	return matches
}

func (c *checker) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = nil
	return nil
}
