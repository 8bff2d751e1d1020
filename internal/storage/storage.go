// Package storage persists client-side session state (the cart snapshot and
// the saved order draft) in a durable key-value store.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned by a Backend when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Backend is a durable key-value store. Put must replace the previous value
// atomically: a concurrent or subsequent Get observes either the old or the
// new value, never a partial write.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Snapshot stores a single JSON-encoded value of type T under one key.
// It never reports failures to its caller: a value that cannot be read or
// decoded is treated as absent and write errors are logged and dropped, so
// the in-memory owner of the value stays the source of truth.
type Snapshot[T any] struct {
	backend  Backend
	key      string
	timeout  time.Duration
	validate func(T) error
	logger   zerolog.Logger
}

// SnapshotOption configures a Snapshot.
type SnapshotOption[T any] func(*Snapshot[T])

// WithValidation rejects decoded values that fail validate; such values load as absent.
func WithValidation[T any](validate func(T) error) SnapshotOption[T] {
	return func(s *Snapshot[T]) {
		s.validate = validate
	}
}

// WithTimeout bounds each backend call.
func WithTimeout[T any](timeout time.Duration) SnapshotOption[T] {
	return func(s *Snapshot[T]) {
		s.timeout = timeout
	}
}

// NewSnapshot creates a fail-soft snapshot of T stored under key.
func NewSnapshot[T any](backend Backend, key string, logger zerolog.Logger, opts ...SnapshotOption[T]) *Snapshot[T] {
	s := &Snapshot[T]{
		backend: backend,
		key:     key,
		timeout: 2 * time.Second,
		logger:  logger.With().Str("component", "snapshot").Str("key", key).Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the stored value, or false when it is absent, unreadable,
// corrupt or invalid.
func (s *Snapshot[T]) Load(ctx context.Context) (T, bool) {
	var zero T

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug().Msg("no stored snapshot")
		} else {
			s.logger.Warn().Err(err).Msg("failed to read snapshot, continuing without it")
		}
		return zero, false
	}

	value, err := s.decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("discarding unusable snapshot")
		return zero, false
	}

	return value, true
}

// Save replaces the stored value. Errors are logged, never returned.
func (s *Snapshot[T]) Save(ctx context.Context, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode snapshot")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.backend.Put(ctx, s.key, data); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write snapshot, state kept in memory only")
		return
	}

	s.logger.Debug().Int("bytes", len(data)).Msg("snapshot saved")
}

// Clear removes the stored value. Errors are logged, never returned.
func (s *Snapshot[T]) Clear(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.backend.Delete(ctx, s.key); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn().Err(err).Msg("failed to clear snapshot")
	}
}

func (s *Snapshot[T]) decode(data []byte) (T, error) {
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.validate != nil {
		if err := s.validate(value); err != nil {
			var zero T
			return zero, fmt.Errorf("invalid snapshot: %w", err)
		}
	}
	return value, nil
}
