// Package coupon checks checkout coupon codes against gzipped code lists
// loaded from local files or S3.
package coupon

import (
	"context"
	"io"
)

// Code length bounds, inclusive.
const (
	MinCodeLength = 8
	MaxCodeLength = 10
)

// Checker decides whether a coupon code may be redeemed.
type Checker interface {
	// Check returns nil for a redeemable code, model.ErrInvalidCouponLength
	// when the length is outside the bounds, and model.ErrInvalidCoupon
	// when too few lists contain it.
	Check(ctx context.Context, code string) error

	// Close releases the loaded lists.
	Close() error
}

// Set is a read-only collection of coupon codes.
type Set interface {
	Contains(code string) bool
	Size() int
}

// Source opens a named coupon list. The returned stream is gzipped text
// with one code per line.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}
