package checkout

import (
	"context"
	"errors"
	"net/http"

	"kasa/internal/model"
	"kasa/internal/remote"
)

// ErrMissingCart is returned when a 2xx checkout response carries no cart.
var ErrMissingCart = errors.New("checkout response has no Cart")

// CheckoutPath is the order endpoint relative to the backend base URL.
const CheckoutPath = "/checkout/"

// HTTPSubmitter posts checkout requests to the backend.
type HTTPSubmitter struct {
	client *remote.Client
}

// NewHTTPSubmitter creates a submitter on top of a backend client.
func NewHTTPSubmitter(client *remote.Client) *HTTPSubmitter {
	return &HTTPSubmitter{client: client}
}

// Submit sends req once. Non-2xx answers come back as *remote.Error.
func (s *HTTPSubmitter) Submit(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	var resp model.CheckoutResponse
	if err := s.client.Do(ctx, http.MethodPost, CheckoutPath, nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Cart == nil {
		return nil, ErrMissingCart
	}
	return &resp, nil
}
