// Package checkout drives one session's order submission: local validation,
// the checkout request, and reconciliation of the cart the server returns.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kasa/internal/alert"
	"kasa/internal/model"
	"kasa/internal/order"
	"kasa/internal/remote"

	"github.com/rs/zerolog"
)

// State is a step of the submission state machine.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateConfirmed
	StateReconciling
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateConfirmed:
		return "confirmed"
	case StateReconciling:
		return "reconciling"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CartStore is the part of the cart the protocol reads and rewrites.
type CartStore interface {
	Items() model.Cart
	ReplaceCart(ctx context.Context, cart model.Cart) error
}

// DraftSource supplies the order draft at submission time.
type DraftSource interface {
	Snapshot() model.OrderDraft
}

// Alerter receives user-facing messages.
type Alerter interface {
	Enqueue(message string, severity alert.Severity, opts ...alert.Option) uint64
}

// Submitter sends a checkout request to the order endpoint.
type Submitter interface {
	Submit(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error)
}

// Result describes how one Submit call ended.
type Result struct {
	State   State              `json:"state"`
	Invalid []model.FieldError `json:"invalid,omitempty"`
	Cart    model.Cart         `json:"cart,omitempty"`
	OrderID string             `json:"orderId,omitempty"`
	Total   int64              `json:"total,omitempty"`
	AlertID *uint64            `json:"alertId,omitempty"`
	// ScrollToTop asks the UI to scroll the cart drawer to its first line.
	ScrollToTop bool `json:"scrollToTop,omitempty"`
}

// Confirmation is passed to OnConfirmed listeners.
type Confirmation struct {
	Draft   model.OrderDraft
	Cart    model.Cart
	OrderID string
	Total   int64
}

// ErrOrderCartMismatch is reported when the server placed an order for a
// cart other than the one submitted.
var ErrOrderCartMismatch = errors.New("order placed for a different cart")

// Alert presentation.
const (
	AlertIcon           = "alert-circle"
	DefaultAlertTimeout = 10 * time.Second
)

// Option configures a Protocol.
type Option func(*Protocol)

// WithAlertTimeout sets how long the reconciliation alert stays visible.
func WithAlertTimeout(d time.Duration) Option {
	return func(p *Protocol) { p.alertTimeout = d }
}

// Protocol runs checkout submissions for a single session. At most one
// submission is in flight at a time.
type Protocol struct {
	mu         sync.Mutex
	state      State
	generation uint64

	cart      CartStore
	draft     DraftSource
	alerts    Alerter
	submitter Submitter

	listenersMu sync.Mutex
	onConfirmed []func(context.Context, Confirmation)

	alertTimeout time.Duration
	logger       zerolog.Logger
}

// NewProtocol wires a protocol to its collaborators.
func NewProtocol(cart CartStore, draft DraftSource, alerts Alerter, submitter Submitter, logger zerolog.Logger, opts ...Option) *Protocol {
	p := &Protocol{
		state:        StateIdle,
		cart:         cart,
		draft:        draft,
		alerts:       alerts,
		submitter:    submitter,
		alertTimeout: DefaultAlertTimeout,
		logger:       logger.With().Str("component", "checkout").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current state.
func (p *Protocol) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// OnConfirmed registers fn to run after a confirmed submission.
func (p *Protocol) OnConfirmed(fn func(context.Context, Confirmation)) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	p.onConfirmed = append(p.onConfirmed, fn)
}

// Abandon drops interest in the in-flight submission, if any. Its response
// is ignored when it arrives and the protocol is immediately Idle again.
func (p *Protocol) Abandon() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	if p.state == StateSubmitting {
		p.logger.Info().Msg("in-flight checkout abandoned")
	}
	p.state = StateIdle
}

// Submit validates the draft and cart, submits them and interprets the
// server's answer.
//
// Invalid input ends in Idle with Result.Invalid listing the fields, and
// no request is made. A server cart that differs from the submitted one
// replaces the local cart, raises one alert and ends in Reconciling; the
// user has to submit again. Transport and server errors raise an alert and
// return the protocol to Idle, as does an order ID returned with a changed
// cart, which is never reconciled into a second submission. The returned error is reserved for calls
// that did not run: ErrSubmissionInProgress and ErrSubmissionAbandoned.
func (p *Protocol) Submit(ctx context.Context) (Result, error) {
	p.mu.Lock()
	if p.state == StateSubmitting || p.state == StateValidating {
		p.mu.Unlock()
		p.logger.Debug().Msg("submit ignored, checkout already in progress")
		return Result{State: StateSubmitting}, model.ErrSubmissionInProgress
	}
	p.state = StateValidating
	p.mu.Unlock()

	draft := p.draft.Snapshot()
	submitted := p.cart.Items()

	invalid := order.Validate(draft)
	if len(submitted) == 0 {
		invalid = append(invalid, model.FieldError{Field: order.FieldNameCart, Reason: "required"})
	}
	if len(invalid) > 0 {
		p.setState(StateIdle)
		p.logger.Debug().Int("invalid_fields", len(invalid)).Str("first", invalid[0].Field).Msg("checkout blocked by validation")
		return Result{State: StateIdle, Invalid: invalid}, nil
	}

	p.mu.Lock()
	p.state = StateSubmitting
	gen := p.generation
	p.mu.Unlock()

	p.logger.Info().
		Int("lines", len(submitted)).
		Str("payment_method", string(draft.PaymentMethod)).
		Msg("submitting checkout")

	req := model.NewCheckoutRequest(draft, submitted)

	resp, err := p.submitter.Submit(ctx, req)

	if !p.stillCurrent(gen) {
		p.logger.Info().Msg("discarding response of abandoned checkout")
		return Result{State: StateIdle}, model.ErrSubmissionAbandoned
	}
	if err != nil && ctx.Err() != nil {
		p.setState(StateIdle)
		p.logger.Info().Err(err).Msg("checkout request cancelled")
		return Result{State: StateIdle}, model.ErrSubmissionAbandoned
	}
	if err != nil {
		return p.fail(err), nil
	}

	if submitted.Equal(resp.Cart) {
		return p.confirm(ctx, draft, resp), nil
	}
	if resp.OrderID != "" {
		result := p.fail(fmt.Errorf("%w: order %s", ErrOrderCartMismatch, resp.OrderID))
		result.OrderID = resp.OrderID
		return result, nil
	}
	return p.reconcile(ctx, draft, submitted, resp), nil
}

func (p *Protocol) confirm(ctx context.Context, draft model.OrderDraft, resp *model.CheckoutResponse) Result {
	p.setState(StateConfirmed)
	p.logger.Info().Str("order_id", resp.OrderID).Int64("total", resp.Total).Msg("checkout confirmed")

	confirmation := Confirmation{
		Draft:   draft,
		Cart:    resp.Cart.Clone(),
		OrderID: resp.OrderID,
		Total:   resp.Total,
	}

	p.listenersMu.Lock()
	listeners := append([]func(context.Context, Confirmation){}, p.onConfirmed...)
	p.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(ctx, confirmation)
	}

	return Result{
		State:   StateConfirmed,
		Cart:    confirmation.Cart,
		OrderID: resp.OrderID,
		Total:   resp.Total,
	}
}

func (p *Protocol) reconcile(ctx context.Context, draft model.OrderDraft, submitted model.Cart, resp *model.CheckoutResponse) Result {
	if err := p.cart.ReplaceCart(ctx, resp.Cart); err != nil {
		return p.fail(fmt.Errorf("server returned an unusable cart: %w", err))
	}
	p.setState(StateReconciling)

	id := p.alerts.Enqueue(reconcileMessage(draft.PaymentMethod), alert.SeverityCritical,
		alert.WithIcon(AlertIcon),
		alert.WithTimeout(p.alertTimeout))

	p.logger.Warn().
		Int("submitted_lines", len(submitted)).
		Int("server_lines", len(resp.Cart)).
		Uint64("alert_id", id).
		Msg("server changed the cart, resubmission required")

	return Result{
		State:       StateReconciling,
		Cart:        resp.Cart.Clone(),
		Total:       resp.Total,
		AlertID:     &id,
		ScrollToTop: true,
	}
}

func (p *Protocol) fail(err error) Result {
	p.setState(StateIdle)

	id := p.alerts.Enqueue(failureMessage(err), alert.SeverityCritical, alert.WithIcon(AlertIcon))
	p.logger.Error().Err(err).Uint64("alert_id", id).Msg("checkout failed")

	result := Result{State: StateFailed, AlertID: &id}
	var apiErr *remote.Error
	if errors.As(err, &apiErr) {
		result.Invalid = apiErr.Fields
	}
	return result
}

func (p *Protocol) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

func (p *Protocol) stillCurrent(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation == gen
}

func submitLabel(method model.PaymentMethod) string {
	if method == model.PaymentCard {
		return "Pay by card"
	}
	return "Place order"
}

func reconcileMessage(method model.PaymentMethod) string {
	return fmt.Sprintf("Prices or availability of items in your cart have changed. "+
		"Please review your cart and press %q again.", submitLabel(method))
}

func failureMessage(err error) string {
	if errors.Is(err, ErrOrderCartMismatch) {
		return "Your order was recorded with different prices than shown. " +
			"Please contact us before ordering again."
	}
	var apiErr *remote.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return "Your order could not be placed: " + apiErr.Message
	}
	return "Your order could not be placed. Please check your connection and try again."
}
