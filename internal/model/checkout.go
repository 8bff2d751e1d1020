package model

import (
	"net/url"
	"strconv"
	"strings"
)

// Cart wire format: "<id>|<qty>,<id>|<qty>,..." with ids path-escaped.
const (
	cartLineSeparator  = ","
	cartFieldSeparator = "|"
)

// CartLine is one identifier/quantity pair of a submitted cart.
type CartLine struct {
	ID       string
	Quantity int
}

// EncodeCartLines serialises the cart in line order for submission.
func EncodeCartLines(cart Cart) string {
	parts := make([]string, len(cart))
	for i, item := range cart {
		parts[i] = url.PathEscape(item.ID) + cartFieldSeparator + strconv.Itoa(item.Quantity)
	}
	return strings.Join(parts, cartLineSeparator)
}

// ParseCartLines decodes a submitted cart string. Every line must carry a
// non-empty identifier and a positive quantity.
func ParseCartLines(s string) ([]CartLine, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyCart
	}

	raw := strings.Split(s, cartLineSeparator)
	lines := make([]CartLine, 0, len(raw))
	for _, part := range raw {
		idx := strings.LastIndex(part, cartFieldSeparator)
		if idx <= 0 {
			return nil, ErrInvalidCartLine
		}
		qty, err := strconv.Atoi(part[idx+1:])
		if err != nil || qty <= 0 {
			return nil, ErrInvalidCartLine
		}
		id, err := url.PathUnescape(part[:idx])
		if err != nil || id == "" {
			return nil, ErrInvalidCartLine
		}
		lines = append(lines, CartLine{ID: id, Quantity: qty})
	}
	return lines, nil
}

// PricedLine is the client's view of one submitted line: what the user saw
// when pressing the submit button.
type PricedLine struct {
	ID            string        `json:"id"`
	Quantity      int           `json:"quantity"`
	Price         int64         `json:"price"`
	Reduction     int64         `json:"reduction,omitempty"`
	ReductionType ReductionType `json:"reductionType,omitempty"`
}

// PricedLines lists the pricing of cart in line order.
func PricedLines(cart Cart) []PricedLine {
	lines := make([]PricedLine, len(cart))
	for i, item := range cart {
		lines[i] = PricedLine{
			ID:            item.ID,
			Quantity:      item.Quantity,
			Price:         item.Price,
			Reduction:     item.Reduction,
			ReductionType: item.ReductionType,
		}
	}
	return lines
}

// MatchesPricing reports whether cart holds exactly lines, compared with
// LineItem.SamePricing.
func MatchesPricing(cart Cart, lines []PricedLine) bool {
	if len(cart) != len(lines) {
		return false
	}
	for i, l := range lines {
		expected := LineItem{
			ID:            l.ID,
			Quantity:      l.Quantity,
			Price:         l.Price,
			Reduction:     l.Reduction,
			ReductionType: l.ReductionType,
		}
		if !cart[i].SamePricing(expected) {
			return false
		}
	}
	return true
}

// CheckoutRequest is the body of POST /checkout/. Shipping data is only
// present when UseShippingData is set and card fields only for card payments.
type CheckoutRequest struct {
	PaymentData     Party         `json:"paymentData"`
	UseShippingData bool          `json:"useShippingData"`
	ShippingData    *Party        `json:"shippingData,omitempty"`
	AdditionalInfo  string        `json:"additionalInfo"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	CardType        CardNetwork   `json:"cardType,omitempty"`
	Installments    int           `json:"installments,omitempty"`
	Coupon          string        `json:"coupon"`
	Save            bool          `json:"save"`
	Terms           bool          `json:"terms"`
	Cart            string        `json:"cart"`
	// Expected is the pricing the client showed for Cart. When present the
	// server places the order only if its repriced cart matches line by line.
	Expected []PricedLine `json:"expected,omitempty"`
}

// NewCheckoutRequest packages a draft and cart for submission, leaving out
// the sections the draft keeps but does not submit.
func NewCheckoutRequest(draft OrderDraft, cart Cart) *CheckoutRequest {
	req := &CheckoutRequest{
		PaymentData:     draft.PaymentData,
		UseShippingData: draft.UseShippingData,
		AdditionalInfo:  draft.AdditionalInfo,
		PaymentMethod:   draft.PaymentMethod,
		Coupon:          draft.Coupon,
		Save:            draft.Save,
		Terms:           draft.Terms,
		Cart:            EncodeCartLines(cart),
		Expected:        PricedLines(cart),
	}
	if draft.UseShippingData {
		shipping := draft.ShippingData
		req.ShippingData = &shipping
	}
	if draft.PaymentMethod == PaymentCard {
		req.CardType = draft.CardType
		req.Installments = draft.Installments
	}
	return req
}

// Draft rebuilds the submitted order draft.
func (r *CheckoutRequest) Draft() OrderDraft {
	draft := OrderDraft{
		PaymentData:     r.PaymentData,
		UseShippingData: r.UseShippingData,
		AdditionalInfo:  r.AdditionalInfo,
		PaymentMethod:   r.PaymentMethod,
		CardType:        r.CardType,
		Installments:    r.Installments,
		Coupon:          r.Coupon,
		Save:            r.Save,
		Terms:           r.Terms,
	}
	if r.ShippingData != nil {
		draft.ShippingData = *r.ShippingData
	}
	return draft
}

// CheckoutResponse is the body returned by POST /checkout/. Cart is the
// server's authoritative view of the submitted cart.
type CheckoutResponse struct {
	Cart    Cart   `json:"Cart"`
	OrderID string `json:"orderId,omitempty"`
	Total   int64  `json:"total"`
}
