package model

// ReductionType tags how a LineItem reduction is applied.
type ReductionType string

const (
	ReductionNone       ReductionType = ""
	ReductionAmount     ReductionType = "amount"
	ReductionPercentage ReductionType = "percentage"
)

// Valid reports whether t is a known reduction type.
func (t ReductionType) Valid() bool {
	switch t {
	case ReductionNone, ReductionAmount, ReductionPercentage:
		return true
	}
	return false
}

// LineItem is one product entry in the cart. Price and Reduction are minor
// currency units (or a percentage for ReductionPercentage) and are advisory
// until a checkout confirms them.
type LineItem struct {
	ID            string        `json:"ID"`
	Name          string        `json:"Name"`
	Price         int64         `json:"Price"`
	Quantity      int           `json:"Quantity"`
	Reduction     int64         `json:"Reduction,omitempty"`
	ReductionType ReductionType `json:"ReductionType,omitempty"`
	DefaultImage  string        `json:"DefaultImage,omitempty"`
	// Stock is the availability last reported by the catalog; zero means unknown.
	Stock int `json:"Stock,omitempty"`
}

// SamePricing reports whether two lines agree on everything the checkout
// reconciliation compares: identifier, quantity, unit price and reduction.
func (li LineItem) SamePricing(other LineItem) bool {
	return li.ID == other.ID &&
		li.Quantity == other.Quantity &&
		li.Price == other.Price &&
		li.Reduction == other.Reduction &&
		li.ReductionType == other.ReductionType
}

// Cart is an ordered sequence of line items keyed by ID.
type Cart []LineItem

// Index returns the position of the line with the given id, or -1.
func (c Cart) Index(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing array with c.
// A nil cart clones to an empty, non-nil cart.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Equal reports whether both carts hold the same lines in the same order,
// compared with SamePricing.
func (c Cart) Equal(other Cart) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if !c[i].SamePricing(other[i]) {
			return false
		}
	}
	return true
}

// Validate checks the cart invariants: non-empty unique identifiers,
// positive quantities, non-negative prices and known reduction types.
func (c Cart) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for _, item := range c {
		if item.ID == "" || item.Quantity <= 0 || item.Price < 0 || item.Reduction < 0 {
			return ErrInvalidCart
		}
		if !item.ReductionType.Valid() {
			return ErrInvalidCart
		}
		if _, dup := seen[item.ID]; dup {
			return ErrInvalidCart
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}
