// Package order holds the in-progress checkout form and its validation.
package order

import (
	"strings"
	"sync"

	"kasa/internal/model"

	"github.com/rs/zerolog"
)

// Draft owns the session's order draft. Each setter replaces one field and
// leaves the others alone; switching away from card payment or turning off
// shipping data keeps the hidden sub-fields so they come back when the
// option is turned on again.
type Draft struct {
	mu     sync.RWMutex
	draft  model.OrderDraft
	logger zerolog.Logger
}

// NewDraft returns a draft holder starting from initial.
func NewDraft(initial model.OrderDraft, logger zerolog.Logger) *Draft {
	return &Draft{
		draft:  initial,
		logger: logger.With().Str("component", "order-draft").Logger(),
	}
}

// Snapshot returns a copy of the current draft.
func (d *Draft) Snapshot() model.OrderDraft {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.draft
}

// Reset restores draft in full, e.g. from a saved copy.
func (d *Draft) Reset(draft model.OrderDraft) {
	d.update(func(o *model.OrderDraft) { *o = draft })
}

func (d *Draft) SetPaymentMethod(method model.PaymentMethod) error {
	if !method.Valid() {
		return model.ErrInvalidPaymentMethod
	}
	d.update(func(o *model.OrderDraft) { o.PaymentMethod = method })
	return nil
}

func (d *Draft) SetCardType(card model.CardNetwork) error {
	if !card.Valid() {
		return model.ErrInvalidCardType
	}
	d.update(func(o *model.OrderDraft) { o.CardType = card })
	return nil
}

// SetInstallments accepts counts between MinInstallments and MaxInstallments.
func (d *Draft) SetInstallments(n int) error {
	if n < model.MinInstallments || n > model.MaxInstallments {
		return model.ErrInvalidInstallments
	}
	d.update(func(o *model.OrderDraft) { o.Installments = n })
	return nil
}

// SetCoupon stores the code as entered, trimmed of surrounding space.
func (d *Draft) SetCoupon(code string) {
	code = strings.TrimSpace(code)
	d.update(func(o *model.OrderDraft) { o.Coupon = code })
}

func (d *Draft) SetNote(note string) {
	d.update(func(o *model.OrderDraft) { o.AdditionalInfo = note })
}

func (d *Draft) SetSave(save bool) {
	d.update(func(o *model.OrderDraft) { o.Save = save })
}

func (d *Draft) SetTerms(accepted bool) {
	d.update(func(o *model.OrderDraft) { o.Terms = accepted })
}

func (d *Draft) SetUseShippingData(use bool) {
	d.update(func(o *model.OrderDraft) { o.UseShippingData = use })
}

// SetCompany switches the target party between company and individual.
// Names entered for the other kind are kept.
func (d *Draft) SetCompany(target Target, isCompany bool) {
	d.update(func(o *model.OrderDraft) { party(o, target).IsCompany = isCompany })
}

// SetPartyField replaces one text field of the target party.
func (d *Draft) SetPartyField(target Target, field PartyField, value string) error {
	if _, ok := partyFields[field]; !ok {
		return model.ErrUnknownField
	}

	var err error
	d.update(func(o *model.OrderDraft) { err = setPartyField(party(o, target), field, value) })
	return err
}

// Patch is a partial update of the draft. Nil fields are left unchanged.
type Patch struct {
	PaymentData     *PartyPatch          `json:"paymentData,omitempty"`
	UseShippingData *bool                `json:"useShippingData,omitempty"`
	ShippingData    *PartyPatch          `json:"shippingData,omitempty"`
	AdditionalInfo  *string              `json:"additionalInfo,omitempty"`
	PaymentMethod   *model.PaymentMethod `json:"paymentMethod,omitempty"`
	CardType        *model.CardNetwork   `json:"cardType,omitempty"`
	Installments    *int                 `json:"installments,omitempty"`
	Coupon          *string              `json:"coupon,omitempty"`
	Save            *bool                `json:"save,omitempty"`
	Terms           *bool                `json:"terms,omitempty"`
}

// Validate checks the enumerated values carried by the patch.
func (p Patch) Validate() error {
	if p.PaymentMethod != nil && !p.PaymentMethod.Valid() {
		return model.ErrInvalidPaymentMethod
	}
	if p.CardType != nil && !p.CardType.Valid() {
		return model.ErrInvalidCardType
	}
	if p.Installments != nil && (*p.Installments < model.MinInstallments || *p.Installments > model.MaxInstallments) {
		return model.ErrInvalidInstallments
	}
	return nil
}

// Apply merges p into the draft. An invalid patch changes nothing.
func (d *Draft) Apply(p Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}

	d.update(func(o *model.OrderDraft) {
		p.PaymentData.apply(&o.PaymentData)
		p.ShippingData.apply(&o.ShippingData)
		if p.UseShippingData != nil {
			o.UseShippingData = *p.UseShippingData
		}
		if p.AdditionalInfo != nil {
			o.AdditionalInfo = *p.AdditionalInfo
		}
		if p.PaymentMethod != nil {
			o.PaymentMethod = *p.PaymentMethod
		}
		if p.CardType != nil {
			o.CardType = *p.CardType
		}
		if p.Installments != nil {
			o.Installments = *p.Installments
		}
		if p.Coupon != nil {
			o.Coupon = strings.TrimSpace(*p.Coupon)
		}
		if p.Save != nil {
			o.Save = *p.Save
		}
		if p.Terms != nil {
			o.Terms = *p.Terms
		}
	})
	d.logger.Debug().Msg("draft patched")
	return nil
}

func (d *Draft) update(fn func(*model.OrderDraft)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.draft)
}

func party(o *model.OrderDraft, target Target) *model.Party {
	if target == ShippingParty {
		return &o.ShippingData
	}
	return &o.PaymentData
}
