package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod selects how the buyer pays for the order.
type PaymentMethod string

const (
	PaymentInvoice        PaymentMethod = "invoice"
	PaymentCashOnDelivery PaymentMethod = "cash-on-delivery"
	PaymentCard           PaymentMethod = "card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentInvoice, PaymentCashOnDelivery, PaymentCard:
		return true
	}
	return false
}

// CardNetwork is the card brand used for card payments.
type CardNetwork string

const (
	CardAmex        CardNetwork = "amex"
	CardMaestro     CardNetwork = "maestro"
	CardMastercard  CardNetwork = "master"
	CardVisa        CardNetwork = "visa"
	CardVisaPremium CardNetwork = "visapremium"
)

// Valid reports whether n is a supported card network.
func (n CardNetwork) Valid() bool {
	switch n {
	case CardAmex, CardMaestro, CardMastercard, CardVisa, CardVisaPremium:
		return true
	}
	return false
}

// Installment bounds for card payments.
const (
	MinInstallments = 1
	MaxInstallments = 24
)

// Party holds buyer or recipient contact and address data.
// Company and individual name fields are mutually exclusive by IsCompany.
type Party struct {
	IsCompany   bool   `json:"isCompany"`
	CompanyName string `json:"companyName" validate:"required_if=IsCompany true"`
	TaxID       string `json:"oib" validate:"required_if=IsCompany true"`
	FirstName   string `json:"firstName" validate:"required_if=IsCompany false"`
	LastName    string `json:"lastName" validate:"required_if=IsCompany false"`
	Address     string `json:"address" validate:"required"`
	PostalCode  string `json:"postalCode" validate:"required"`
	City        string `json:"city" validate:"required"`
	Country     string `json:"country" validate:"required,iso3166_1_alpha2"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,phone"`
}

// OrderDraft is the in-progress checkout form state.
type OrderDraft struct {
	PaymentData     Party         `json:"paymentData"`
	UseShippingData bool          `json:"useShippingData"`
	ShippingData    Party         `json:"shippingData"`
	AdditionalInfo  string        `json:"additionalInfo"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	CardType        CardNetwork   `json:"cardType"`
	Installments    int           `json:"installments"`
	Coupon          string        `json:"coupon"`
	Save            bool          `json:"save"`
	Terms           bool          `json:"terms"`
}

// DefaultCountry is the preselected country of a new party.
const DefaultCountry = "HR"

// NewOrderDraft returns a draft initialised to the session defaults.
func NewOrderDraft() OrderDraft {
	return OrderDraft{
		PaymentData:   Party{Country: DefaultCountry},
		ShippingData:  Party{Country: DefaultCountry},
		PaymentMethod: PaymentInvoice,
		CardType:      CardVisa,
		Installments:  MinInstallments,
	}
}

// FieldError marks one invalid form field. Field is a JSON path such as
// "paymentData.firstName".
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Order represents a placed order as recorded by the backend.
type Order struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	PaymentMethod PaymentMethod `json:"paymentMethod" db:"payment_method"`
	CouponCode    *string       `json:"couponCode,omitempty" db:"coupon_code"`
	Customer      OrderDraft    `json:"customer" db:"customer"`
	Total         int64         `json:"total" db:"total"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents a priced line of a placed order.
type OrderItem struct {
	ID            uuid.UUID     `json:"-" db:"id"`
	OrderID       uuid.UUID     `json:"-" db:"order_id"`
	ProductURL    string        `json:"productUrl" db:"product_url"`
	Quantity      int           `json:"quantity" db:"quantity"`
	UnitPrice     int64         `json:"unitPrice" db:"unit_price"`
	Reduction     int64         `json:"reduction" db:"reduction"`
	ReductionType ReductionType `json:"reductionType" db:"reduction_type"`
	LineTotal     int64         `json:"lineTotal" db:"line_total"`
}
