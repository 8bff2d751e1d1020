package order

import (
	"kasa/internal/model"
)

// Target selects which party of the draft a field setter writes to.
type Target int

const (
	PaymentParty Target = iota
	ShippingParty
)

func (t Target) String() string {
	if t == ShippingParty {
		return "shippingData"
	}
	return "paymentData"
}

// PartyField names one text field of a model.Party.
type PartyField int

const (
	FieldCompanyName PartyField = iota
	FieldTaxID
	FieldFirstName
	FieldLastName
	FieldAddress
	FieldPostalCode
	FieldCity
	FieldCountry
	FieldEmail
	FieldPhone
)

type partyFieldSpec struct {
	name string
	set  func(*model.Party, string)
}

var partyFields = map[PartyField]partyFieldSpec{
	FieldCompanyName: {"companyName", func(p *model.Party, v string) { p.CompanyName = v }},
	FieldTaxID:       {"oib", func(p *model.Party, v string) { p.TaxID = v }},
	FieldFirstName:   {"firstName", func(p *model.Party, v string) { p.FirstName = v }},
	FieldLastName:    {"lastName", func(p *model.Party, v string) { p.LastName = v }},
	FieldAddress:     {"address", func(p *model.Party, v string) { p.Address = v }},
	FieldPostalCode:  {"postalCode", func(p *model.Party, v string) { p.PostalCode = v }},
	FieldCity:        {"city", func(p *model.Party, v string) { p.City = v }},
	FieldCountry:     {"country", func(p *model.Party, v string) { p.Country = v }},
	FieldEmail:       {"email", func(p *model.Party, v string) { p.Email = v }},
	FieldPhone:       {"phone", func(p *model.Party, v string) { p.Phone = v }},
}

// String returns the JSON name of the field.
func (f PartyField) String() string {
	if spec, ok := partyFields[f]; ok {
		return spec.name
	}
	return "unknown"
}

// ParsePartyField maps a JSON field name to its PartyField.
func ParsePartyField(name string) (PartyField, error) {
	for field, spec := range partyFields {
		if spec.name == name {
			return field, nil
		}
	}
	return 0, model.ErrUnknownField
}

func setPartyField(p *model.Party, field PartyField, value string) error {
	spec, ok := partyFields[field]
	if !ok {
		return model.ErrUnknownField
	}
	spec.set(p, value)
	return nil
}

// PartyPatch carries optional replacements for party fields. Nil fields are
// left unchanged.
type PartyPatch struct {
	IsCompany   *bool   `json:"isCompany,omitempty"`
	CompanyName *string `json:"companyName,omitempty"`
	TaxID       *string `json:"oib,omitempty"`
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	Address     *string `json:"address,omitempty"`
	PostalCode  *string `json:"postalCode,omitempty"`
	City        *string `json:"city,omitempty"`
	Country     *string `json:"country,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

func (pp *PartyPatch) apply(p *model.Party) {
	if pp == nil {
		return
	}
	if pp.IsCompany != nil {
		p.IsCompany = *pp.IsCompany
	}

	fields := []struct {
		field PartyField
		value *string
	}{
		{FieldCompanyName, pp.CompanyName},
		{FieldTaxID, pp.TaxID},
		{FieldFirstName, pp.FirstName},
		{FieldLastName, pp.LastName},
		{FieldAddress, pp.Address},
		{FieldPostalCode, pp.PostalCode},
		{FieldCity, pp.City},
		{FieldCountry, pp.Country},
		{FieldEmail, pp.Email},
		{FieldPhone, pp.Phone},
	}
	for _, f := range fields {
		if f.value != nil {
			partyFields[f.field].set(p, *f.value)
		}
	}
}
