package order

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"kasa/internal/model"

	"github.com/go-playground/validator/v10"
)

// Field names reported for the non-party parts of the form.
const (
	FieldNamePaymentMethod = "paymentMethod"
	FieldNameCardType      = "cardType"
	FieldNameInstallments  = "installments"
	FieldNameTerms         = "terms"
	FieldNameCart          = "cart"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()/-]{6,20}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate reports every invalid field of the draft in form order: buyer
// data, shipping data when it is used, payment, then terms. An empty result
// means the draft may be submitted.
func Validate(draft model.OrderDraft) []model.FieldError {
	var invalid []model.FieldError

	invalid = append(invalid, validateParty(PaymentParty, draft.PaymentData)...)
	if draft.UseShippingData {
		invalid = append(invalid, validateParty(ShippingParty, draft.ShippingData)...)
	}

	if !draft.PaymentMethod.Valid() {
		invalid = append(invalid, model.FieldError{Field: FieldNamePaymentMethod, Reason: "oneof"})
	}
	if draft.PaymentMethod == model.PaymentCard {
		if !draft.CardType.Valid() {
			invalid = append(invalid, model.FieldError{Field: FieldNameCardType, Reason: "oneof"})
		}
		if draft.Installments < model.MinInstallments || draft.Installments > model.MaxInstallments {
			invalid = append(invalid, model.FieldError{Field: FieldNameInstallments, Reason: "range"})
		}
	}

	if !draft.Terms {
		invalid = append(invalid, model.FieldError{Field: FieldNameTerms, Reason: "required"})
	}

	return invalid
}

func validateParty(target Target, p model.Party) []model.FieldError {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []model.FieldError{{Field: target.String(), Reason: "invalid"}}
	}

	out := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, model.FieldError{
			Field:  target.String() + "." + fe.Field(),
			Reason: reason(fe.Tag()),
		})
	}
	return out
}

// reason folds conditional tags into the plain presence check they express.
func reason(tag string) string {
	if strings.HasPrefix(tag, "required") {
		return "required"
	}
	return tag
}
