package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string       `json:"error"`
	Message       string       `json:"message"`
	Fields        []FieldError `json:"fields,omitempty"`
	CorrelationID string       `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeMissingField         = "MISSING_FIELD"
	ErrCodeValidation           = "VALIDATION_FAILED"
	ErrCodeInvalidCoupon        = "INVALID_COUPON"
	ErrCodeInvalidCouponLength  = "INVALID_COUPON_LENGTH"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeItemNotFound         = "ITEM_NOT_FOUND"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeInvalidCart          = "INVALID_CART"
	ErrCodeInvalidCartLine      = "INVALID_CART_LINE"
	ErrCodeEmptyCart            = "EMPTY_CART"
	ErrCodeTermsNotAccepted     = "TERMS_NOT_ACCEPTED"
	ErrCodeSubmissionInProgress = "SUBMISSION_IN_PROGRESS"
	ErrCodeSubmissionAbandoned  = "SUBMISSION_ABANDONED"
	ErrCodeSearchSuperseded     = "SEARCH_SUPERSEDED"
	ErrCodeInvalidPayment       = "INVALID_PAYMENT_METHOD"
	ErrCodeInvalidCardType      = "INVALID_CARD_TYPE"
	ErrCodeInvalidInstallments  = "INVALID_INSTALLMENTS"
	ErrCodeUnknownField         = "UNKNOWN_FIELD"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// DomainError is a business-rule failure carrying a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidCoupon        = NewDomainError(ErrCodeInvalidCoupon, "Coupon code is not valid")
	ErrInvalidCouponLength  = NewDomainError(ErrCodeInvalidCouponLength, "Coupon code must be between 8 and 10 characters")
	ErrProductNotFound      = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrItemNotFound         = NewDomainError(ErrCodeItemNotFound, "Item is not in the cart")
	ErrInvalidQuantity      = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidCart          = NewDomainError(ErrCodeInvalidCart, "Cart contains invalid or duplicate lines")
	ErrInvalidCartLine      = NewDomainError(ErrCodeInvalidCartLine, "Cart line must have the form <id>|<quantity>")
	ErrEmptyCart            = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrTermsNotAccepted     = NewDomainError(ErrCodeTermsNotAccepted, "Terms of sale must be accepted")
	ErrSubmissionInProgress = NewDomainError(ErrCodeSubmissionInProgress, "A checkout submission is already in progress")
	ErrSubmissionAbandoned  = NewDomainError(ErrCodeSubmissionAbandoned, "Checkout was abandoned")
	ErrSearchSuperseded     = NewDomainError(ErrCodeSearchSuperseded, "Search was superseded by a newer query")
	ErrInvalidPaymentMethod = NewDomainError(ErrCodeInvalidPayment, "Payment method must be invoice, cash-on-delivery or card")
	ErrInvalidCardType      = NewDomainError(ErrCodeInvalidCardType, "Card type is not supported")
	ErrInvalidInstallments  = NewDomainError(ErrCodeInvalidInstallments, "Installments must be between 1 and 24")
	ErrUnknownField         = NewDomainError(ErrCodeUnknownField, "Unknown form field")
	ErrAlertNotFound        = NewDomainError(ErrCodeNotFound, "Alert not found")
)

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + e.Fields[0].Field + " " + e.Fields[0].Reason
}
