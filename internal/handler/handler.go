package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"kasa/internal/middleware"
	"kasa/internal/model"

	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	writeErrorFields(w, r, status, code, message, nil, logger)
}

func writeErrorFields(w http.ResponseWriter, r *http.Request, status int, code, message string, fields []model.FieldError, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Int("status", status).Str("error", message).Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		Fields:        fields,
		CorrelationID: middleware.RequestIDFromContext(r.Context()),
	})
}

// writeDomainError maps known errors to their status and a stable code.
// Anything else is a 500 with a generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		writeErrorFields(w, r, http.StatusBadRequest, model.ErrCodeValidation, verr.Error(), verr.Fields, logger)
		return
	}

	var derr *model.DomainError
	if !errors.As(err, &derr) {
		logger.Error().Err(err).Msg("unexpected error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}

	var fields []model.FieldError
	switch derr.Code {
	case model.ErrCodeInvalidCoupon:
		fields = []model.FieldError{{Field: "coupon", Reason: "invalid"}}
	case model.ErrCodeInvalidCouponLength:
		fields = []model.FieldError{{Field: "coupon", Reason: "length"}}
	case model.ErrCodeTermsNotAccepted:
		fields = []model.FieldError{{Field: "terms", Reason: "required"}}
	case model.ErrCodeEmptyCart, model.ErrCodeInvalidCartLine:
		fields = []model.FieldError{{Field: "cart", Reason: "invalid"}}
	}

	writeErrorFields(w, r, statusFor(derr.Code), derr.Code, derr.Message, fields, logger)
}

func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalidCoupon, model.ErrCodeInvalidCouponLength:
		return http.StatusUnprocessableEntity
	case model.ErrCodeProductNotFound, model.ErrCodeItemNotFound, model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeSubmissionInProgress, model.ErrCodeSubmissionAbandoned, model.ErrCodeSearchSuperseded:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
