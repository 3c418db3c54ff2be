package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"casaluna/internal/auth"
	ordercore "casaluna/internal/order/app/core"
	rescore "casaluna/internal/reservation/app/core"
)

// jsonResponse writes data as a JSON body with the given status code.
func jsonResponse(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// jsonError writes the error as a machine-readable JSON body. Validation
// errors carry the failing field.
func jsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}

	body := map[string]any{
		"error": err.Error(),
		"code":  code,
	}
	var ove *ordercore.ValidationError
	var rve *rescore.ValidationError
	switch {
	case errors.As(err, &ove):
		body["field"] = ove.Field
	case errors.As(err, &rve):
		body["field"] = rve.Field
	}
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ordercore.ErrValidation),
		errors.Is(err, rescore.ErrValidation),
		errors.Is(err, ordercore.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ordercore.ErrVerification):
		return http.StatusForbidden
	case errors.Is(err, ordercore.ErrOrderNotFound),
		errors.Is(err, ordercore.ErrMenuItemNotFound),
		errors.Is(err, rescore.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, rescore.ErrSlotFull):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
