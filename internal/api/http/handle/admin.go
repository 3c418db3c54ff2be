package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"casaluna/internal/auth"
	"casaluna/internal/order/app/services"
	"casaluna/internal/order/domain/dto"
	"casaluna/internal/xpkg/logger"
)

type AdminHandler struct {
	orderService *services.OrderService
	verifier     *auth.Verifier
	mylog        logger.Logger
}

func NewAdminHandler(orderService *services.OrderService, verifier *auth.Verifier, mylog logger.Logger) *AdminHandler {
	return &AdminHandler{
		orderService: orderService,
		verifier:     verifier,
		mylog:        mylog,
	}
}

// credential pulls the bearer token from the Authorization header, falling
// back to the token query parameter for EventSource clients that cannot set
// headers.
func credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Secure wraps a handler with the admin token check.
func (ah *AdminHandler) Secure(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ah.verifier.Verify(credential(r)); err != nil {
			ah.mylog.Action("auth_failed").Warn("Rejected admin request", "path", r.URL.Path)
			jsonError(w, http.StatusUnauthorized, err)
			return
		}
		next(w, r)
	}
}

func (ah *AdminHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := ah.orderService.List(r.Context())
		if err != nil {
			jsonError(w, statusFor(err), err)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{"orders": orders})
	}
}

func (ah *AdminHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := orderID(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		var req dto.UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		order, err := ah.orderService.UpdateStatus(r.Context(), id, req.Status)
		if err != nil {
			jsonError(w, statusFor(err), err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}
