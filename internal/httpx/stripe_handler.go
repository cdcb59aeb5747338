package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
	"github.com/ariefcatur/go-vendormart.git/internal/metrics"
	"github.com/ariefcatur/go-vendormart.git/internal/orders"
)

type StripeHandler struct {
	Service *orders.Service
	Metrics *metrics.ServerMetrics
	MW      *AuthMiddleware
}

type checkoutReq struct {
	ShippingAddress orders.ShippingAddress `json:"shippingAddress"`
}

type verifyPaymentReq struct {
	SessionID string `json:"sessionId"`
}

func (h *StripeHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(h.MW.RequireUser)
		r.Post("/stripe/create-checkout-session", h.createSession)
		r.Post("/stripe/verify-payment", h.verifyPayment)
	})
}

func (h *StripeHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	id := IdentityFrom(r.Context())
	sess, err := h.Service.CheckoutSession(r.Context(), id.UserID, req.ShippingAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": sess.ID, "url": sess.URL})
}

func (h *StripeHandler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	id := IdentityFrom(r.Context())
	o, created, err := h.Service.VerifyPayment(r.Context(), id.UserID, req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if created && h.Metrics != nil {
		h.Metrics.OrdersPlaced.Inc()
	}
	writeData(w, http.StatusOK, o)
}
