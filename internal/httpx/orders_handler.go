package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
	"github.com/ariefcatur/go-vendormart.git/internal/auth"
	"github.com/ariefcatur/go-vendormart.git/internal/metrics"
	"github.com/ariefcatur/go-vendormart.git/internal/orders"
)

type OrdersHandler struct {
	Service *orders.Service
	Metrics *metrics.ServerMetrics
	MW      *AuthMiddleware
}

type createOrderReq struct {
	Products []struct {
		Product  string `json:"product"`
		Quantity int    `json:"quantity"`
	} `json:"products"`
	ShippingAddress orders.ShippingAddress `json:"shippingAddress"`
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(h.MW.RequireUser)
		r.Post("/orders", h.create)
		r.Get("/orders/myorders", h.myOrders)
		r.Get("/orders/{id}", h.get)
		r.Put("/orders/{id}/cancel", h.cancel)
		r.With(RequireRole(auth.RoleVendor)).Get("/orders/vendor", h.vendorOrders)
		r.With(RequireRole(auth.RoleVendor)).Put("/orders/{id}/status", h.updateStatus)
		r.With(RequireRole()).Get("/orders", h.allOrders) // admin only
	})
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	lines := make([]orders.RequestedLine, 0, len(req.Products))
	for _, p := range req.Products {
		lines = append(lines, orders.RequestedLine{ProductID: p.Product, Qty: p.Quantity})
	}

	id := IdentityFrom(r.Context())
	o, err := h.Service.PlaceOrder(r.Context(), id.UserID, lines, req.ShippingAddress)
	if err != nil {
		if h.Metrics != nil && apperr.KindOf(err) == apperr.KindInsufficientStock {
			h.Metrics.StockRejections.Inc()
		}
		writeError(w, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.OrdersPlaced.Inc()
	}
	writeData(w, http.StatusCreated, o)
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	out, err := h.Service.MyOrders(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

// vendorOrders lists the acting vendor's sub-orders, newest first.
func (h *OrdersHandler) vendorOrders(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	out, err := h.Service.VendorSubOrders(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *OrdersHandler) allOrders(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.AllOrders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	o, err := h.Service.GetOrder(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	status, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	id := IdentityFrom(r.Context())
	sub, ord, err := h.Service.UpdateStatus(r.Context(), id, chi.URLParam(r, "id"), status)
	if err != nil {
		writeError(w, err)
		return
	}
	if sub != nil {
		writeData(w, http.StatusOK, sub)
		return
	}
	writeData(w, http.StatusOK, ord)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	o, err := h.Service.Cancel(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, o)
}
