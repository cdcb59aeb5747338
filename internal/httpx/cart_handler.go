package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
	"github.com/ariefcatur/go-vendormart.git/internal/cart"
	"github.com/ariefcatur/go-vendormart.git/internal/catalog"
)

type CartHandler struct {
	Carts   cart.Store
	Catalog *catalog.Repo
	MW      *AuthMiddleware
}

type addToCartReq struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	Variant  string `json:"variant,omitempty"`
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(h.MW.RequireUser)
		r.Get("/cart", h.get)
		r.Post("/cart", h.add)
		r.Delete("/cart/{productID}", h.remove)
		r.Delete("/cart", h.clear)
	})
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	items, err := h.Carts.Get(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	total := 0
	for _, it := range items {
		total += it.PriceCents * it.Qty
	}
	writeData(w, http.StatusOK, map[string]any{"items": items, "total_cents": total})
}

// add snapshots the current unit price onto the line; checkout charges the
// snapshot even if the vendor changes the price later.
func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addToCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	if req.Product == "" || req.Quantity < 1 {
		writeError(w, apperr.Validation("product and a quantity of at least 1 are required"))
		return
	}
	p, err := h.Catalog.ProductByID(r.Context(), req.Product)
	if err != nil {
		writeError(w, err)
		return
	}

	id := IdentityFrom(r.Context())
	items, err := h.Carts.Get(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	items = cart.Merge(items, cart.Item{
		ProductID:  p.ID,
		Qty:        req.Quantity,
		Variant:    req.Variant,
		PriceCents: p.PriceCents,
	})
	if err := h.Carts.Put(r.Context(), id.UserID, items); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	items, err := h.Carts.Get(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	items = cart.Remove(items, chi.URLParam(r, "productID"), r.URL.Query().Get("variant"))
	if err := h.Carts.Put(r.Context(), id.UserID, items); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	if err := h.Carts.Clear(r.Context(), id.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, []cart.Item{})
}
