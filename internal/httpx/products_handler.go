package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
	"github.com/ariefcatur/go-vendormart.git/internal/auth"
	"github.com/ariefcatur/go-vendormart.git/internal/catalog"
)

type ProductsHandler struct {
	Catalog *catalog.Repo
	MW      *AuthMiddleware
}

type productReq struct {
	ShopID     string `json:"shop_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int    `json:"price_cents"`
	// pointer so a partial update can tell "stock: 0" from an omitted field
	Stock *int `json:"stock"`
}

// applyProductUpdate merges the provided fields onto p; omitted fields keep
// their current value.
func applyProductUpdate(p *catalog.Product, req productReq) {
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Category != "" {
		p.Category = req.Category
	}
	if req.PriceCents > 0 {
		p.PriceCents = req.PriceCents
	}
	if req.Stock != nil && *req.Stock >= 0 {
		p.Stock = *req.Stock
	}
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Get("/products", h.list)
	r.Get("/products/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.MW.RequireUser, RequireRole(auth.RoleVendor))
		r.Post("/products", h.create)
		r.Put("/products/{id}", h.update)
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ps, err := h.Catalog.SearchProducts(r.Context(), q.Get("search"), q.Get("category"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, ps)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.ProductByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// ownShop: the acting vendor must own the product's shop.
func (h *ProductsHandler) ownShop(r *http.Request, shopID string) error {
	id := IdentityFrom(r.Context())
	if id.IsAdmin() {
		return nil
	}
	s, err := h.Catalog.ShopByID(r.Context(), shopID)
	if err != nil {
		return err
	}
	if s.OwnerID != id.UserID {
		return apperr.Forbidden("shop %s belongs to another vendor", shopID)
	}
	return nil
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	if req.ShopID == "" || req.Name == "" || req.PriceCents < 0 || req.Stock == nil || *req.Stock < 0 {
		writeError(w, apperr.Validation("shop_id, name and stock are required; price and stock must not be negative"))
		return
	}
	if err := h.ownShop(r, req.ShopID); err != nil {
		writeError(w, err)
		return
	}
	p := &catalog.Product{
		ShopID:     req.ShopID,
		Name:       req.Name,
		Category:   req.Category,
		PriceCents: req.PriceCents,
		Stock:      *req.Stock,
	}
	if err := h.Catalog.CreateProduct(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	p, err := h.Catalog.ProductByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.ownShop(r, p.ShopID); err != nil {
		writeError(w, err)
		return
	}
	applyProductUpdate(p, req)
	if err := h.Catalog.UpdateProduct(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, p)
}
