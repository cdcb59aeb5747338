package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
	"github.com/ariefcatur/go-vendormart.git/internal/auth"
	"github.com/ariefcatur/go-vendormart.git/internal/catalog"
)

type ShopsHandler struct {
	Catalog *catalog.Repo
	MW      *AuthMiddleware
}

type shopReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *ShopsHandler) Register(r *chi.Mux) {
	r.Get("/shops", h.list)
	r.Get("/shops/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.MW.RequireUser, RequireRole(auth.RoleVendor))
		r.Post("/shops", h.create)
		r.Put("/shops/{id}", h.update)
	})
}

func (h *ShopsHandler) list(w http.ResponseWriter, r *http.Request) {
	shops, err := h.Catalog.ListShops(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, shops)
}

func (h *ShopsHandler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Catalog.ShopByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, s)
}

func (h *ShopsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req shopReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	if req.Name == "" {
		writeError(w, apperr.Validation("shop name is required"))
		return
	}
	id := IdentityFrom(r.Context())
	s, err := h.Catalog.CreateShop(r.Context(), id.UserID, req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, s)
}

func (h *ShopsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req shopReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	s, err := h.Catalog.ShopByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	id := IdentityFrom(r.Context())
	if !id.IsAdmin() && s.OwnerID != id.UserID {
		writeError(w, apperr.Forbidden("shop %s belongs to another vendor", s.ID))
		return
	}
	if req.Name != "" {
		s.Name = req.Name
	}
	if req.Description != "" {
		s.Description = req.Description
	}
	if err := h.Catalog.UpdateShop(r.Context(), s); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, s)
}
