package web

import (
	"net/http"

	"inventory-engine/internal/app"
	"inventory-engine/internal/core"

	"github.com/go-chi/chi/v5"
)

// ── Products ──────────────────────────────────────────────────────────────────

// listProducts handles GET /api/products.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "listProducts", err)
		return
	}
	writeJSON(w, result)
}

// createProduct handles POST /api/products.
// Body: { name, quantity, category_id? }
func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var body core.NewProduct
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, "createProduct", err)
		return
	}
	writeCreated(w, p)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "getProduct", err)
		return
	}
	writeJSON(w, p)
}

// updateProduct handles PATCH /api/products/{id}. Omitted fields are left unchanged.
func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var body core.ProductUpdate
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		h.writeServiceError(w, r, "updateProduct", err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, "deleteProduct", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Categories ────────────────────────────────────────────────────────────────

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCategories(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "listCategories", err)
		return
	}
	writeJSON(w, result)
}

// createCategory handles POST /api/categories.
// Body: { name }
func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var body app.CreateCategoryRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, "createCategory", err)
		return
	}
	writeCreated(w, c)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "getCategory", err)
		return
	}
	writeJSON(w, c)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, "deleteCategory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addProductToCategory handles POST /api/categories/{id}/products/{productID}.
func (h *Handler) addProductToCategory(w http.ResponseWriter, r *http.Request) {
	err := h.svc.AddProductToCategory(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		h.writeServiceError(w, r, "addProductToCategory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// removeProductFromCategory handles DELETE /api/categories/{id}/products/{productID}.
func (h *Handler) removeProductFromCategory(w http.ResponseWriter, r *http.Request) {
	err := h.svc.RemoveProductFromCategory(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		h.writeServiceError(w, r, "removeProductFromCategory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
