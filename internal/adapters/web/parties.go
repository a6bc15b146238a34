package web

import (
	"net/http"

	"inventory-engine/internal/core"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listParties(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListParties(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "listParties", err)
		return
	}
	writeJSON(w, result)
}

// createParty handles POST /api/parties.
// Body: { name, contact_number }
func (h *Handler) createParty(w http.ResponseWriter, r *http.Request) {
	var body core.NewParty
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := h.svc.CreateParty(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, "createParty", err)
		return
	}
	writeCreated(w, p)
}

// getParty handles GET /api/parties/{id}. The response includes the party's sales orders.
func (h *Handler) getParty(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetParty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "getParty", err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) updateParty(w http.ResponseWriter, r *http.Request) {
	var body core.PartyUpdate
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := h.svc.UpdateParty(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		h.writeServiceError(w, r, "updateParty", err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) deleteParty(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteParty(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, "deleteParty", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
