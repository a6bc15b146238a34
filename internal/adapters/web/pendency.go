package web

import "net/http"

// getPendency handles GET /api/pendency. The stale flag tells the client that a background
// retry is still pending.
func (h *Handler) getPendency(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetPendency(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "getPendency", err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) recalculatePendency(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RecalculatePendency(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "recalculatePendency", err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) verifyPendency(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.VerifyPendency(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "verifyPendency", err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetStock(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "getStock", err)
		return
	}
	writeJSON(w, result)
}
