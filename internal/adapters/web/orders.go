package web

import (
	"net/http"

	"inventory-engine/internal/app"
	"inventory-engine/internal/core"

	"github.com/go-chi/chi/v5"
)

// ── Purchase orders ───────────────────────────────────────────────────────────

func (h *Handler) listPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListPurchaseOrders(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "listPurchaseOrders", err)
		return
	}
	writeJSON(w, result)
}

// createPurchaseOrder handles POST /api/purchase-orders.
// Body: { items: [{product_id, quantity}] }
func (h *Handler) createPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var body core.NewPurchaseOrder
	if !decodeJSON(w, r, &body) {
		return
	}
	po, err := h.svc.CreatePurchaseOrder(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, "createPurchaseOrder", err)
		return
	}
	writeCreated(w, po)
}

func (h *Handler) getPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.svc.GetPurchaseOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "getPurchaseOrder", err)
		return
	}
	writeJSON(w, po)
}

// ── Sales orders ──────────────────────────────────────────────────────────────

// listSalesOrders handles GET /api/sales-orders?dispatched=true|false.
func (h *Handler) listSalesOrders(w http.ResponseWriter, r *http.Request) {
	dispatched, ok := boolQuery(w, r, "dispatched")
	if !ok {
		return
	}
	result, err := h.svc.ListSalesOrders(r.Context(), dispatched)
	if err != nil {
		h.writeServiceError(w, r, "listSalesOrders", err)
		return
	}
	writeJSON(w, result)
}

// createSalesOrder handles POST /api/sales-orders.
// Body: { party_id, items: [{product_id, quantity}] }
func (h *Handler) createSalesOrder(w http.ResponseWriter, r *http.Request) {
	var body core.NewSalesOrder
	if !decodeJSON(w, r, &body) {
		return
	}
	so, err := h.svc.CreateSalesOrder(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, "createSalesOrder", err)
		return
	}
	writeCreated(w, so)
}

func (h *Handler) getSalesOrder(w http.ResponseWriter, r *http.Request) {
	so, err := h.svc.GetSalesOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "getSalesOrder", err)
		return
	}
	writeJSON(w, so)
}

// ── Dispatch orders ───────────────────────────────────────────────────────────

// listDispatchOrders handles GET /api/dispatch-orders?completed=true|false.
func (h *Handler) listDispatchOrders(w http.ResponseWriter, r *http.Request) {
	completed, ok := boolQuery(w, r, "completed")
	if !ok {
		return
	}
	result, err := h.svc.ListDispatchOrders(r.Context(), completed)
	if err != nil {
		h.writeServiceError(w, r, "listDispatchOrders", err)
		return
	}
	writeJSON(w, result)
}

// createDispatchOrder handles POST /api/dispatch-orders.
// Body: { sales_order_id, vehicle_number?, items: [{product_id, product_name, quantity}] }
// Insufficient stock is reported as 422 and nothing is decremented.
func (h *Handler) createDispatchOrder(w http.ResponseWriter, r *http.Request) {
	var body core.NewDispatchOrder
	if !decodeJSON(w, r, &body) {
		return
	}
	d, err := h.svc.CreateDispatchOrder(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, "createDispatchOrder", err)
		return
	}
	writeCreated(w, d)
}

func (h *Handler) getDispatchOrder(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetDispatchOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "getDispatchOrder", err)
		return
	}
	writeJSON(w, d)
}

// completeDispatchOrder handles POST /api/dispatch-orders/{id}/complete.
// Body: { vehicle_number }
func (h *Handler) completeDispatchOrder(w http.ResponseWriter, r *http.Request) {
	var body app.CompleteDispatchRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	receipt, err := h.svc.CompleteDispatchOrder(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		h.writeServiceError(w, r, "completeDispatchOrder", err)
		return
	}
	writeJSON(w, receipt)
}
