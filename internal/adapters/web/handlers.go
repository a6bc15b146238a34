package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"inventory-engine/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler holds the ApplicationService, the chi router and the request logger.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
	logger *logrus.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, logger *logrus.Logger, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))
	r.Use(Actor)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/health", h.health)

		// ── Catalog ───────────────────────────────────────────────────────────
		r.Get("/products", h.listProducts)
		r.Post("/products", h.createProduct)
		r.Get("/products/{id}", h.getProduct)
		r.Patch("/products/{id}", h.updateProduct)
		r.Delete("/products/{id}", h.deleteProduct)

		r.Get("/categories", h.listCategories)
		r.Post("/categories", h.createCategory)
		r.Get("/categories/{id}", h.getCategory)
		r.Delete("/categories/{id}", h.deleteCategory)
		r.Post("/categories/{id}/products/{productID}", h.addProductToCategory)
		r.Delete("/categories/{id}/products/{productID}", h.removeProductFromCategory)

		// ── Parties ───────────────────────────────────────────────────────────
		r.Get("/parties", h.listParties)
		r.Post("/parties", h.createParty)
		r.Get("/parties/{id}", h.getParty)
		r.Patch("/parties/{id}", h.updateParty)
		r.Delete("/parties/{id}", h.deleteParty)

		// ── Orders ────────────────────────────────────────────────────────────
		r.Get("/purchase-orders", h.listPurchaseOrders)
		r.Post("/purchase-orders", h.createPurchaseOrder)
		r.Get("/purchase-orders/{id}", h.getPurchaseOrder)

		r.Get("/sales-orders", h.listSalesOrders)
		r.Post("/sales-orders", h.createSalesOrder)
		r.Get("/sales-orders/{id}", h.getSalesOrder)

		r.Get("/dispatch-orders", h.listDispatchOrders)
		r.Post("/dispatch-orders", h.createDispatchOrder)
		r.Get("/dispatch-orders/{id}", h.getDispatchOrder)
		r.Post("/dispatch-orders/{id}/complete", h.completeDispatchOrder)

		// ── Pendency & stock ──────────────────────────────────────────────────
		r.Get("/pendency", h.getPendency)
		r.Post("/pendency/recalculate", h.recalculatePendency)
		r.Get("/pendency/verify", h.verifyPendency)
		r.Get("/stock", h.getStock)
	})

	h.router = r
	return r
}

// health returns 200 with the pendency freshness flag, or 503 when the database is unreachable.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Health(r.Context())
	if err != nil {
		h.logger.WithError(err).Warn("health check failed")
		writeError(w, r, "database unavailable", "UNAVAILABLE", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, result)
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// boolQuery parses an optional boolean query parameter. An absent parameter yields nil.
func boolQuery(w http.ResponseWriter, r *http.Request, name string) (*bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, r, name+" must be true or false", "BAD_REQUEST", http.StatusBadRequest)
		return nil, false
	}
	return &v, true
}
