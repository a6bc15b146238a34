package app

import (
	"time"

	"inventory-engine/internal/core"
)

// ProductListResult holds all products.
type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// CategoryListResult holds all categories with their product ids.
type CategoryListResult struct {
	Categories []core.Category `json:"categories"`
}

// PartyListResult holds all parties, each with its sales orders.
type PartyListResult struct {
	Parties []core.Party `json:"parties"`
}

type PurchaseOrderListResult struct {
	Orders []core.PurchaseOrder `json:"purchase_orders"`
}

type SalesOrderListResult struct {
	Orders []core.SalesOrder `json:"sales_orders"`
}

type DispatchOrderListResult struct {
	Orders []core.DispatchOrder `json:"dispatch_orders"`
}

// PendencyResult holds the pendency rows. Stale is set when the last recalculation failed and
// the rows may lag behind committed orders.
type PendencyResult struct {
	Rows  []core.PendencyRow `json:"rows"`
	Stale bool               `json:"stale"`
}

// VerifyResult reports products whose stored pendency differs from a fresh computation.
type VerifyResult struct {
	InSync bool     `json:"in_sync"`
	Drift  []string `json:"drift_product_ids"`
}

// StockLine is one product's on-hand quantity.
type StockLine struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type StockResult struct {
	Lines []StockLine `json:"stock"`
}

type HealthResult struct {
	Status        string `json:"status"`
	PendencyStale bool   `json:"pendency_stale"`
}
