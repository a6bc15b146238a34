package app

import (
	"context"

	"inventory-engine/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// ── Catalog ──────────────────────────────────────────────────────────────
	CreateProduct(ctx context.Context, req core.NewProduct) (*core.Product, error)
	UpdateProduct(ctx context.Context, id string, req core.ProductUpdate) (*core.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	GetProduct(ctx context.Context, id string) (*core.Product, error)
	ListProducts(ctx context.Context) (*ProductListResult, error)

	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*core.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	GetCategory(ctx context.Context, id string) (*core.Category, error)
	ListCategories(ctx context.Context) (*CategoryListResult, error)
	AddProductToCategory(ctx context.Context, categoryID, productID string) error
	RemoveProductFromCategory(ctx context.Context, categoryID, productID string) error

	// ── Parties ──────────────────────────────────────────────────────────────
	CreateParty(ctx context.Context, req core.NewParty) (*core.Party, error)
	UpdateParty(ctx context.Context, id string, req core.PartyUpdate) (*core.Party, error)
	DeleteParty(ctx context.Context, id string) error
	// GetParty includes the party's sales orders, newest first.
	GetParty(ctx context.Context, id string) (*core.Party, error)
	ListParties(ctx context.Context) (*PartyListResult, error)

	// ── Orders ───────────────────────────────────────────────────────────────
	CreatePurchaseOrder(ctx context.Context, req core.NewPurchaseOrder) (*core.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, id string) (*core.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context) (*PurchaseOrderListResult, error)

	CreateSalesOrder(ctx context.Context, req core.NewSalesOrder) (*core.SalesOrder, error)
	GetSalesOrder(ctx context.Context, id string) (*core.SalesOrder, error)
	ListSalesOrders(ctx context.Context, dispatched *bool) (*SalesOrderListResult, error)

	// CreateDispatchOrder reserves stock for a sales order by decrementing it immediately.
	CreateDispatchOrder(ctx context.Context, req core.NewDispatchOrder) (*core.DispatchOrder, error)
	// CompleteDispatchOrder assigns the vehicle and marks the sales order dispatched.
	CompleteDispatchOrder(ctx context.Context, id string, req CompleteDispatchRequest) (*core.DispatchReceipt, error)
	GetDispatchOrder(ctx context.Context, id string) (*core.DispatchOrder, error)
	ListDispatchOrders(ctx context.Context, completed *bool) (*DispatchOrderListResult, error)

	// ── Pendency ─────────────────────────────────────────────────────────────
	GetPendency(ctx context.Context) (*PendencyResult, error)
	// RecalculatePendency rebuilds the pendency table now and returns the new rows.
	RecalculatePendency(ctx context.Context) (*PendencyResult, error)
	VerifyPendency(ctx context.Context) (*VerifyResult, error)
	// RunReconciler blocks, retrying failed recalculations until ctx is cancelled.
	RunReconciler(ctx context.Context)

	// GetStock returns every product's on-hand quantity.
	GetStock(ctx context.Context) (*StockResult, error)
	// Health pings the database and reports whether pendency is current.
	Health(ctx context.Context) (*HealthResult, error)
}
