package app

import (
	"context"
	"fmt"

	"inventory-engine/internal/config"
	"inventory-engine/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type appService struct {
	pool       *pgxpool.Pool
	catalog    core.CatalogService
	parties    core.PartyService
	purchases  core.PurchaseOrderService
	sales      core.SalesOrderService
	dispatches core.DispatchService
	reconciler core.Reconciler
}

// NewAppService wires the core services over one pool and returns the ApplicationService.
func NewAppService(pool *pgxpool.Pool, cfg *config.Config, logger *logrus.Logger) ApplicationService {
	reconciler := core.NewReconciler(pool, logger, core.RetryPolicy{
		MaxAttempts: cfg.Reconcile.MaxAttempts,
		BaseBackoff: cfg.Reconcile.BaseBackoff,
		MaxBackoff:  cfg.Reconcile.MaxBackoff,
	})
	receipts := core.NewReceiptNumbering(pool)

	return &appService{
		pool:       pool,
		catalog:    core.NewCatalogService(pool, reconciler),
		parties:    core.NewPartyService(pool, cfg.PhoneRegion),
		purchases:  core.NewPurchaseOrderService(pool, reconciler),
		sales:      core.NewSalesOrderService(pool, reconciler, receipts),
		dispatches: core.NewDispatchService(pool, reconciler, receipts),
		reconciler: reconciler,
	}
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func (s *appService) CreateProduct(ctx context.Context, req core.NewProduct) (*core.Product, error) {
	return s.catalog.CreateProduct(ctx, req)
}

func (s *appService) UpdateProduct(ctx context.Context, id string, req core.ProductUpdate) (*core.Product, error) {
	return s.catalog.UpdateProduct(ctx, id, req)
}

func (s *appService) DeleteProduct(ctx context.Context, id string) error {
	return s.catalog.DeleteProduct(ctx, id)
}

func (s *appService) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	return s.catalog.GetProduct(ctx, id)
}

func (s *appService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: nonNil(products)}, nil
}

func (s *appService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*core.Category, error) {
	return s.catalog.CreateCategory(ctx, req.Name)
}

func (s *appService) DeleteCategory(ctx context.Context, id string) error {
	return s.catalog.DeleteCategory(ctx, id)
}

func (s *appService) GetCategory(ctx context.Context, id string) (*core.Category, error) {
	return s.catalog.GetCategory(ctx, id)
}

func (s *appService) ListCategories(ctx context.Context) (*CategoryListResult, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return &CategoryListResult{Categories: nonNil(categories)}, nil
}

func (s *appService) AddProductToCategory(ctx context.Context, categoryID, productID string) error {
	return s.catalog.AddProductToCategory(ctx, categoryID, productID)
}

func (s *appService) RemoveProductFromCategory(ctx context.Context, categoryID, productID string) error {
	return s.catalog.RemoveProductFromCategory(ctx, categoryID, productID)
}

// ── Parties ───────────────────────────────────────────────────────────────────

func (s *appService) CreateParty(ctx context.Context, req core.NewParty) (*core.Party, error) {
	return s.parties.CreateParty(ctx, req)
}

func (s *appService) UpdateParty(ctx context.Context, id string, req core.PartyUpdate) (*core.Party, error) {
	return s.parties.UpdateParty(ctx, id, req)
}

func (s *appService) DeleteParty(ctx context.Context, id string) error {
	return s.parties.DeleteParty(ctx, id)
}

func (s *appService) GetParty(ctx context.Context, id string) (*core.Party, error) {
	return s.parties.GetParty(ctx, id)
}

func (s *appService) ListParties(ctx context.Context) (*PartyListResult, error) {
	parties, err := s.parties.ListParties(ctx)
	if err != nil {
		return nil, err
	}
	return &PartyListResult{Parties: nonNil(parties)}, nil
}

// ── Orders ────────────────────────────────────────────────────────────────────

func (s *appService) CreatePurchaseOrder(ctx context.Context, req core.NewPurchaseOrder) (*core.PurchaseOrder, error) {
	return s.purchases.CreatePurchaseOrder(ctx, req)
}

func (s *appService) GetPurchaseOrder(ctx context.Context, id string) (*core.PurchaseOrder, error) {
	return s.purchases.GetPurchaseOrder(ctx, id)
}

func (s *appService) ListPurchaseOrders(ctx context.Context) (*PurchaseOrderListResult, error) {
	orders, err := s.purchases.ListPurchaseOrders(ctx)
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderListResult{Orders: nonNil(orders)}, nil
}

func (s *appService) CreateSalesOrder(ctx context.Context, req core.NewSalesOrder) (*core.SalesOrder, error) {
	return s.sales.CreateSalesOrder(ctx, req)
}

func (s *appService) GetSalesOrder(ctx context.Context, id string) (*core.SalesOrder, error) {
	return s.sales.GetSalesOrder(ctx, id)
}

func (s *appService) ListSalesOrders(ctx context.Context, dispatched *bool) (*SalesOrderListResult, error) {
	orders, err := s.sales.ListSalesOrders(ctx, dispatched)
	if err != nil {
		return nil, err
	}
	return &SalesOrderListResult{Orders: nonNil(orders)}, nil
}

func (s *appService) CreateDispatchOrder(ctx context.Context, req core.NewDispatchOrder) (*core.DispatchOrder, error) {
	return s.dispatches.CreateDispatchOrder(ctx, req)
}

func (s *appService) CompleteDispatchOrder(ctx context.Context, id string, req CompleteDispatchRequest) (*core.DispatchReceipt, error) {
	return s.dispatches.CompleteDispatchOrder(ctx, id, req.VehicleNumber)
}

func (s *appService) GetDispatchOrder(ctx context.Context, id string) (*core.DispatchOrder, error) {
	return s.dispatches.GetDispatchOrder(ctx, id)
}

func (s *appService) ListDispatchOrders(ctx context.Context, completed *bool) (*DispatchOrderListResult, error) {
	orders, err := s.dispatches.ListDispatchOrders(ctx, completed)
	if err != nil {
		return nil, err
	}
	return &DispatchOrderListResult{Orders: nonNil(orders)}, nil
}

// ── Pendency & stock ──────────────────────────────────────────────────────────

func (s *appService) GetPendency(ctx context.Context) (*PendencyResult, error) {
	rows, err := s.reconciler.ListPendency(ctx)
	if err != nil {
		return nil, err
	}
	return &PendencyResult{Rows: nonNil(rows), Stale: s.reconciler.Stale()}, nil
}

func (s *appService) RecalculatePendency(ctx context.Context) (*PendencyResult, error) {
	if _, err := s.reconciler.Recalculate(ctx); err != nil {
		return nil, err
	}
	// Re-read so the rows carry product and category names.
	return s.GetPendency(ctx)
}

func (s *appService) VerifyPendency(ctx context.Context) (*VerifyResult, error) {
	drift, err := s.reconciler.Verify(ctx)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{InSync: len(drift) == 0, Drift: nonNil(drift)}, nil
}

func (s *appService) RunReconciler(ctx context.Context) {
	s.reconciler.Run(ctx)
}

func (s *appService) GetStock(ctx context.Context) (*StockResult, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	lines := make([]StockLine, 0, len(products))
	for _, p := range products {
		lines = append(lines, StockLine{ProductID: p.ID, ProductName: p.Name, Quantity: p.Quantity, UpdatedAt: p.UpdatedAt})
	}
	return &StockResult{Lines: lines}, nil
}

func (s *appService) Health(ctx context.Context) (*HealthResult, error) {
	if err := s.pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return &HealthResult{Status: "ok", PendencyStale: s.reconciler.Stale()}, nil
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
