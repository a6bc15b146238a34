package core_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"inventory-engine/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type testEnv struct {
	ctx        context.Context
	pool       *pgxpool.Pool
	catalog    core.CatalogService
	parties    core.PartyService
	purchases  core.PurchaseOrderService
	sales      core.SalesOrderService
	dispatches core.DispatchService
	reconciler core.Reconciler
	receipts   core.ReceiptNumbering
}

func setupTestDB(t *testing.T) *testEnv {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database: every test truncates all tables.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	files, err := filepath.Glob("../../migrations/*.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("Failed to find migrations: %v", err)
	}
	sort.Strings(files)
	for _, f := range files {
		schema, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", f, err)
		}
		if _, err := pool.Exec(ctx, string(schema)); err != nil {
			t.Fatalf("Failed to apply %s: %v", f, err)
		}
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE pendency, dispatch_order_items, dispatch_orders, sales_order_items, sales_orders,
			purchase_order_items, purchase_orders, receipt_sequences, parties, products, categories CASCADE;
	`)
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reconciler := core.NewReconciler(pool, logger, core.RetryPolicy{BaseBackoff: 10 * time.Millisecond, MaxBackoff: 100 * time.Millisecond})
	receipts := core.NewReceiptNumbering(pool)
	return &testEnv{
		ctx:        ctx,
		pool:       pool,
		catalog:    core.NewCatalogService(pool, reconciler),
		parties:    core.NewPartyService(pool, "IN"),
		purchases:  core.NewPurchaseOrderService(pool, reconciler),
		sales:      core.NewSalesOrderService(pool, reconciler, receipts),
		dispatches: core.NewDispatchService(pool, reconciler, receipts),
		reconciler: reconciler,
		receipts:   receipts,
	}
}

func (e *testEnv) mustCategory(t *testing.T, name string) *core.Category {
	t.Helper()
	c, err := e.catalog.CreateCategory(e.ctx, name)
	if err != nil {
		t.Fatalf("CreateCategory(%q) failed: %v", name, err)
	}
	return c
}

func (e *testEnv) mustProduct(t *testing.T, name string, qty int, categoryID *string) *core.Product {
	t.Helper()
	p, err := e.catalog.CreateProduct(e.ctx, core.NewProduct{Name: name, Quantity: qty, CategoryID: categoryID})
	if err != nil {
		t.Fatalf("CreateProduct(%q) failed: %v", name, err)
	}
	return p
}

func (e *testEnv) mustParty(t *testing.T, name string) *core.Party {
	t.Helper()
	p, err := e.parties.CreateParty(e.ctx, core.NewParty{Name: name, ContactNumber: "98765 43210"})
	if err != nil {
		t.Fatalf("CreateParty(%q) failed: %v", name, err)
	}
	return p
}

func (e *testEnv) mustSalesOrder(t *testing.T, partyID string, items ...core.OrderItemInput) *core.SalesOrder {
	t.Helper()
	so, err := e.sales.CreateSalesOrder(e.ctx, core.NewSalesOrder{PartyID: partyID, Items: items})
	if err != nil {
		t.Fatalf("CreateSalesOrder failed: %v", err)
	}
	return so
}

func (e *testEnv) quantity(t *testing.T, productID string) int {
	t.Helper()
	p, err := e.catalog.GetProduct(e.ctx, productID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	return p.Quantity
}

func (e *testEnv) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := e.pool.QueryRow(e.ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("count %s failed: %v", table, err)
	}
	return n
}

func expectKind(t *testing.T, err error, want error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected %v error, got %v (%s)", want, err, core.KindOf(err))
	}
}

func item(productID string, qty int) core.OrderItemInput {
	return core.OrderItemInput{ProductID: productID, Quantity: qty}
}
