package core_test

import (
	"math"
	"sync"
	"testing"

	"inventory-engine/internal/core"

	"github.com/google/uuid"
)

func TestPurchaseOrder_IncrementsStock(t *testing.T) {
	env := setupTestDB(t)
	a := env.mustProduct(t, "Cable", 3, nil)
	b := env.mustProduct(t, "Plug", 0, nil)

	ctx := core.WithActor(env.ctx, "clerk-7")
	po, err := env.purchases.CreatePurchaseOrder(ctx, core.NewPurchaseOrder{
		Items: []core.OrderItemInput{item(a.ID, 5), item(b.ID, 2), item(a.ID, 1)},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder failed: %v", err)
	}
	if po.CreatedBy == nil || *po.CreatedBy != "clerk-7" {
		t.Errorf("expected created_by clerk-7, got %v", po.CreatedBy)
	}
	if len(po.Items) != 3 || po.Items[2].LineNumber != 3 {
		t.Errorf("expected 3 ordered lines, got %+v", po.Items)
	}
	if got := env.quantity(t, a.ID); got != 9 {
		t.Errorf("Cable: expected 9, got %d", got)
	}
	if got := env.quantity(t, b.ID); got != 2 {
		t.Errorf("Plug: expected 2, got %d", got)
	}

	fetched, err := env.purchases.GetPurchaseOrder(env.ctx, po.ID)
	if err != nil {
		t.Fatalf("GetPurchaseOrder failed: %v", err)
	}
	if len(fetched.Items) != 3 || fetched.Items[0].ProductName != "Cable" {
		t.Errorf("unexpected fetched items %+v", fetched.Items)
	}
	list, err := env.purchases.ListPurchaseOrders(env.ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListPurchaseOrders: expected 1 order, got %d (%v)", len(list), err)
	}
}

func TestPurchaseOrder_UnknownProductRollsBack(t *testing.T) {
	env := setupTestDB(t)
	a := env.mustProduct(t, "Cable", 3, nil)

	_, err := env.purchases.CreatePurchaseOrder(env.ctx, core.NewPurchaseOrder{
		Items: []core.OrderItemInput{item(a.ID, 5), item(uuid.NewString(), 1)},
	})
	expectKind(t, err, core.ErrNotFound)
	if got := env.quantity(t, a.ID); got != 3 {
		t.Errorf("stock must be unchanged, got %d", got)
	}
	if n := env.count(t, "purchase_orders"); n != 0 {
		t.Errorf("expected no purchase order header, got %d", n)
	}

	_, err = env.purchases.CreatePurchaseOrder(env.ctx, core.NewPurchaseOrder{})
	expectKind(t, err, core.ErrInvalidArgument)
	_, err = env.purchases.CreatePurchaseOrder(env.ctx, core.NewPurchaseOrder{Items: []core.OrderItemInput{item(a.ID, 0)}})
	expectKind(t, err, core.ErrInvalidArgument)
}

func TestPurchaseOrder_QuantityOverflow(t *testing.T) {
	env := setupTestDB(t)
	a := env.mustProduct(t, "Washer", math.MaxInt32-1, nil)
	b := env.mustProduct(t, "Nut", 4, nil)

	_, err := env.purchases.CreatePurchaseOrder(env.ctx, core.NewPurchaseOrder{
		Items: []core.OrderItemInput{item(b.ID, 1), item(a.ID, 2)},
	})
	expectKind(t, err, core.ErrFailedPrecondition)
	if got := env.quantity(t, a.ID); got != math.MaxInt32-1 {
		t.Errorf("Washer: stock must be unchanged, got %d", got)
	}
	if got := env.quantity(t, b.ID); got != 4 {
		t.Errorf("Nut: stock must be unchanged, got %d", got)
	}

	_, err = env.purchases.CreatePurchaseOrder(env.ctx, core.NewPurchaseOrder{
		Items: []core.OrderItemInput{item(b.ID, math.MaxInt32+1)},
	})
	expectKind(t, err, core.ErrInvalidArgument)

	big := math.MaxInt32 + 1
	_, err = env.catalog.UpdateProduct(env.ctx, b.ID, core.ProductUpdate{Quantity: &big})
	expectKind(t, err, core.ErrInvalidArgument)
}

func TestSalesOrder_DoesNotMoveStock(t *testing.T) {
	env := setupTestDB(t)
	p := env.mustProduct(t, "Bracket", 4, nil)
	party := env.mustParty(t, "Delta")

	so := env.mustSalesOrder(t, party.ID, item(p.ID, 40))
	if so.ReceiptID != 1 || so.IsDispatched {
		t.Errorf("expected open order with receipt 1, got %+v", so)
	}
	if got := env.quantity(t, p.ID); got != 4 {
		t.Errorf("sales orders must not touch stock, got %d", got)
	}

	_, err := env.sales.CreateSalesOrder(env.ctx, core.NewSalesOrder{PartyID: uuid.NewString(), Items: []core.OrderItemInput{item(p.ID, 1)}})
	expectKind(t, err, core.ErrNotFound)
	_, err = env.sales.CreateSalesOrder(env.ctx, core.NewSalesOrder{PartyID: party.ID, Items: []core.OrderItemInput{item(uuid.NewString(), 1)}})
	expectKind(t, err, core.ErrNotFound)
	_, err = env.sales.GetSalesOrder(env.ctx, uuid.NewString())
	expectKind(t, err, core.ErrNotFound)

	// Failed orders release their receipt number with the rollback.
	last, err := env.receipts.Current(env.ctx, core.OrderTypeSales)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if last != 1 {
		t.Errorf("expected last sales receipt 1, got %d", last)
	}
}

func TestSalesOrder_ConcurrentReceiptNumbers(t *testing.T) {
	env := setupTestDB(t)
	p := env.mustProduct(t, "Gasket", 0, nil)
	party := env.mustParty(t, "Epsilon")

	const n = 50
	var wg sync.WaitGroup
	receipts := make(chan int64, n)
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			so, err := env.sales.CreateSalesOrder(env.ctx, core.NewSalesOrder{PartyID: party.ID, Items: []core.OrderItemInput{item(p.ID, 1)}})
			if err != nil {
				errCh <- err
				return
			}
			receipts <- so.ReceiptID
		}()
	}
	wg.Wait()
	close(receipts)
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent CreateSalesOrder error: %v", err)
	}
	seen := make(map[int64]bool)
	for r := range receipts {
		if seen[r] {
			t.Errorf("duplicate receipt id %d", r)
		}
		seen[r] = true
	}
	for i := int64(1); i <= n; i++ {
		if !seen[i] {
			t.Errorf("receipt id %d was never issued", i)
		}
	}

	orders, err := env.sales.ListSalesOrders(env.ctx, nil)
	if err != nil {
		t.Fatalf("ListSalesOrders failed: %v", err)
	}
	for i := 1; i < len(orders); i++ {
		if orders[i-1].ReceiptID <= orders[i].ReceiptID {
			t.Fatalf("orders not sorted by descending receipt id at %d", i)
		}
	}
}
