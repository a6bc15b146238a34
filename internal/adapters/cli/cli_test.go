package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"inventory-engine/internal/app"
	"inventory-engine/internal/core"
)

type fakeService struct {
	app.ApplicationService

	pendency   *app.PendencyResult
	verify     *app.VerifyResult
	stock      *app.StockResult
	dispatched *bool
}

func (f *fakeService) GetPendency(ctx context.Context) (*app.PendencyResult, error) {
	return f.pendency, nil
}

func (f *fakeService) VerifyPendency(ctx context.Context) (*app.VerifyResult, error) {
	return f.verify, nil
}

func (f *fakeService) GetStock(ctx context.Context) (*app.StockResult, error) {
	return f.stock, nil
}

func (f *fakeService) ListSalesOrders(ctx context.Context, dispatched *bool) (*app.SalesOrderListResult, error) {
	f.dispatched = dispatched
	return &app.SalesOrderListResult{Orders: []core.SalesOrder{{ReceiptID: 42, PartyName: "Acme Traders", CreatedAt: time.Now()}}}, nil
}

func TestRun_Pendency(t *testing.T) {
	svc := &fakeService{pendency: &app.PendencyResult{
		Stale: true,
		Rows: []core.PendencyRow{{
			CategoryName: "Fasteners", ProductName: "Bolt M8", RequiredQty: 15, AvailableQty: 10, DeficitQty: 5,
		}},
	}}
	var out bytes.Buffer
	if err := Run(context.Background(), svc, []string{"pendency"}, &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	got := out.String()
	for _, want := range []string{"PENDENCY", "WARNING", "Bolt M8", "Fasteners"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRun_VerifyDrift(t *testing.T) {
	svc := &fakeService{verify: &app.VerifyResult{InSync: false, Drift: []string{"p-1"}}}
	var out bytes.Buffer
	if err := Run(context.Background(), svc, []string{"verify"}, &out); err == nil {
		t.Fatal("Expected an error when pendency has drifted")
	}
	if !strings.Contains(out.String(), "p-1") {
		t.Errorf("Expected drifted id in output, got %q", out.String())
	}

	svc.verify = &app.VerifyResult{InSync: true}
	out.Reset()
	if err := Run(context.Background(), svc, []string{"verify"}, &out); err != nil {
		t.Fatalf("Expected success when in sync, got %v", err)
	}
}

func TestRun_OpenOrdersFiltersUndispatched(t *testing.T) {
	svc := &fakeService{}
	var out bytes.Buffer
	if err := Run(context.Background(), svc, []string{"open"}, &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if svc.dispatched == nil || *svc.dispatched {
		t.Errorf("Expected dispatched=false filter, got %v", svc.dispatched)
	}
	if !strings.Contains(out.String(), "42") {
		t.Errorf("Expected receipt number in output, got %q", out.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	if err := Run(context.Background(), &fakeService{}, []string{"frobnicate"}, &bytes.Buffer{}); err == nil {
		t.Fatal("Expected error for unknown command")
	}
	if err := Run(context.Background(), &fakeService{}, nil, &bytes.Buffer{}); err == nil {
		t.Fatal("Expected error for missing command")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate changed a short string: %q", got)
	}
	if got := truncate("a very long product name", 6); got != "a ver…" {
		t.Errorf("unexpected truncation %q", got)
	}
}
