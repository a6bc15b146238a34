package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"inventory-engine/internal/app"
)

const usage = "Available: stock, pendency, recalc, verify, open-orders"

// Run executes a one-shot CLI command, writing its report to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", usage)
	}

	switch args[0] {
	case "stock", "st":
		result, err := svc.GetStock(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stock: %w", err)
		}
		printStock(out, result)

	case "pendency", "pend", "p":
		result, err := svc.GetPendency(ctx)
		if err != nil {
			return fmt.Errorf("failed to get pendency: %w", err)
		}
		printPendency(out, result)

	case "recalc", "recalculate":
		result, err := svc.RecalculatePendency(ctx)
		if err != nil {
			return fmt.Errorf("recalculation failed: %w", err)
		}
		printPendency(out, result)

	case "verify", "v":
		result, err := svc.VerifyPendency(ctx)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		if result.InSync {
			fmt.Fprintln(out, "Pendency is up to date.")
			return nil
		}
		fmt.Fprintf(out, "Pendency differs for %d product(s):\n", len(result.Drift))
		for _, id := range result.Drift {
			fmt.Fprintf(out, "  %s\n", id)
		}
		return fmt.Errorf("pendency out of date; run recalc")

	case "open-orders", "open":
		open := false
		result, err := svc.ListSalesOrders(ctx, &open)
		if err != nil {
			return fmt.Errorf("failed to list sales orders: %w", err)
		}
		printOpenOrders(out, result)

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

func printStock(out io.Writer, result *app.StockResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-58s\n", "STOCK ON HAND")
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-36s %10s %12s\n", "PRODUCT", "QUANTITY", "UPDATED")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, l := range result.Lines {
		fmt.Fprintf(out, "  %-36s %10d %12s\n", truncate(l.ProductName, 36), l.Quantity, l.UpdatedAt.Format("2006-01-02"))
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func printPendency(out io.Writer, result *app.PendencyResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 74))
	fmt.Fprintf(out, "  %-70s\n", "PENDENCY")
	if result.Stale {
		fmt.Fprintln(out, "  WARNING: last recalculation failed, figures may be out of date")
	}
	fmt.Fprintln(out, strings.Repeat("=", 74))
	fmt.Fprintf(out, "  %-18s %-24s %8s %9s %8s\n", "CATEGORY", "PRODUCT", "REQUIRED", "AVAILABLE", "DEFICIT")
	fmt.Fprintln(out, strings.Repeat("-", 74))
	if len(result.Rows) == 0 {
		fmt.Fprintln(out, "  No shortfall.")
	}
	for _, r := range result.Rows {
		fmt.Fprintf(out, "  %-18s %-24s %8d %9d %8d\n",
			truncate(r.CategoryName, 18), truncate(r.ProductName, 24), r.RequiredQty, r.AvailableQty, r.DeficitQty)
	}
	fmt.Fprintln(out, strings.Repeat("=", 74))
}

func printOpenOrders(out io.Writer, result *app.SalesOrderListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-58s\n", "OPEN SALES ORDERS")
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-8s %-30s %6s %12s\n", "RECEIPT", "PARTY", "LINES", "CREATED")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, o := range result.Orders {
		fmt.Fprintf(out, "  %-8d %-30s %6d %12s\n", o.ReceiptID, truncate(o.PartyName, 30), len(o.Items), o.CreatedAt.Format("2006-01-02"))
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
