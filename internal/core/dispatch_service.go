package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DispatchService allocates stock against sales orders and closes them on completion.
//
// Lifecycle: a dispatch order is Pending from creation, when its stock is decremented, and
// becomes Completed once a vehicle is assigned. Completion marks the sales order dispatched.
// There is no cancel path.
type DispatchService interface {
	// CreateDispatchOrder fails with FailedPrecondition, leaving every product untouched, if any
	// product lacks the requested quantity.
	CreateDispatchOrder(ctx context.Context, in NewDispatchOrder) (*DispatchOrder, error)
	CompleteDispatchOrder(ctx context.Context, id, vehicleNumber string) (*DispatchReceipt, error)
	GetDispatchOrder(ctx context.Context, id string) (*DispatchOrder, error)
	// ListDispatchOrders returns orders newest first; a non-nil completed filters by state.
	ListDispatchOrders(ctx context.Context, completed *bool) ([]DispatchOrder, error)
}

type dispatchService struct {
	pool       *pgxpool.Pool
	reconciler Reconciler
	receipts   ReceiptNumbering
}

func NewDispatchService(pool *pgxpool.Pool, reconciler Reconciler, receipts ReceiptNumbering) DispatchService {
	return &dispatchService{pool: pool, reconciler: reconciler, receipts: receipts}
}

// ── Create ────────────────────────────────────────────────────────────────────

func (s *dispatchService) CreateDispatchOrder(ctx context.Context, in NewDispatchOrder) (*DispatchOrder, error) {
	// Trim into a copy; in.Items shares its backing array with the caller.
	items := make([]DispatchItemInput, len(in.Items))
	for i, it := range in.Items {
		it.ProductName = strings.TrimSpace(it.ProductName)
		items[i] = it
	}
	if in.Items != nil {
		in.Items = items
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.VehicleNumber != nil {
		if v := strings.TrimSpace(*in.VehicleNumber); v != "" {
			in.VehicleNumber = &v
		} else {
			in.VehicleNumber = nil
		}
	}

	// Duplicate lines for one product are checked against stock as their sum.
	requested := make(map[string]int, len(in.Items))
	for _, it := range in.Items {
		requested[it.ProductID] += it.Quantity
	}

	// Fast fail without locks; the same checks run again under locks below.
	if err := checkDispatchable(ctx, s.pool, in.SalesOrderID, requested, false); err != nil {
		return nil, err
	}

	var d DispatchOrder
	err := inTx(ctx, s.pool, readCommitted, func(tx pgx.Tx) error {
		if err := checkDispatchable(ctx, tx, in.SalesOrderID, requested, true); err != nil {
			return err
		}

		receiptID, err := s.receipts.NextTx(ctx, tx, OrderTypeDispatch)
		if err != nil {
			return err
		}

		d = DispatchOrder{
			ID:            uuid.NewString(),
			SalesOrderID:  in.SalesOrderID,
			ReceiptID:     receiptID,
			VehicleNumber: in.VehicleNumber,
			CreatedBy:     ActorFromContext(ctx),
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO dispatch_orders (id, sales_order_id, receipt_id, vehicle_number, created_by)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`, d.ID, d.SalesOrderID, d.ReceiptID, d.VehicleNumber, d.CreatedBy).Scan(&d.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return conflict("sales order %s already has a dispatch order", in.SalesOrderID)
			}
			return fmt.Errorf("failed to insert dispatch order: %w", err)
		}

		for i, it := range in.Items {
			item := DispatchOrderItem{
				ID:          uuid.NewString(),
				LineNumber:  i + 1,
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Quantity:    it.Quantity,
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO dispatch_order_items (id, dispatch_order_id, line_number, product_id, product_name, quantity)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, item.ID, d.ID, item.LineNumber, item.ProductID, item.ProductName, item.Quantity); err != nil {
				return fmt.Errorf("failed to insert dispatch order line %d: %w", item.LineNumber, err)
			}
			d.Items = append(d.Items, item)
		}

		for _, id := range uniqueSortedIDs(keys(requested)) {
			if err := adjustStockTx(ctx, tx, id, -requested[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reconcileAfterCommit(ctx, s.reconciler)
	return &d, nil
}

// checkDispatchable verifies that the sales order is open and has no dispatch order, and that
// every product has at least the requested quantity on hand. With lock set it runs inside the
// order transaction and holds the sales order and product rows until commit.
func checkDispatchable(ctx context.Context, q dbtx, salesOrderID string, requested map[string]int, lock bool) error {
	query := "SELECT is_dispatched FROM sales_orders WHERE id = $1"
	if lock {
		query += " FOR UPDATE"
	}
	var dispatched bool
	if err := q.QueryRow(ctx, query, salesOrderID).Scan(&dispatched); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("sales order %s not found", salesOrderID)
		}
		return fmt.Errorf("failed to fetch sales order: %w", err)
	}
	if dispatched {
		return conflict("sales order %s is already dispatched", salesOrderID)
	}

	var hasDispatch bool
	if err := q.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM dispatch_orders WHERE sales_order_id = $1)", salesOrderID,
	).Scan(&hasDispatch); err != nil {
		return fmt.Errorf("failed to check existing dispatch order: %w", err)
	}
	if hasDispatch {
		return conflict("sales order %s already has a dispatch order", salesOrderID)
	}

	ids := uniqueSortedIDs(keys(requested))
	lockMode := lockNone
	if lock {
		lockMode = lockUpdate
	}
	products, err := readProductsTx(ctx, q, ids, lockMode)
	if err != nil {
		return err
	}
	for _, id := range ids {
		p := products[id]
		if requested[id] > p.quantity {
			return failedPrecondition("insufficient stock for product %s (%s): available %d, requested %d",
				p.name, id, p.quantity, requested[id])
		}
	}
	return nil
}

func keys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// ── Complete ──────────────────────────────────────────────────────────────────

func (s *dispatchService) CompleteDispatchOrder(ctx context.Context, id, vehicleNumber string) (*DispatchReceipt, error) {
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	vehicleNumber = strings.TrimSpace(vehicleNumber)
	if vehicleNumber == "" {
		return nil, invalidArgument("vehicle_number is required")
	}

	var receipt DispatchReceipt
	err := inTx(ctx, s.pool, readCommitted, func(tx pgx.Tx) error {
		var salesOrderID string
		var completed bool
		if err := tx.QueryRow(ctx,
			"SELECT sales_order_id, is_completed FROM dispatch_orders WHERE id = $1 FOR UPDATE", id,
		).Scan(&salesOrderID, &completed); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("dispatch order %s not found", id)
			}
			return fmt.Errorf("failed to lock dispatch order: %w", err)
		}
		if completed {
			return conflict("dispatch order %s is already completed", id)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE dispatch_orders
			SET is_completed = true, vehicle_number = $2, completed_at = NOW()
			WHERE id = $1
		`, id, vehicleNumber); err != nil {
			return fmt.Errorf("failed to complete dispatch order: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE sales_orders
			SET is_dispatched = true, dispatched_at = NOW()
			WHERE id = $1 AND is_dispatched = false
		`, salesOrderID)
		if err != nil {
			return fmt.Errorf("failed to mark sales order dispatched: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return conflict("sales order %s is already dispatched", salesOrderID)
		}

		d, err := getDispatchOrderTx(ctx, tx, id)
		if err != nil {
			return err
		}
		so, err := getSalesOrderTx(ctx, tx, salesOrderID)
		if err != nil {
			return err
		}
		party, err := getPartyTx(ctx, tx, so.PartyID)
		if err != nil {
			return err
		}
		receipt = DispatchReceipt{Dispatch: *d, SalesOrder: *so, Party: *party}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reconcileAfterCommit(ctx, s.reconciler)
	return &receipt, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *dispatchService) GetDispatchOrder(ctx context.Context, id string) (*DispatchOrder, error) {
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	return getDispatchOrderTx(ctx, s.pool, id)
}

func (s *dispatchService) ListDispatchOrders(ctx context.Context, completed *bool) ([]DispatchOrder, error) {
	orders, err := queryDispatchOrders(ctx, s.pool, "($1::boolean IS NULL OR d.is_completed = $1::boolean)", completed)
	if err != nil || len(orders) == 0 {
		return orders, err
	}

	soIDs := make([]string, len(orders))
	for i, d := range orders {
		soIDs[i] = d.SalesOrderID
	}
	sales, err := querySalesOrders(ctx, s.pool, "so.id = ANY($1::text[]::uuid[])", soIDs)
	if err != nil {
		return nil, err
	}
	salesByID := make(map[string]SalesOrder, len(sales))
	partyIDs := make([]string, 0, len(sales))
	for _, so := range sales {
		salesByID[so.ID] = so
		partyIDs = append(partyIDs, so.PartyID)
	}
	parties, err := queryParties(ctx, s.pool, "id = ANY($1::text[]::uuid[])", uniqueSortedIDs(partyIDs))
	if err != nil {
		return nil, err
	}
	partyByID := make(map[string]Party, len(parties))
	for _, p := range parties {
		partyByID[p.ID] = p
	}

	for i := range orders {
		if so, ok := salesByID[orders[i].SalesOrderID]; ok {
			orders[i].SalesOrder = &so
			if p, ok := partyByID[so.PartyID]; ok {
				orders[i].Party = &p
			}
		}
	}
	return orders, nil
}

func getDispatchOrderTx(ctx context.Context, q dbtx, id string) (*DispatchOrder, error) {
	orders, err := queryDispatchOrders(ctx, q, "d.id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, notFound("dispatch order %s not found", id)
	}
	return &orders[0], nil
}

// queryDispatchOrders loads dispatch orders matching where (a fixed fragment over alias d),
// newest receipt first, with their items.
func queryDispatchOrders(ctx context.Context, q dbtx, where string, args ...any) ([]DispatchOrder, error) {
	rows, err := q.Query(ctx, `
		SELECT d.id, d.sales_order_id, d.receipt_id, d.vehicle_number, d.is_completed,
		       d.completed_at, d.created_by, d.created_at
		FROM dispatch_orders d
		WHERE `+where+`
		ORDER BY d.receipt_id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatch orders: %w", err)
	}
	var orders []DispatchOrder
	var ids []string
	for rows.Next() {
		var d DispatchOrder
		if err := rows.Scan(&d.ID, &d.SalesOrderID, &d.ReceiptID, &d.VehicleNumber, &d.IsCompleted,
			&d.CompletedAt, &d.CreatedBy, &d.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan dispatch order: %w", err)
		}
		orders = append(orders, d)
		ids = append(ids, d.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dispatch orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	rows, err = q.Query(ctx, `
		SELECT dispatch_order_id, id, line_number, product_id, product_name, quantity
		FROM dispatch_order_items
		WHERE dispatch_order_id = ANY($1::text[]::uuid[])
		ORDER BY dispatch_order_id, line_number
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatch order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]DispatchOrderItem, len(ids))
	for rows.Next() {
		var orderID string
		var it DispatchOrderItem
		if err := rows.Scan(&orderID, &it.ID, &it.LineNumber, &it.ProductID, &it.ProductName, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch order item: %w", err)
		}
		items[orderID] = append(items[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dispatch order items: %w", err)
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}
