package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SalesOrderService records client demand. Creating a sales order does not move stock; its
// items count as open demand in pendency until the order is dispatched.
type SalesOrderService interface {
	CreateSalesOrder(ctx context.Context, in NewSalesOrder) (*SalesOrder, error)
	GetSalesOrder(ctx context.Context, id string) (*SalesOrder, error)
	// ListSalesOrders returns orders newest first; a non-nil dispatched filters by state.
	ListSalesOrders(ctx context.Context, dispatched *bool) ([]SalesOrder, error)
}

type salesOrderService struct {
	pool       *pgxpool.Pool
	reconciler Reconciler
	receipts   ReceiptNumbering
}

func NewSalesOrderService(pool *pgxpool.Pool, reconciler Reconciler, receipts ReceiptNumbering) SalesOrderService {
	return &salesOrderService{pool: pool, reconciler: reconciler, receipts: receipts}
}

func (s *salesOrderService) CreateSalesOrder(ctx context.Context, in NewSalesOrder) (*SalesOrder, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var so SalesOrder
	err := inTx(ctx, s.pool, readCommitted, func(tx pgx.Tx) error {
		// Share-lock the party so it cannot be deleted underneath the new order.
		var partyName string
		if err := tx.QueryRow(ctx, "SELECT name FROM parties WHERE id = $1 FOR SHARE", in.PartyID).Scan(&partyName); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("party %s not found", in.PartyID)
			}
			return fmt.Errorf("failed to lock party: %w", err)
		}

		ids := make([]string, len(in.Items))
		for i, it := range in.Items {
			ids[i] = it.ProductID
		}
		// Key-share locks in id order, so the item inserts' foreign key checks cannot deadlock
		// against a dispatch locking the same products.
		products, err := readProductsTx(ctx, tx, ids, lockKeyShare)
		if err != nil {
			return err
		}

		receiptID, err := s.receipts.NextTx(ctx, tx, OrderTypeSales)
		if err != nil {
			return err
		}

		so = SalesOrder{
			ID:        uuid.NewString(),
			PartyID:   in.PartyID,
			PartyName: partyName,
			ReceiptID: receiptID,
			CreatedBy: ActorFromContext(ctx),
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO sales_orders (id, party_id, receipt_id, created_by)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`, so.ID, so.PartyID, so.ReceiptID, so.CreatedBy).Scan(&so.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert sales order: %w", err)
		}

		for i, it := range in.Items {
			item := SalesOrderItem{
				ID:          uuid.NewString(),
				LineNumber:  i + 1,
				ProductID:   it.ProductID,
				ProductName: products[it.ProductID].name,
				Quantity:    it.Quantity,
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO sales_order_items (id, sales_order_id, line_number, product_id, quantity)
				VALUES ($1, $2, $3, $4, $5)
			`, item.ID, so.ID, item.LineNumber, item.ProductID, item.Quantity); err != nil {
				if isForeignKeyViolation(err) {
					return notFound("product %s not found", it.ProductID)
				}
				return fmt.Errorf("failed to insert sales order line %d: %w", item.LineNumber, err)
			}
			so.Items = append(so.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reconcileAfterCommit(ctx, s.reconciler)
	return &so, nil
}

func (s *salesOrderService) GetSalesOrder(ctx context.Context, id string) (*SalesOrder, error) {
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	return getSalesOrderTx(ctx, s.pool, id)
}

func (s *salesOrderService) ListSalesOrders(ctx context.Context, dispatched *bool) ([]SalesOrder, error) {
	return querySalesOrders(ctx, s.pool, "($1::boolean IS NULL OR so.is_dispatched = $1::boolean)", dispatched)
}

func getSalesOrderTx(ctx context.Context, q dbtx, id string) (*SalesOrder, error) {
	orders, err := querySalesOrders(ctx, q, "so.id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, notFound("sales order %s not found", id)
	}
	return &orders[0], nil
}

// querySalesOrders loads the sales orders matching where, newest receipt first, with their
// items. where is a fixed SQL fragment over alias so; args bind its placeholders.
func querySalesOrders(ctx context.Context, q dbtx, where string, args ...any) ([]SalesOrder, error) {
	rows, err := q.Query(ctx, `
		SELECT so.id, so.party_id, pa.name, so.receipt_id, so.is_dispatched, so.dispatched_at,
		       so.created_by, so.created_at
		FROM sales_orders so
		JOIN parties pa ON pa.id = so.party_id
		WHERE `+where+`
		ORDER BY so.receipt_id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales orders: %w", err)
	}
	var orders []SalesOrder
	var ids []string
	for rows.Next() {
		var so SalesOrder
		if err := rows.Scan(&so.ID, &so.PartyID, &so.PartyName, &so.ReceiptID, &so.IsDispatched,
			&so.DispatchedAt, &so.CreatedBy, &so.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sales order: %w", err)
		}
		orders = append(orders, so)
		ids = append(ids, so.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	rows, err = q.Query(ctx, `
		SELECT soi.sales_order_id, soi.id, soi.line_number, soi.product_id, p.name, soi.quantity
		FROM sales_order_items soi
		JOIN products p ON p.id = soi.product_id
		WHERE soi.sales_order_id = ANY($1::text[]::uuid[])
		ORDER BY soi.sales_order_id, soi.line_number
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]SalesOrderItem, len(ids))
	for rows.Next() {
		var orderID string
		var it SalesOrderItem
		if err := rows.Scan(&orderID, &it.ID, &it.LineNumber, &it.ProductID, &it.ProductName, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan sales order item: %w", err)
		}
		items[orderID] = append(items[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales order items: %w", err)
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}
