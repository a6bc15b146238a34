package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PurchaseOrderService records inbound stock.
type PurchaseOrderService interface {
	// CreatePurchaseOrder inserts the order and increments every referenced product's quantity
	// in one transaction.
	CreatePurchaseOrder(ctx context.Context, in NewPurchaseOrder) (*PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, id string) (*PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context) ([]PurchaseOrder, error)
}

type purchaseOrderService struct {
	pool       *pgxpool.Pool
	reconciler Reconciler
}

// NewPurchaseOrderService constructs a PurchaseOrderService backed by PostgreSQL.
func NewPurchaseOrderService(pool *pgxpool.Pool, reconciler Reconciler) PurchaseOrderService {
	return &purchaseOrderService{pool: pool, reconciler: reconciler}
}

func (s *purchaseOrderService) CreatePurchaseOrder(ctx context.Context, in NewPurchaseOrder) (*PurchaseOrder, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var po PurchaseOrder
	err := inTx(ctx, s.pool, readCommitted, func(tx pgx.Tx) error {
		ids := make([]string, len(in.Items))
		for i, it := range in.Items {
			ids[i] = it.ProductID
		}
		products, err := readProductsTx(ctx, tx, ids, lockUpdate)
		if err != nil {
			return err
		}

		po = PurchaseOrder{ID: uuid.NewString(), CreatedBy: ActorFromContext(ctx)}
		if err := tx.QueryRow(ctx,
			"INSERT INTO purchase_orders (id, created_by) VALUES ($1, $2) RETURNING created_at",
			po.ID, po.CreatedBy,
		).Scan(&po.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert purchase order: %w", err)
		}

		for i, it := range in.Items {
			item := PurchaseOrderItem{
				ID:          uuid.NewString(),
				LineNumber:  i + 1,
				ProductID:   it.ProductID,
				ProductName: products[it.ProductID].name,
				Quantity:    it.Quantity,
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO purchase_order_items (id, purchase_order_id, line_number, product_id, quantity)
				VALUES ($1, $2, $3, $4, $5)
			`, item.ID, po.ID, item.LineNumber, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("failed to insert purchase order line %d: %w", item.LineNumber, err)
			}
			if err := adjustStockTx(ctx, tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
			po.Items = append(po.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reconcileAfterCommit(ctx, s.reconciler)
	return &po, nil
}

func (s *purchaseOrderService) GetPurchaseOrder(ctx context.Context, id string) (*PurchaseOrder, error) {
	if err := validateID("id", id); err != nil {
		return nil, err
	}

	var po PurchaseOrder
	err := s.pool.QueryRow(ctx,
		"SELECT id, created_by, created_at FROM purchase_orders WHERE id = $1", id,
	).Scan(&po.ID, &po.CreatedBy, &po.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("purchase order %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch purchase order: %w", err)
	}

	items, err := s.fetchItems(ctx, []string{po.ID})
	if err != nil {
		return nil, err
	}
	po.Items = items[po.ID]
	return &po, nil
}

func (s *purchaseOrderService) ListPurchaseOrders(ctx context.Context) ([]PurchaseOrder, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, created_by, created_at FROM purchase_orders ORDER BY created_at DESC, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase orders: %w", err)
	}
	var orders []PurchaseOrder
	var ids []string
	for rows.Next() {
		var po PurchaseOrder
		if err := rows.Scan(&po.ID, &po.CreatedBy, &po.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		orders = append(orders, po)
		ids = append(ids, po.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchase orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := s.fetchItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (s *purchaseOrderService) fetchItems(ctx context.Context, orderIDs []string) (map[string][]PurchaseOrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT poi.purchase_order_id, poi.id, poi.line_number, poi.product_id, p.name, poi.quantity
		FROM purchase_order_items poi
		JOIN products p ON p.id = poi.product_id
		WHERE poi.purchase_order_id = ANY($1::text[]::uuid[])
		ORDER BY poi.purchase_order_id, poi.line_number
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]PurchaseOrderItem, len(orderIDs))
	for rows.Next() {
		var orderID string
		var it PurchaseOrderItem
		if err := rows.Scan(&orderID, &it.ID, &it.LineNumber, &it.ProductID, &it.ProductName, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan purchase order item: %w", err)
		}
		items[orderID] = append(items[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchase order items: %w", err)
	}
	return items, nil
}
