package core

import (
	"context"
	"fmt"
	"sort"
)

// lockedProduct is a product row read under FOR UPDATE inside an order transaction.
type lockedProduct struct {
	name     string
	quantity int
}

// uniqueSortedIDs returns the distinct ids in ascending order, the order rows are locked in.
func uniqueSortedIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Row lock strengths for readProductsTx.
const (
	lockNone     = ""
	lockKeyShare = " FOR KEY SHARE"
	lockUpdate   = " FOR UPDATE"
)

// readProductsTx loads the referenced products, taking the given row lock in id order.
// Every id must exist; the first missing one is reported as NotFound.
func readProductsTx(ctx context.Context, q dbtx, ids []string, lock string) (map[string]lockedProduct, error) {
	ids = uniqueSortedIDs(ids)
	query := "SELECT id, name, quantity FROM products WHERE id = ANY($1::text[]::uuid[]) ORDER BY id" + lock

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	defer rows.Close()

	products := make(map[string]lockedProduct, len(ids))
	for rows.Next() {
		var id string
		var p lockedProduct
		if err := rows.Scan(&id, &p.name, &p.quantity); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, notFound("product %s not found", id)
		}
	}
	return products, nil
}

// adjustStockTx adds delta to a product's on-hand quantity. The caller must hold the row lock.
// A decrement below zero trips the quantity check and an increment past maxQuantity overflows
// the column; both are reported as FailedPrecondition.
func adjustStockTx(ctx context.Context, q dbtx, productID string, delta int) error {
	tag, err := q.Exec(ctx, `
		UPDATE products SET quantity = quantity + $1::bigint, updated_at = NOW()
		WHERE id = $2
	`, delta, productID)
	if err != nil {
		if isCheckViolation(err) {
			return failedPrecondition("insufficient stock for product %s", productID)
		}
		if isOutOfRange(err) {
			return failedPrecondition("stock for product %s would exceed %d", productID, maxQuantity)
		}
		return fmt.Errorf("failed to adjust stock for product %s: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("product %s not found", productID)
	}
	return nil
}
