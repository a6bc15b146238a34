package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReceiptNumbering allocates the human-facing receipt numbers printed on sales and dispatch
// documents. Numbers are strictly increasing per order type and never reused.
type ReceiptNumbering interface {
	// NextTx allocates the next number inside the caller's transaction. The counter row stays
	// locked until that transaction ends, so concurrent allocators queue behind it; if the
	// transaction rolls back, the number is released together with the order that used it.
	NextTx(ctx context.Context, tx pgx.Tx, orderType OrderType) (int64, error)
	// Current returns the last number issued for orderType, or 0 if none has been issued.
	Current(ctx context.Context, orderType OrderType) (int64, error)
}

type receiptNumbering struct {
	pool *pgxpool.Pool
}

func NewReceiptNumbering(pool *pgxpool.Pool) ReceiptNumbering {
	return &receiptNumbering{pool: pool}
}

func (r *receiptNumbering) NextTx(ctx context.Context, tx pgx.Tx, orderType OrderType) (int64, error) {
	if orderType != OrderTypeSales && orderType != OrderTypeDispatch {
		return 0, invalidArgument("unknown order type %q", orderType)
	}

	// Concurrency-safe sequence: the upsert takes a row lock on the counter.
	var next int64
	err := tx.QueryRow(ctx, `
		INSERT INTO receipt_sequences (order_type, last_number)
		VALUES ($1, 1)
		ON CONFLICT (order_type)
		DO UPDATE SET last_number = receipt_sequences.last_number + 1
		RETURNING last_number
	`, string(orderType)).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s receipt number: %w", orderType, err)
	}
	return next, nil
}

func (r *receiptNumbering) Current(ctx context.Context, orderType OrderType) (int64, error) {
	var last int64
	err := r.pool.QueryRow(ctx,
		"SELECT last_number FROM receipt_sequences WHERE order_type = $1",
		string(orderType),
	).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s receipt counter: %w", orderType, err)
	}
	return last, nil
}
