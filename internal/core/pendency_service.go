package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Reconciler maintains the pendency table: the per-product shortfall between open sales demand
// and on-hand stock.
type Reconciler interface {
	// Recalculate replaces the whole pendency table from committed state in one serializable
	// transaction and returns the rows it wrote.
	Recalculate(ctx context.Context) ([]PendencyRow, error)
	// Trigger is called after an inventory- or demand-affecting commit. It never fails the
	// caller: a failed recalculation is logged and handed to the Run loop for retry.
	Trigger(ctx context.Context)
	// Run retries failed recalculations with exponential backoff until ctx is cancelled.
	Run(ctx context.Context)
	// Stale reports whether the last recalculation failed and no later one has succeeded.
	Stale() bool

	ListPendency(ctx context.Context) ([]PendencyRow, error)
	// Verify recomputes pendency from one snapshot and returns the ids of products whose stored
	// row is missing, unexpected or different. An empty result means the table is current.
	Verify(ctx context.Context) ([]string, error)
}

// RetryPolicy controls background retries of failed recalculations.
// MaxAttempts <= 0 retries until a recalculation succeeds.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

type reconciler struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
	policy RetryPolicy

	// mu serializes recalculations within this process; cross-process races are resolved by
	// serializable isolation and retry.
	mu    sync.Mutex
	stale atomic.Bool
	wake  chan struct{}
}

var serializable = pgx.TxOptions{IsoLevel: pgx.Serializable}

func NewReconciler(pool *pgxpool.Pool, logger *logrus.Logger, policy RetryPolicy) Reconciler {
	if policy.BaseBackoff <= 0 {
		policy.BaseBackoff = time.Second
	}
	if policy.MaxBackoff < policy.BaseBackoff {
		policy.MaxBackoff = policy.BaseBackoff
	}
	return &reconciler{
		pool:   pool,
		logger: logger,
		policy: policy,
		wake:   make(chan struct{}, 1),
	}
}

func (r *reconciler) Recalculate(ctx context.Context) ([]PendencyRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rows []PendencyRow
	err := inTx(ctx, r.pool, serializable, func(tx pgx.Tx) error {
		positions, demand, err := loadStockAndDemand(ctx, tx)
		if err != nil {
			return err
		}
		rows = computePendency(positions, demand)

		if _, err := tx.Exec(ctx, "DELETE FROM pendency"); err != nil {
			return fmt.Errorf("failed to clear pendency: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		productIDs := make([]string, len(rows))
		categoryIDs := make([]string, len(rows))
		required := make([]int64, len(rows))
		available := make([]int64, len(rows))
		deficit := make([]int64, len(rows))
		for i, row := range rows {
			productIDs[i] = row.ProductID
			categoryIDs[i] = row.CategoryID
			required[i] = int64(row.RequiredQty)
			available[i] = int64(row.AvailableQty)
			deficit[i] = int64(row.DeficitQty)
		}

		var updatedAt time.Time
		err = tx.QueryRow(ctx, `
			WITH inserted AS (
				INSERT INTO pendency (product_id, category_id, required_qty, available_qty, deficit_qty, updated_at)
				SELECT p, c, r, a, d, NOW()
				FROM unnest($1::text[]::uuid[], $2::text[]::uuid[], $3::bigint[], $4::bigint[], $5::bigint[]) AS t(p, c, r, a, d)
				RETURNING updated_at
			)
			SELECT MAX(updated_at) FROM inserted
		`, productIDs, categoryIDs, required, available, deficit).Scan(&updatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert pendency rows: %w", err)
		}
		for i := range rows {
			rows[i].UpdatedAt = updatedAt
		}
		return nil
	})
	if err != nil {
		r.markStale()
		return nil, fmt.Errorf("failed to recalculate pendency: %w", err)
	}
	r.stale.Store(false)
	return rows, nil
}

func (r *reconciler) Trigger(ctx context.Context) {
	if _, err := r.Recalculate(ctx); err != nil {
		r.logger.WithFields(logrus.Fields{
			"module":   "core",
			"funcName": "Reconciler.Trigger",
			"context":  "pendency recalculation failed; scheduled for retry",
		}).Error(err.Error())
	}
}

// reconcileAfterCommit triggers a recalculation that outlives the caller's cancellation: the
// mutation is already committed, so the pendency table must catch up with it regardless.
func reconcileAfterCommit(ctx context.Context, r Reconciler) {
	if r == nil {
		return
	}
	r.Trigger(context.WithoutCancel(ctx))
}

func (r *reconciler) Stale() bool {
	return r.stale.Load()
}

func (r *reconciler) markStale() {
	r.stale.Store(true)
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *reconciler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		}

		for attempt := 1; r.stale.Load(); attempt++ {
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackoff(attempt, r.policy)):
			}
			if !r.stale.Load() {
				break
			}

			_, err := r.Recalculate(ctx)
			if err == nil {
				r.logger.WithField("attempt", attempt).Info("pendency recalculation recovered")
				break
			}
			entry := r.logger.WithFields(logrus.Fields{
				"module":   "core",
				"funcName": "Reconciler.Run",
				"attempt":  attempt,
			})
			if r.policy.MaxAttempts > 0 && attempt >= r.policy.MaxAttempts {
				entry.Error("pendency recalculation still failing; giving up until the next trigger: " + err.Error())
				// Drop the signal our own failed retries left behind.
				select {
				case <-r.wake:
				default:
				}
				break
			}
			entry.Warn(err.Error())
		}
	}
}

// retryBackoff returns base * 2^(attempt-1), capped at the policy maximum.
func retryBackoff(attempt int, p RetryPolicy) time.Duration {
	if attempt <= 1 {
		return p.BaseBackoff
	}
	delay := time.Duration(float64(p.BaseBackoff) * math.Pow(2, float64(attempt-1)))
	if delay > p.MaxBackoff || delay <= 0 {
		return p.MaxBackoff
	}
	return delay
}

func (r *reconciler) ListPendency(ctx context.Context) ([]PendencyRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pe.product_id, p.name, pe.category_id, c.name,
		       pe.required_qty, pe.available_qty, pe.deficit_qty, pe.updated_at
		FROM pendency pe
		JOIN products p   ON p.id = pe.product_id
		JOIN categories c ON c.id = pe.category_id
		ORDER BY c.name, p.name, pe.product_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pendency: %w", err)
	}
	defer rows.Close()

	var out []PendencyRow
	for rows.Next() {
		var pr PendencyRow
		if err := rows.Scan(&pr.ProductID, &pr.ProductName, &pr.CategoryID, &pr.CategoryName,
			&pr.RequiredQty, &pr.AvailableQty, &pr.DeficitQty, &pr.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pendency row: %w", err)
		}
		out = append(out, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pendency rows: %w", err)
	}
	return out, nil
}

func (r *reconciler) Verify(ctx context.Context) ([]string, error) {
	var drift []string
	err := inTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		positions, demand, err := loadStockAndDemand(ctx, tx)
		if err != nil {
			return err
		}
		want := make(map[string]PendencyRow)
		for _, row := range computePendency(positions, demand) {
			want[row.ProductID] = row
		}

		rows, err := tx.Query(ctx, `
			SELECT product_id, category_id, required_qty, available_qty, deficit_qty
			FROM pendency
		`)
		if err != nil {
			return fmt.Errorf("failed to query stored pendency: %w", err)
		}
		got := make(map[string]PendencyRow)
		for rows.Next() {
			var pr PendencyRow
			if err := rows.Scan(&pr.ProductID, &pr.CategoryID, &pr.RequiredQty, &pr.AvailableQty, &pr.DeficitQty); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan stored pendency row: %w", err)
			}
			got[pr.ProductID] = pr
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating stored pendency rows: %w", err)
		}

		drift = pendencyDrift(want, got)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify pendency: %w", err)
	}
	return drift, nil
}

// pendencyDrift returns the sorted product ids whose rows differ between want and got,
// ignoring timestamps and joined names.
func pendencyDrift(want, got map[string]PendencyRow) []string {
	var ids []string
	for id, w := range want {
		g, ok := got[id]
		if !ok || g.CategoryID != w.CategoryID || g.RequiredQty != w.RequiredQty ||
			g.AvailableQty != w.AvailableQty || g.DeficitQty != w.DeficitQty {
			ids = append(ids, id)
		}
	}
	for id := range got {
		if _, ok := want[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// loadStockAndDemand reads every product's stock position and the summed quantity of items on
// sales orders that are not yet dispatched.
func loadStockAndDemand(ctx context.Context, q dbtx) ([]stockPosition, map[string]int, error) {
	rows, err := q.Query(ctx, "SELECT id, category_id, quantity FROM products ORDER BY created_at, id")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query stock positions: %w", err)
	}
	var positions []stockPosition
	for rows.Next() {
		var p stockPosition
		if err := rows.Scan(&p.productID, &p.categoryID, &p.quantity); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("failed to scan stock position: %w", err)
		}
		positions = append(positions, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating stock positions: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT soi.product_id, SUM(soi.quantity)
		FROM sales_order_items soi
		JOIN sales_orders so ON so.id = soi.sales_order_id
		WHERE so.is_dispatched = false
		GROUP BY soi.product_id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query open demand: %w", err)
	}
	defer rows.Close()

	demand := make(map[string]int)
	for rows.Next() {
		var productID string
		var qty int64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, nil, fmt.Errorf("failed to scan open demand: %w", err)
		}
		demand[productID] = int(qty)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating open demand: %w", err)
	}
	return positions, demand, nil
}
