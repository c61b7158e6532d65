package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/inkstore/internal/domain/reconcile"
)

const (
	counterMismatchSQL = `SELECT c.id, c.code, c.uses, COUNT(u.order_id)::int
		FROM coupons c
		LEFT JOIN coupon_usages u ON u.coupon_id = c.id
		GROUP BY c.id, c.code, c.uses
		HAVING c.uses <> COUNT(u.order_id)`

	setCouponUsesSQL = `UPDATE coupons SET uses = $2 WHERE id = $1`

	// Expand each order item one bundle level deep and report the top-level
	// product whenever any expected access row is absent. Orders without a
	// user cannot hold entitlements and are skipped.
	missingGrantsSQL = `WITH expected AS (
			SELECT o.id AS order_id, o.user_id, oi.product_id AS top_id,
				COALESCE(b.product_id, oi.product_id) AS want_id
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			LEFT JOIN bundle_items b ON b.bundle_id = oi.product_id
			WHERE o.user_id <> ''
		)
		SELECT DISTINCT e.order_id, e.user_id, e.top_id
		FROM expected e
		WHERE NOT EXISTS (
			SELECT 1 FROM download_access d
			WHERE d.user_id = e.user_id AND d.product_id = e.want_id
		)`
)

var _ reconcile.Store = (*ReconcileStore)(nil)

// ReconcileStore implements the reconcile job's detection queries.
type ReconcileStore struct {
	pool *pgxpool.Pool
}

// NewReconcileStore returns a ReconcileStore that uses the given pool.
func NewReconcileStore(pool *pgxpool.Pool) *ReconcileStore {
	return &ReconcileStore{pool: pool}
}

// CouponCounterMismatches returns coupons whose counter disagrees with the
// usage log row count.
func (s *ReconcileStore) CouponCounterMismatches(ctx context.Context) ([]reconcile.CounterMismatch, error) {
	rows, err := s.pool.Query(ctx, counterMismatchSQL)
	if err != nil {
		return nil, fmt.Errorf("querying counter mismatches: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reconcile.CounterMismatch, error) {
		var m reconcile.CounterMismatch
		err := row.Scan(&m.CouponID, &m.Code, &m.Counter, &m.Logged)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("collecting counter mismatches: %w", err)
	}
	return out, nil
}

// SetCouponUses overwrites a coupon's usage counter.
func (s *ReconcileStore) SetCouponUses(ctx context.Context, couponID string, uses int) error {
	if _, err := s.pool.Exec(ctx, setCouponUsesSQL, couponID, uses); err != nil {
		return fmt.Errorf("setting uses of coupon %q: %w", couponID, err)
	}
	return nil
}

// MissingGrants returns completed orders with absent entitlements.
func (s *ReconcileStore) MissingGrants(ctx context.Context) ([]reconcile.MissingGrant, error) {
	rows, err := s.pool.Query(ctx, missingGrantsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying missing grants: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reconcile.MissingGrant, error) {
		var m reconcile.MissingGrant
		err := row.Scan(&m.OrderID, &m.UserID, &m.ProductID)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("collecting missing grants: %w", err)
	}
	return out, nil
}
