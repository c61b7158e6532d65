package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/inkstore/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, order_number, subtotal,
		discount_amount, total, coupon_id, customer_email,
		provider_session_id, provider_payment_id, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), NULLIF($10, ''), $11)`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, product_name, price_at_purchase)
		VALUES ($1, $2, $3, $4)`

	insertCouponUsageSQL = `INSERT INTO coupon_usages (coupon_id, order_id, user_id, discount_amount)
		VALUES ($1, $2, $3, $4)`

	incrementCouponUsesSQL = `UPDATE coupons SET uses = uses + 1 WHERE id = $1`

	getOrderBySessionSQL = `SELECT id, user_id, order_number, subtotal,
		discount_amount, total, COALESCE(coupon_id, ''), customer_email,
		COALESCE(provider_session_id, ''), COALESCE(provider_payment_id, ''), completed_at
		FROM orders WHERE provider_session_id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateCompleted writes the order, its item snapshots, and, when a coupon
// was applied, the usage log row plus counter increment, all in one
// transaction, so an order can never exist without its usage log row.
// Only the later entitlement grant is a separate step.
func (r *OrderRepository) CreateCompleted(ctx context.Context, o *order.Order, items []order.Item) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.OrderNumber, o.Subtotal,
		o.DiscountAmount, o.Total, o.CouponID, o.CustomerEmail,
		o.ProviderSessionID, o.ProviderPaymentID, o.CompletedAt,
	)
	if err != nil {
		switch {
		case uniqueViolation(err, "orders_provider_session_id_key"):
			return order.ErrDuplicateSession
		case uniqueViolation(err, "orders_order_number_key"):
			return order.ErrDuplicateNumber
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, insertOrderItemSQL,
			o.ID, it.ProductID, it.ProductName, it.PriceAtPurchase,
		); err != nil {
			return fmt.Errorf("creating item %q of order %q: %w", it.ProductID, o.ID, err)
		}
	}

	if o.CouponID != "" {
		if _, err := tx.Exec(ctx, insertCouponUsageSQL,
			o.CouponID, o.ID, o.UserID, o.DiscountAmount,
		); err != nil {
			return fmt.Errorf("recording usage of coupon %q: %w", o.CouponID, err)
		}
		if _, err := tx.Exec(ctx, incrementCouponUsesSQL, o.CouponID); err != nil {
			return fmt.Errorf("incrementing uses of coupon %q: %w", o.CouponID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetBySessionID returns the order created from a provider session, or
// order.ErrNotFound when the session never completed.
func (r *OrderRepository) GetBySessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderBySessionSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("finding order for session %q: %w", sessionID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (order.Order, error) {
		var o order.Order
		err := row.Scan(
			&o.ID, &o.UserID, &o.OrderNumber, &o.Subtotal,
			&o.DiscountAmount, &o.Total, &o.CouponID, &o.CustomerEmail,
			&o.ProviderSessionID, &o.ProviderPaymentID, &o.CompletedAt,
		)
		return o, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order for session %q: %w", sessionID, err)
	}
	return &o, nil
}
