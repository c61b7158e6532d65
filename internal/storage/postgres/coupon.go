package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/inkstore/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, discount_type, discount_value, scope,
		max_uses, max_uses_per_user, starts_at, expires_at, minimum_purchase, uses
		FROM coupons WHERE code = UPPER($1) AND status = 'active'`

	getCouponProductsSQL = `SELECT product_id FROM coupon_products WHERE coupon_id = $1`

	countUserUsagesSQL = `SELECT COUNT(*) FROM coupon_usages
		WHERE coupon_id = $1 AND user_id = $2`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon by code. Codes are stored upper-cased,
// so the query upper-cases the parameter for case-insensitive matching.
// Returns coupon.ErrInvalidCode when no matching active coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCode
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	if rule.Scope == coupon.ScopeProducts {
		if rule.ProductIDs, err = r.scopedProducts(ctx, rule.ID); err != nil {
			return nil, err
		}
	}
	return &rule, nil
}

// CountUserUsages counts redemptions of the coupon by the user from the
// append-only usage log.
func (r *CouponRepository) CountUserUsages(ctx context.Context, couponID, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countUserUsagesSQL, couponID, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting usages of coupon %q by user %q: %w", couponID, userID, err)
	}
	return n, nil
}

func (r *CouponRepository) scopedProducts(ctx context.Context, couponID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, getCouponProductsSQL, couponID)
	if err != nil {
		return nil, fmt.Errorf("listing scoped products of coupon %q: %w", couponID, err)
	}

	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing scoped products of coupon %q: %w", couponID, err)
	}
	return ids, nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
		scope        string
		maxUses      *int32
		perUser      int32
		startsAt     *time.Time
		expiresAt    *time.Time
		minPurchase  *decimal.Decimal
		uses         int32
	)
	err := row.Scan(
		&rule.ID, &rule.Code, &discountType, &rule.Value, &scope,
		&maxUses, &perUser, &startsAt, &expiresAt, &minPurchase, &uses,
	)
	rule.DiscountType = coupon.DiscountType(discountType)
	rule.Scope = coupon.Scope(scope)
	if maxUses != nil {
		rule.MaxUses = int(*maxUses)
	}
	rule.MaxUsesPerUser = int(perUser)
	rule.StartsAt = startsAt
	rule.ExpiresAt = expiresAt
	if minPurchase != nil {
		rule.MinPurchase = *minPurchase
	}
	rule.Uses = int(uses)
	return rule, err
}
