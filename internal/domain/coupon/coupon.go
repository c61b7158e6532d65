package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercent applies a percentage-based discount to the subtotal.
	DiscountPercent DiscountType = "percent"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Scope controls which products a coupon applies to.
type Scope string

const (
	// ScopeAll applies the coupon to every product.
	ScopeAll Scope = "all"
	// ScopeProducts restricts the coupon to an enumerated product set.
	ScopeProducts Scope = "specific_products"
)

// Rejection reasons, in the order the checks run. The first failing check
// wins, so callers get deterministic messages.
var (
	ErrInvalidCode       = errors.New("invalid code")
	ErrNotYetActive      = errors.New("not yet active")
	ErrExpired           = errors.New("expired")
	ErrUsageLimitReached = errors.New("usage limit reached")
	ErrUserLimitReached  = errors.New("already used by this account")
	ErrWrongProduct      = errors.New("not valid for this product")
	ErrMinPurchase       = errors.New("minimum purchase not met")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
// Codes are stored upper-cased and matched case-insensitively.
type Rule struct {
	ID           string
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	Scope        Scope
	// ProductIDs is the scoped product set when Scope is ScopeProducts.
	ProductIDs []string
	// MaxUses caps total redemptions across all users. Zero means unlimited.
	MaxUses int
	// MaxUsesPerUser caps redemptions per user. Defaults to 1 at the store level.
	MaxUsesPerUser int
	StartsAt       *time.Time
	ExpiresAt      *time.Time
	// MinPurchase is the minimum qualifying subtotal. Non-positive means unset.
	MinPurchase decimal.Decimal
	// Uses is the running redemption counter. It must agree with the count of
	// usage log rows; drift is repaired by the reconcile job.
	Uses int
}

// Result is a successful evaluation: the matched rule and the discount it
// yields for the given subtotal, already clamped and rounded.
type Result struct {
	Rule     *Rule
	Discount decimal.Decimal
}

// Repository provides coupon lookups for evaluation. Recording a redemption
// is deliberately NOT here: usage is written by the order ledger only after
// an order is durably created.
type Repository interface {
	// FindByCode looks up an active coupon by code, case-insensitively.
	// Returns ErrInvalidCode when no active coupon matches.
	FindByCode(ctx context.Context, code string) (*Rule, error)
	// CountUserUsages returns how many times the user has redeemed the coupon.
	CountUserUsages(ctx context.Context, couponID, userID string) (int, error)
}
