package coupon

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Check runs the eligibility checks for a rule against a purchase attempt.
// Checks short-circuit in a fixed order so the reported reason is
// deterministic: validity window, global usage limit, per-user usage limit,
// product scope, minimum purchase. The code lookup itself (check one) happens
// in the repository.
func Check(rule *Rule, now time.Time, userUses int, productID string, subtotal decimal.Decimal) error {
	if rule.StartsAt != nil && now.Before(*rule.StartsAt) {
		return ErrNotYetActive
	}
	if rule.ExpiresAt != nil && now.After(*rule.ExpiresAt) {
		return ErrExpired
	}
	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return ErrUsageLimitReached
	}
	if userUses >= rule.MaxUsesPerUser {
		return ErrUserLimitReached
	}
	if rule.Scope == ScopeProducts && !slices.Contains(rule.ProductIDs, productID) {
		return ErrWrongProduct
	}
	if rule.MinPurchase.IsPositive() && subtotal.LessThan(rule.MinPurchase) {
		return ErrMinPurchase
	}
	return nil
}

// Apply calculates the discount amount a rule yields for the given subtotal.
// Percent discounts take value% of the subtotal; fixed discounts take the
// value itself. The result is clamped to [0, subtotal] and rounded to cents.
func Apply(rule *Rule, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch rule.DiscountType {
	case DiscountPercent:
		amount = subtotal.Mul(rule.Value).Div(hundred)
	case DiscountFixed:
		amount = rule.Value
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	amount = amount.Round(2)
	return decimal.Min(amount, subtotal)
}
