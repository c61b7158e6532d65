package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Evaluator validates a coupon code for a (user, product, subtotal) purchase
// attempt and computes the discount it would yield. Evaluation never mutates
// state; redemption is recorded later, alongside order creation.
type Evaluator interface {
	Evaluate(ctx context.Context, code, userID, productID string, subtotal decimal.Decimal) (*Result, error)
}

// RepoEvaluator implements Evaluator by looking up coupon rules and per-user
// usage from a Repository.
type RepoEvaluator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoEvaluator creates a RepoEvaluator backed by the given Repository.
func NewRepoEvaluator(repo Repository) *RepoEvaluator {
	return &RepoEvaluator{repo: repo, now: time.Now}
}

// Evaluate looks up the rule for code, runs the ordered eligibility checks,
// and returns the clamped discount. Rejections surface as the sentinel errors
// declared in this package; anything else is an infrastructure failure.
func (e *RepoEvaluator) Evaluate(ctx context.Context, code, userID, productID string, subtotal decimal.Decimal) (*Result, error) {
	rule, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, ErrInvalidCode
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	userUses, err := e.repo.CountUserUsages(ctx, rule.ID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "count user usages")
	}

	if err := Check(rule, e.now(), userUses, productID, subtotal); err != nil {
		return nil, err
	}

	return &Result{
		Rule:     rule,
		Discount: Apply(rule, subtotal),
	}, nil
}
