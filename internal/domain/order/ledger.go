package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxNumberAttempts bounds order number regeneration on collisions.
const maxNumberAttempts = 3

// CreateParams holds the input for recording a completed purchase.
type CreateParams struct {
	UserID         string
	Email          string
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	// CouponID, when set, makes the ledger append a usage log row and bump
	// the coupon counter in the same transaction as the order.
	CouponID          string
	ProviderSessionID string
	ProviderPaymentID string
	Items             []Item
}

// Ledger owns creation of completed orders and their pricing invariant:
// total = max(0, subtotal - discount), with item snapshots carried as given.
// Callers must ensure at most one invocation per logical purchase; the free
// path runs inside a single request and the webhook path is keyed by the
// provider session id uniqueness.
type Ledger struct {
	orders Repository
	now    func() time.Time
}

// NewLedger creates a Ledger over the given order repository.
func NewLedger(orders Repository) *Ledger {
	return &Ledger{orders: orders, now: time.Now}
}

// CreateCompleted persists a completed order with a freshly generated order
// number, retrying generation on the (practically unreachable) collision
// case. ErrDuplicateSession propagates untouched so callers can treat it as
// "already completed".
func (l *Ledger) CreateCompleted(ctx context.Context, p CreateParams) (*Order, error) {
	if len(p.Items) == 0 {
		return nil, errors.New("order requires at least one item")
	}

	total := p.Subtotal.Sub(p.DiscountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:                uuid.New().String(),
		UserID:            p.UserID,
		Subtotal:          p.Subtotal.Round(2),
		DiscountAmount:    p.DiscountAmount.Round(2),
		Total:             total.Round(2),
		CouponID:          p.CouponID,
		CustomerEmail:     p.Email,
		ProviderSessionID: p.ProviderSessionID,
		ProviderPaymentID: p.ProviderPaymentID,
		CompletedAt:       l.now().UTC(),
	}

	for attempt := 0; ; attempt++ {
		o.OrderNumber = NewNumber(l.now())

		err := l.orders.CreateCompleted(ctx, o, p.Items)
		switch {
		case err == nil:
			return o, nil
		case errors.Is(err, ErrDuplicateNumber) && attempt+1 < maxNumberAttempts:
			continue
		case errors.Is(err, ErrDuplicateSession):
			return nil, ErrDuplicateSession
		default:
			return nil, errors.Wrap(err, "create order")
		}
	}
}

// GetBySessionID returns the order reconciled from a provider session.
func (l *Ledger) GetBySessionID(ctx context.Context, sessionID string) (*Order, error) {
	return l.orders.GetBySessionID(ctx, sessionID)
}
