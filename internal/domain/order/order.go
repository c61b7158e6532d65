package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateSession is returned when an order already exists for the
	// provider session id. Uniqueness on that column is the mechanism that
	// keeps a payment confirmation from producing two orders.
	ErrDuplicateSession = errors.New("order already exists for session")
	// ErrDuplicateNumber is returned on an order number collision. The ledger
	// regenerates and retries.
	ErrDuplicateNumber = errors.New("order number already taken")
	// ErrNotFound is returned when no order matches the lookup.
	ErrNotFound = errors.New("order not found")
)

// Order is a completed purchase. This subsystem only ever creates orders in a
// terminal completed state: pending and failed states are not modeled, a
// checkout that never confirms simply leaves no row.
type Order struct {
	ID             string
	UserID         string
	OrderNumber    string
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	// CouponID is empty when no coupon was applied.
	CouponID      string
	CustomerEmail string
	// ProviderSessionID is set for orders reconciled from a hosted-payment
	// session, empty for free orders. Unique when present.
	ProviderSessionID string
	ProviderPaymentID string
	CompletedAt       time.Time
}

// Item is a purchased top-level product with its price snapshot. Bundle
// constituents never appear as items; they only generate entitlements.
type Item struct {
	ProductID       string
	ProductName     string
	PriceAtPurchase decimal.Decimal
}

// Repository defines persistence for completed orders.
type Repository interface {
	// CreateCompleted writes the order, its items, and, when the order
	// carries a coupon, the usage log row plus counter increment, in one
	// transaction. Returns ErrDuplicateSession or ErrDuplicateNumber on the
	// corresponding unique violations.
	CreateCompleted(ctx context.Context, o *Order, items []Item) error
	// GetBySessionID returns the order created from a provider session.
	// Returns ErrNotFound when the session has not completed.
	GetBySessionID(ctx context.Context, sessionID string) (*Order, error)
}
