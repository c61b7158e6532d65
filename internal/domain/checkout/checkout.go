// Package checkout orchestrates purchase attempts: it turns a cart intent
// into either a synchronously completed free order or a hosted-payment
// session, and reconciles the provider's asynchronous confirmation back into
// the same completed state.
package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/inkstore/internal/domain/order"
)

var (
	// ErrPriceTooLow rejects paid checkouts below the provider's minimum
	// chargeable amount.
	ErrPriceTooLow = errors.New("price too low for payment processing")
	// ErrAlreadyOwned rejects a free claim when the user already holds the
	// entitlement.
	ErrAlreadyOwned = errors.New("already have access")
	// ErrNotFree rejects a free claim for a priced product.
	ErrNotFree = errors.New("product is not free")
)

// MinCharge is the provider's minimum chargeable amount in major units.
var MinCharge = decimal.RequireFromString("0.50")

// InitiateResult is the outcome of a checkout initiation: either a completed
// free order or a redirect to the hosted payment page.
type InitiateResult struct {
	Free bool
	// RedirectURL is set on the paid branch.
	RedirectURL string
	// Order is set on the free branch.
	Order *order.Order
}

// Outcome classifies what a webhook session-completed event resulted in.
type Outcome int

const (
	// OutcomeFulfilled means a new order was created and entitlements granted.
	OutcomeFulfilled Outcome = iota
	// OutcomeDuplicate means an order already existed for the session; the
	// delivery was a retry and nothing was changed.
	OutcomeDuplicate
	// OutcomeDomainSale means the session paid for a domain-name listing;
	// the listing was marked inactive and no order flow applies.
	OutcomeDomainSale
)

// DomainSaleRepository marks sold domain-name listings inactive.
type DomainSaleRepository interface {
	MarkInactive(ctx context.Context, name string) error
}
