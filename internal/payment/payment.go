// Package payment talks to the hosted-payment provider: creating checkout
// sessions and verifying/parsing the webhook events the provider sends back.
package payment

import (
	"context"
)

// Event types this subsystem cares about. Everything else is acknowledged
// and ignored.
const (
	// EventSessionCompleted is the primary fulfillment trigger.
	EventSessionCompleted = "checkout.session.completed"
	// EventAsyncPaymentSucceeded is a secondary confirmation, observed only
	// as a consistency check against the primary event.
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// Metadata keys embedded at session creation so the order can be
// reconstructed when the webhook arrives.
const (
	MetaUserID         = "userId"
	MetaProductID      = "productId"
	MetaProductName    = "productName"
	MetaCouponID       = "couponId"
	MetaCouponCode     = "couponCode"
	MetaDiscountAmount = "discountAmount"
	MetaOriginalPrice  = "originalPrice"
	// MetaDomainName marks a one-off domain-name sale. Such sessions carry
	// no product metadata and never produce orders or entitlements.
	MetaDomainName = "domainName"
)

// SessionParams describes the hosted checkout session to create.
type SessionParams struct {
	// AmountCents is the final charge in the currency's minor unit.
	AmountCents   int64
	Currency      string
	ProductName   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Session is a created hosted checkout session.
type Session struct {
	ID string
	// URL is where the customer is redirected to pay.
	URL string
}

// CheckoutSession is the session object carried inside a webhook event.
type CheckoutSession struct {
	ID            string
	PaymentIntent string
	CustomerEmail string
	Metadata      map[string]string
}

// Event is a parsed provider webhook event.
type Event struct {
	ID      string
	Type    string
	Session CheckoutSession
}

// Provider creates hosted checkout sessions. It is injected so the checkout
// service can be tested against a fake.
type Provider interface {
	CreateSession(ctx context.Context, p SessionParams) (*Session, error)
}
