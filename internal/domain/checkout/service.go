package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/inkstore/internal/domain/coupon"
	"github.com/xenking/inkstore/internal/domain/entitlement"
	"github.com/xenking/inkstore/internal/domain/order"
	"github.com/xenking/inkstore/internal/domain/product"
	"github.com/xenking/inkstore/internal/payment"
)

// Config holds the redirect targets embedded into provider sessions.
type Config struct {
	SuccessURL string
	CancelURL  string
	// Currency is the provider currency code, e.g. "usd".
	Currency string
}

// Service implements checkout initiation, free claims, and webhook
// reconciliation. All dependencies are injected; nothing here holds state
// between requests, coordination happens through the store's constraints.
type Service struct {
	cfg      Config
	products product.Repository
	coupons  coupon.Evaluator
	ledger   *order.Ledger
	grants   *entitlement.Granter
	provider payment.Provider
	domains  DomainSaleRepository
}

// NewService constructs a checkout Service with the required dependencies.
func NewService(
	cfg Config,
	products product.Repository,
	coupons coupon.Evaluator,
	ledger *order.Ledger,
	grants *entitlement.Granter,
	provider payment.Provider,
	domains DomainSaleRepository,
) *Service {
	return &Service{
		cfg:      cfg,
		products: products,
		coupons:  coupons,
		ledger:   ledger,
		grants:   grants,
		provider: provider,
		domains:  domains,
	}
}

// Initiate starts a purchase of a single product, optionally with a coupon.
//
// When the discounted price reaches zero the order completes synchronously
// within this request: no session, no webhook. Otherwise a hosted-payment
// session is created carrying the full order reconstruction payload as
// metadata, and no order row exists until the provider confirms payment.
// The session id uniqueness on orders is what makes that confirmation
// exactly-once.
func (s *Service) Initiate(ctx context.Context, userID, email, productID, couponCode string) (*InitiateResult, error) {
	p, err := s.products.GetActiveByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	discount := decimal.Zero
	var rule *coupon.Rule
	if couponCode != "" {
		res, err := s.coupons.Evaluate(ctx, couponCode, userID, productID, p.Price)
		if err != nil {
			return nil, err
		}
		discount = res.Discount
		rule = res.Rule
	}

	final := p.Price.Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}

	if final.IsZero() {
		couponID := ""
		if rule != nil {
			couponID = rule.ID
		}
		o, err := s.complete(ctx, completion{
			userID:   userID,
			email:    email,
			subtotal: p.Price,
			discount: discount,
			couponID: couponID,
			product:  p,
		})
		if err != nil {
			return nil, err
		}
		return &InitiateResult{Free: true, Order: o}, nil
	}

	if final.LessThan(MinCharge) {
		return nil, ErrPriceTooLow
	}

	meta := map[string]string{
		payment.MetaUserID:         userID,
		payment.MetaProductID:      p.ID,
		payment.MetaProductName:    p.Name,
		payment.MetaOriginalPrice:  p.Price.StringFixed(2),
		payment.MetaDiscountAmount: discount.StringFixed(2),
	}
	if rule != nil {
		meta[payment.MetaCouponID] = rule.ID
		meta[payment.MetaCouponCode] = rule.Code
	}

	sess, err := s.provider.CreateSession(ctx, payment.SessionParams{
		AmountCents:   final.Shift(2).IntPart(),
		Currency:      s.cfg.Currency,
		ProductName:   p.Name,
		CustomerEmail: email,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
		Metadata:      meta,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create payment session")
	}

	return &InitiateResult{RedirectURL: sess.URL}, nil
}

// ClaimFree completes an order for a product that is free from the start.
// Unlike the free branch of Initiate, a repeat claim is rejected up front so
// the user gets a clear answer instead of a duplicate-looking order.
func (s *Service) ClaimFree(ctx context.Context, userID, email, productID string) (*order.Order, error) {
	p, err := s.products.GetActiveByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Price.IsZero() {
		return nil, ErrNotFree
	}

	owned, err := s.grants.Has(ctx, userID, productID)
	if err != nil {
		return nil, errors.Wrap(err, "check entitlement")
	}
	if owned {
		return nil, ErrAlreadyOwned
	}

	return s.complete(ctx, completion{
		userID:   userID,
		email:    email,
		subtotal: decimal.Zero,
		discount: decimal.Zero,
		product:  p,
	})
}

// CompleteSession reconciles a verified session-completed webhook event.
// Domain-name sales short-circuit to marking the listing inactive. Product
// purchases are idempotent on the provider session id: a duplicate delivery
// returns the existing order with OutcomeDuplicate and changes nothing.
func (s *Service) CompleteSession(ctx context.Context, sess payment.CheckoutSession) (*order.Order, Outcome, error) {
	if name := sess.Metadata[payment.MetaDomainName]; name != "" {
		if err := s.domains.MarkInactive(ctx, name); err != nil {
			return nil, OutcomeDomainSale, errors.Wrapf(err, "mark domain %s inactive", name)
		}
		return nil, OutcomeDomainSale, nil
	}

	recon, err := reconstructOrder(sess)
	if err != nil {
		return nil, OutcomeFulfilled, err
	}

	o, err := s.ledger.CreateCompleted(ctx, order.CreateParams{
		UserID:            recon.userID,
		Email:             recon.email,
		Subtotal:          recon.subtotal,
		DiscountAmount:    recon.discount,
		CouponID:          recon.couponID,
		ProviderSessionID: sess.ID,
		ProviderPaymentID: sess.PaymentIntent,
		Items: []order.Item{{
			ProductID:       recon.productID,
			ProductName:     recon.productName,
			PriceAtPurchase: recon.subtotal,
		}},
	})
	if err != nil {
		if errors.Is(err, order.ErrDuplicateSession) {
			existing, gerr := s.ledger.GetBySessionID(ctx, sess.ID)
			if gerr != nil {
				return nil, OutcomeDuplicate, errors.Wrap(gerr, "load existing order")
			}
			return existing, OutcomeDuplicate, nil
		}
		return nil, OutcomeFulfilled, err
	}

	if err := s.grants.Grant(ctx, recon.userID, o.ID, []string{recon.productID}); err != nil {
		// The order is durable; a failed grant surfaces as a processing error
		// so the provider redelivers. The reconcile job also repairs this.
		return o, OutcomeFulfilled, errors.Wrap(err, "grant entitlements")
	}

	return o, OutcomeFulfilled, nil
}

// ConfirmSession handles the secondary confirmation event. It never creates
// anything: it only reports whether the primary event was missed, which the
// caller logs as an operational anomaly.
func (s *Service) ConfirmSession(ctx context.Context, sessionID string) (missed bool, err error) {
	_, err = s.ledger.GetBySessionID(ctx, sessionID)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, order.ErrNotFound):
		return true, nil
	default:
		return false, errors.Wrap(err, "lookup order for session")
	}
}

// completion is the shared free/paid completion input.
type completion struct {
	userID   string
	email    string
	subtotal decimal.Decimal
	discount decimal.Decimal
	couponID string
	product  *product.Product
}

// complete runs the shared completion sequence: order ledger write, then
// entitlement grant with bundle fan-out.
func (s *Service) complete(ctx context.Context, c completion) (*order.Order, error) {
	o, err := s.ledger.CreateCompleted(ctx, order.CreateParams{
		UserID:         c.userID,
		Email:          c.email,
		Subtotal:       c.subtotal,
		DiscountAmount: c.discount,
		CouponID:       c.couponID,
		Items: []order.Item{{
			ProductID:       c.product.ID,
			ProductName:     c.product.Name,
			PriceAtPurchase: c.product.Price,
		}},
	})
	if err != nil {
		return nil, err
	}

	if err := s.grants.Grant(ctx, c.userID, o.ID, []string{c.product.ID}); err != nil {
		return nil, errors.Wrap(err, "grant entitlements")
	}

	return o, nil
}

// reconstructed holds the order fields recovered from session metadata.
type reconstructed struct {
	userID      string
	email       string
	productID   string
	productName string
	couponID    string
	subtotal    decimal.Decimal
	discount    decimal.Decimal
}

// reconstructOrder recovers the order payload embedded at session creation.
func reconstructOrder(sess payment.CheckoutSession) (*reconstructed, error) {
	meta := sess.Metadata
	r := &reconstructed{
		userID:      meta[payment.MetaUserID],
		email:       sess.CustomerEmail,
		productID:   meta[payment.MetaProductID],
		productName: meta[payment.MetaProductName],
		couponID:    meta[payment.MetaCouponID],
	}
	if r.userID == "" || r.productID == "" {
		return nil, errors.Errorf("session %s metadata missing order payload", sess.ID)
	}

	var err error
	if r.subtotal, err = decimal.NewFromString(meta[payment.MetaOriginalPrice]); err != nil {
		return nil, errors.Wrapf(err, "session %s original price", sess.ID)
	}
	r.discount = decimal.Zero
	if v := meta[payment.MetaDiscountAmount]; v != "" {
		if r.discount, err = decimal.NewFromString(v); err != nil {
			return nil, errors.Wrapf(err, "session %s discount amount", sess.ID)
		}
	}
	return r, nil
}
