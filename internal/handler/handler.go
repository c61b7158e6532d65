// Package handler exposes the checkout subsystem over HTTP/JSON.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/inkstore/internal/assets"
	"github.com/xenking/inkstore/internal/domain/checkout"
	"github.com/xenking/inkstore/internal/domain/coupon"
	"github.com/xenking/inkstore/internal/domain/entitlement"
	"github.com/xenking/inkstore/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// JWTSecret verifies bearer tokens minted by the auth collaborator.
	JWTSecret []byte
	// WebhookSecret verifies payment provider webhook signatures.
	WebhookSecret []byte
	// DownloadTTL bounds how long an issued download link stays valid.
	DownloadTTL time.Duration
}

// Handler implements the HTTP API, delegating business logic to the checkout
// service and domain repositories.
type Handler struct {
	cfg      Config
	checkout *checkout.Service
	coupons  coupon.Evaluator
	products product.Repository
	access   entitlement.Repository
	files    assets.Store
	now      func() time.Time
}

// New constructs a Handler with the required dependencies.
func New(
	cfg Config,
	checkoutSvc *checkout.Service,
	coupons coupon.Evaluator,
	products product.Repository,
	access entitlement.Repository,
	files assets.Store,
) *Handler {
	return &Handler{
		cfg:      cfg,
		checkout: checkoutSvc,
		coupons:  coupons,
		products: products,
		access:   access,
		files:    files,
		now:      time.Now,
	}
}

// Routes registers all API routes on the given mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/checkout", h.requireAuth(h.Checkout))
	mux.HandleFunc("POST /api/claim", h.requireAuth(h.ClaimFree))
	mux.HandleFunc("GET /api/downloads/{fileID}", h.requireAuth(h.Download))
	mux.HandleFunc("POST /api/coupons/validate", h.ValidateCoupon)
	mux.HandleFunc("POST /api/webhooks/payment", h.PaymentWebhook)
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Code: status, Message: msg})
}

// respondInternal logs the failure and answers with a generic 500 so internal
// details never leak to clients.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}

// decodeBody decodes a small JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
