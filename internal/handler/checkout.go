package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/inkstore/internal/domain/checkout"
	"github.com/xenking/inkstore/internal/domain/coupon"
	"github.com/xenking/inkstore/internal/domain/product"
)

type checkoutRequest struct {
	ProductID  string `json:"productId"`
	CouponCode string `json:"couponCode,omitempty"`
}

type checkoutResponse struct {
	Free        bool   `json:"free"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
	OrderNumber string `json:"orderNumber,omitempty"`
}

// Checkout starts a purchase: either a redirect to the hosted payment page
// or, when the discounted price is zero, a synchronously completed order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req checkoutRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "productId required")
		return
	}

	res, err := h.checkout.Initiate(r.Context(), id.UserID, id.Email, req.ProductID, req.CouponCode)
	if err != nil {
		h.checkoutError(w, r, err)
		return
	}

	if res.Free {
		respondJSON(w, http.StatusOK, checkoutResponse{
			Free:        true,
			OrderID:     res.Order.ID,
			OrderNumber: res.Order.OrderNumber,
		})
		return
	}
	respondJSON(w, http.StatusOK, checkoutResponse{RedirectURL: res.RedirectURL})
}

// ClaimFree completes an order for a product that is free from the start.
func (h *Handler) ClaimFree(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		ProductID string `json:"productId"`
	}
	if err := decodeBody(r, &req); err != nil || req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "productId required")
		return
	}

	o, err := h.checkout.ClaimFree(r.Context(), id.UserID, id.Email, req.ProductID)
	if err != nil {
		h.checkoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, checkoutResponse{
		Free:        true,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
	})
}

// checkoutError maps domain rejections to client errors; everything else is
// an internal failure the user may safely retry (no partial order exists).
func (h *Handler) checkoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, "product not found")
	case isCouponRejection(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrPriceTooLow),
		errors.Is(err, checkout.ErrAlreadyOwned),
		errors.Is(err, checkout.ErrNotFree):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondInternal(w, r, err)
	}
}

// isCouponRejection reports whether err is one of the evaluator's ordered
// rejection reasons, all of which surface verbatim to the caller.
func isCouponRejection(err error) bool {
	for _, sentinel := range []error{
		coupon.ErrInvalidCode,
		coupon.ErrNotYetActive,
		coupon.ErrExpired,
		coupon.ErrUsageLimitReached,
		coupon.ErrUserLimitReached,
		coupon.ErrWrongProduct,
		coupon.ErrMinPurchase,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
