package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type validateCouponRequest struct {
	Code      string          `json:"code"`
	ProductID string          `json:"productId"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type validateCouponResponse struct {
	Valid          bool   `json:"valid"`
	DiscountAmount string `json:"discountAmount,omitempty"`
	NewTotal       string `json:"newTotal,omitempty"`
	Error          string `json:"error,omitempty"`
}

// ValidateCoupon is a read-only preview of coupon evaluation, used by the UI
// before committing to checkout. It records nothing. The endpoint works
// without authentication; anonymous previews evaluate per-user limits against
// an empty account with no usage history.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "code and productId required")
		return
	}
	if req.Subtotal.IsNegative() {
		respondError(w, http.StatusBadRequest, "subtotal must not be negative")
		return
	}

	// Identity is optional here: logged-in previews check per-user limits,
	// anonymous ones evaluate against an account with no usage history.
	userID := ""
	if token, ok := bearerToken(r); ok {
		if id, err := h.parseIdentity(token); err == nil {
			userID = id.UserID
		}
	}

	res, err := h.coupons.Evaluate(r.Context(), req.Code, userID, req.ProductID, req.Subtotal)
	if err != nil {
		if isCouponRejection(err) {
			respondJSON(w, http.StatusOK, validateCouponResponse{Valid: false, Error: err.Error()})
			return
		}
		respondInternal(w, r, err)
		return
	}

	newTotal := req.Subtotal.Sub(res.Discount)
	if newTotal.IsNegative() {
		newTotal = decimal.Zero
	}
	respondJSON(w, http.StatusOK, validateCouponResponse{
		Valid:          true,
		DiscountAmount: res.Discount.StringFixed(2),
		NewTotal:       newTotal.StringFixed(2),
	})
}
