package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/inkstore/internal/domain/checkout"
	"github.com/xenking/inkstore/internal/payment"
)

// maxWebhookBody bounds provider event payloads.
const maxWebhookBody = 1 << 20

// PaymentWebhook receives asynchronous provider events. The body is read as
// raw bytes before any parsing because the signature covers the exact byte
// sequence. Responses follow the provider's retry contract: 2xx for anything
// handled or deliberately ignored, 400 for bad signatures, 5xx only for
// processing failures worth redelivering.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if err := payment.VerifySignature(body, sig, h.cfg.WebhookSecret, h.now()); err != nil {
		lg.Warn("webhook signature rejected", zap.Error(err))
		respondError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	ev, err := payment.ParseEvent(body)
	if err != nil {
		// Verified but unparseable: redelivery won't help, ack and log.
		lg.Error("webhook event unparseable", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	switch ev.Type {
	case payment.EventSessionCompleted:
		h.sessionCompleted(w, r, ev)
	case payment.EventAsyncPaymentSucceeded:
		h.sessionConfirmed(w, r, ev)
	default:
		// Not our concern; acknowledge so the provider stops retrying.
		w.WriteHeader(http.StatusOK)
	}
}

func (h *Handler) sessionCompleted(w http.ResponseWriter, r *http.Request, ev *payment.Event) {
	lg := zctx.From(r.Context())

	o, outcome, err := h.checkout.CompleteSession(r.Context(), ev.Session)
	if err != nil {
		// Non-2xx makes the provider redeliver with its own backoff; the
		// session id uniqueness makes that redelivery safe.
		lg.Error("webhook fulfillment failed",
			zap.String("event_id", ev.ID),
			zap.String("session_id", ev.Session.ID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	switch outcome {
	case checkout.OutcomeFulfilled:
		lg.Info("order fulfilled from webhook",
			zap.String("session_id", ev.Session.ID),
			zap.String("order_id", o.ID),
			zap.String("order_number", o.OrderNumber),
		)
	case checkout.OutcomeDuplicate:
		lg.Info("duplicate webhook delivery ignored",
			zap.String("session_id", ev.Session.ID),
			zap.String("order_id", o.ID),
		)
	case checkout.OutcomeDomainSale:
		lg.Info("domain sale settled", zap.String("session_id", ev.Session.ID))
	}
	w.WriteHeader(http.StatusOK)
}

// sessionConfirmed handles the secondary confirmation event: a consistency
// check only. A missing order means the primary event was lost; that is
// logged as an operational anomaly, never auto-remediated, since creating
// orders from a different event shape would duplicate metadata assumptions.
func (h *Handler) sessionConfirmed(w http.ResponseWriter, r *http.Request, ev *payment.Event) {
	missed, err := h.checkout.ConfirmSession(r.Context(), ev.Session.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	if missed {
		zctx.From(r.Context()).Error("confirmation for session with no order; primary event may be lost",
			zap.String("event_id", ev.ID),
			zap.String("session_id", ev.Session.ID),
		)
	}
	w.WriteHeader(http.StatusOK)
}
