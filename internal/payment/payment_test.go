package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	secret := []byte("whsec_test")
	body := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("valid", func(t *testing.T) {
		header := Sign(body, secret, now)
		require.NoError(t, VerifySignature(body, header, secret, now))
	})

	t.Run("valid within tolerance", func(t *testing.T) {
		header := Sign(body, secret, now)
		require.NoError(t, VerifySignature(body, header, secret, now.Add(4*time.Minute)))
	})

	t.Run("stale timestamp", func(t *testing.T) {
		header := Sign(body, secret, now)
		err := VerifySignature(body, header, secret, now.Add(10*time.Minute))
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("wrong secret", func(t *testing.T) {
		header := Sign(body, []byte("other"), now)
		err := VerifySignature(body, header, secret, now)
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("tampered body", func(t *testing.T) {
		header := Sign(body, secret, now)
		tampered := append([]byte(nil), body...)
		tampered[0] = ' '
		err := VerifySignature(tampered, header, secret, now)
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		err := VerifySignature(body, "", secret, now)
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("garbage header", func(t *testing.T) {
		err := VerifySignature(body, "t=abc,v1=zz", secret, now)
		require.ErrorIs(t, err, ErrBadSignature)
	})
}

func TestParseEvent(t *testing.T) {
	body := []byte(`{
		"id": "evt_123",
		"object": "event",
		"api_version": "2024-06-20",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"object": "checkout.session",
				"payment_intent": "pi_42",
				"customer_email": "buyer@example.com",
				"amount_total": 1500,
				"metadata": {
					"userId": "u1",
					"productId": "p1",
					"originalPrice": "20.00"
				}
			}
		}
	}`)

	ev, err := ParseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "evt_123", ev.ID)
	assert.Equal(t, EventSessionCompleted, ev.Type)
	assert.Equal(t, "cs_test_1", ev.Session.ID)
	assert.Equal(t, "pi_42", ev.Session.PaymentIntent)
	assert.Equal(t, "buyer@example.com", ev.Session.CustomerEmail)
	assert.Equal(t, "u1", ev.Session.Metadata[MetaUserID])
	assert.Equal(t, "20.00", ev.Session.Metadata[MetaOriginalPrice])
}

func TestParseEvent_NullFields(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"x","data":{"object":{"id":"cs_1","payment_intent":null,"customer_email":null,"metadata":null}}}`)

	ev, err := ParseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", ev.Session.ID)
	assert.Empty(t, ev.Session.PaymentIntent)
	assert.Nil(t, ev.Session.Metadata)
}

func TestParseEvent_Invalid(t *testing.T) {
	_, err := ParseEvent([]byte(`{"id":"evt_1"}`))
	require.Error(t, err)

	_, err = ParseEvent([]byte(`not json`))
	require.Error(t, err)
}

func TestClient_CreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)

		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "sk_test", user)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.Form.Get("mode"))
		assert.Equal(t, "1500", r.Form.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "usd", r.Form.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "p1", r.Form.Get("metadata[productId]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://pay.example.com/cs_test_1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "sk_test")
	sess, err := c.CreateSession(context.Background(), SessionParams{
		AmountCents:   1500,
		Currency:      "usd",
		ProductName:   "Widget",
		CustomerEmail: "buyer@example.com",
		SuccessURL:    "https://shop.example.com/done",
		CancelURL:     "https://shop.example.com/cancel",
		Metadata:      map[string]string{MetaProductID: "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://pay.example.com/cs_test_1", sess.URL)
}

func TestClient_CreateSessionProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"invalid amount"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "sk_test")
	_, err := c.CreateSession(context.Background(), SessionParams{AmountCents: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
