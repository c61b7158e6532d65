package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// DefaultAPIBase is the provider's REST API root.
const DefaultAPIBase = "https://api.stripe.com"

var _ Provider = (*Client)(nil)

// Client implements Provider against the provider's REST API. Requests are
// form-encoded, authenticated with the secret key, and use the underlying
// http.Client's timeout; no retry policy beyond the provider's own.
type Client struct {
	http      *http.Client
	apiBase   string
	secretKey string
}

// NewClient creates a provider client. apiBase falls back to DefaultAPIBase
// when empty; tests point it at a local server.
func NewClient(httpClient *http.Client, apiBase, secretKey string) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		http:      httpClient,
		apiBase:   strings.TrimSuffix(apiBase, "/"),
		secretKey: secretKey,
	}
}

// CreateSession creates a single-item hosted checkout session and returns its
// id and redirect URL.
func (c *Client) CreateSession(ctx context.Context, p SessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("customer_email", p.CustomerEmail)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", p.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.ProductName)
	for k, v := range p.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build session request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.secretKey, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout session")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read session response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("provider returned %d: %s", resp.StatusCode, snippet(body))
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrap(err, "decode session response")
	}
	if out.ID == "" || out.URL == "" {
		return nil, errors.New("provider response missing session id or url")
	}

	return &Session{ID: out.ID, URL: out.URL}, nil
}

// snippet truncates a response body for error messages.
func snippet(b []byte) string {
	const max = 256
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
