package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrBadSignature is returned for any signature header that fails
// verification. Payloads carrying it must never be processed.
var ErrBadSignature = errors.New("webhook signature verification failed")

// signatureTolerance bounds how stale a signed timestamp may be, guarding
// against replay of captured deliveries.
const signatureTolerance = 5 * time.Minute

// VerifySignature checks the provider's signature header against the raw
// request body. The header has the form "t=<unix>,v1=<hex>[,v1=<hex>...]";
// the signed payload is "<unix>.<body>" and the scheme is HMAC-SHA256 with
// the shared webhook secret. The signature covers the exact byte sequence,
// which is why callers must pass the body unparsed.
func VerifySignature(body []byte, header string, secret []byte, now time.Time) error {
	ts, sigs, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if d := now.Sub(time.Unix(ts, 0)); d > signatureTolerance || d < -signatureTolerance {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, sig := range sigs {
		got, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if subtle.ConstantTimeCompare(expected, got) == 1 {
			return nil
		}
	}
	return ErrBadSignature
}

// Sign produces a signature header for the given body, for tests and local
// webhook replay tooling.
func Sign(body []byte, secret []byte, now time.Time) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (ts int64, sigs []string, err error) {
	if header == "" {
		return 0, nil, ErrBadSignature
	}
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, ErrBadSignature
			}
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return 0, nil, ErrBadSignature
	}
	return ts, sigs, nil
}
