package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the provider's signature in the scheme
// "t=<unix>,v1=<hex hmac-sha256 of "<t>.<body>">". Multiple v1 entries are
// allowed during secret rotation on the provider side.
const SignatureHeader = "Seedleaf-Pay-Signature"

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrSignatureInvalid = errors.New("signature verification failed")
)

// VerifySignature is the single trust boundary of the pipeline: nothing in
// the request body may be acted on before it passes. Comparison is
// constant-time, and the timestamp must fall within tolerance of now to
// bound replay of captured deliveries.
func VerifySignature(body []byte, header string, secret string, now time.Time, tolerance time.Duration) error {
	if header == "" {
		return ErrMissingSignature
	}

	var tsRaw string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			tsRaw = v
		case "v1":
			candidates = append(candidates, v)
		}
	}
	if tsRaw == "" || len(candidates) == 0 {
		return fmt.Errorf("%w: malformed header", ErrSignatureInvalid)
	}

	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", ErrSignatureInvalid)
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > tolerance || age < -tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(tsRaw))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, candidate := range candidates {
		decoded, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return ErrSignatureInvalid
}

// ComputeSignatureHeader produces a valid header for the given body. Used by
// dev tooling and tests; the real header comes from the provider.
func ComputeSignatureHeader(body []byte, secret string, at time.Time) string {
	tsRaw := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(tsRaw))
	mac.Write([]byte("."))
	mac.Write(body)
	return fmt.Sprintf("t=%s,v1=%s", tsRaw, hex.EncodeToString(mac.Sum(nil)))
}
