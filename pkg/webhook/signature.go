package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderID        = "X-Webhook-ID"
)

// maxClockSkew is how far in the future a timestamp may be.
const maxClockSkew = time.Minute

// Signature authenticates one outbound request.
type Signature struct {
	Value     string
	Timestamp int64
	ID        string
}

// Sign computes hex(HMAC-SHA256(secret, "<unix ts>.<payload>")). The id
// travels alongside so the receiver can deduplicate deliveries.
func Sign(secret, id string, payload []byte, now time.Time) (Signature, error) {
	if secret == "" {
		return Signature{}, ErrMissingSecret
	}
	if len(payload) == 0 {
		return Signature{}, ErrEmptyPayload
	}
	ts := now.Unix()
	return Signature{Value: mac(secret, ts, payload), Timestamp: ts, ID: id}, nil
}

// Apply sets the signature headers on h.
func (s Signature) Apply(h http.Header) {
	h.Set(HeaderSignature, s.Value)
	h.Set(HeaderTimestamp, strconv.FormatInt(s.Timestamp, 10))
	if s.ID != "" {
		h.Set(HeaderID, s.ID)
	}
}

// Parse reads the signature headers from h.
func Parse(h http.Header) (Signature, error) {
	sig := Signature{Value: h.Get(HeaderSignature), ID: h.Get(HeaderID)}
	raw := h.Get(HeaderTimestamp)
	if sig.Value == "" || raw == "" {
		return Signature{}, ErrMissingSignature
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
	}
	sig.Timestamp = ts
	return sig, nil
}

// Verify checks sig against payload. A positive maxAge also bounds the
// timestamp age.
func Verify(secret string, payload []byte, sig Signature, maxAge time.Duration, now time.Time) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	if sig.Value == "" {
		return ErrMissingSignature
	}
	if maxAge > 0 {
		age := now.Sub(time.Unix(sig.Timestamp, 0))
		if age > maxAge || age < -maxClockSkew {
			return fmt.Errorf("%w: age %s", ErrSignatureExpired, age)
		}
	}
	if !hmac.Equal([]byte(mac(secret, sig.Timestamp, payload)), []byte(sig.Value)) {
		return ErrSignatureMismatch
	}
	return nil
}

func mac(secret string, ts int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = h.Write([]byte{'.'})
	_, _ = h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
