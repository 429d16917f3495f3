package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const SignatureHeader = "x-square-hmacsha256-signature"

var ErrBadSignature = errors.New("invalid webhook signature")

// Verifier checks the provider's signature: base64(HMAC-SHA256(key,
// notification_url + raw_body)).
type Verifier struct {
	key             []byte
	notificationURL string
}

// NewVerifier returns a verifier. An empty key disables verification.
func NewVerifier(signatureKey, notificationURL string) *Verifier {
	return &Verifier{key: []byte(signatureKey), notificationURL: notificationURL}
}

func (v *Verifier) Enabled() bool {
	return len(v.key) > 0
}

func (v *Verifier) Verify(body []byte, signature string) error {
	if !v.Enabled() {
		return nil
	}
	if signature == "" {
		return ErrBadSignature
	}

	expected := v.Sign(body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// Sign computes the signature the provider would send for body.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(v.notificationURL))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
