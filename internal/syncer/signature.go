package syncer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader is the request header carrying the webhook signature.
const SignatureHeader = "x-webhook-signature"

// ErrInvalidSignature indicates a webhook signature mismatch.
var ErrInvalidSignature = errors.New("syncer: invalid webhook signature")

// Sign computes the hex HMAC-SHA256 signature of a raw request body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a presented signature against the raw body using a
// constant-time compare. Enforcement policy is the caller's: a missing header
// or unconfigured secret is not checked here.
func VerifySignature(secret string, body []byte, presented string) error {
	expected := Sign(secret, body)
	presented = strings.TrimSpace(strings.ToLower(presented))
	if !hmac.Equal([]byte(expected), []byte(presented)) {
		return ErrInvalidSignature
	}
	return nil
}
