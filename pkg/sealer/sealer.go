// Package sealer signs and verifies payloads with HMAC-SHA256 hex digests, the
// scheme the payment gateway uses for both checkout callbacks and webhooks.
package sealer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Separator joins the parts of a composite payload such as "order_id|payment_id".
const Separator = "|"

func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func SignParts(secret string, parts ...string) string {
	return Sign(secret, []byte(strings.Join(parts, Separator)))
}

// Verify compares in constant time. An empty secret or signature never verifies.
func Verify(secret string, payload []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")
	return hmac.Equal([]byte(Sign(secret, payload)), []byte(strings.ToLower(signature)))
}

func VerifyParts(secret, signature string, parts ...string) bool {
	return Verify(secret, []byte(strings.Join(parts, Separator)), signature)
}
