// Package signature signs and verifies payment confirmations the way the payment gateway does:
// hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the gateway signature of a payment for an order.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is the gateway signature of paymentID for orderID.
func Verify(secret, orderID, paymentID, sig string) bool {
	if sig == "" {
		return false
	}
	expected := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(sig))
}
