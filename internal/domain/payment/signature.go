package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex HMAC-SHA256 of "<orderID>|<paymentID>" keyed by secret
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a widget confirmation in constant time
func VerifySignature(c Confirmation, secret string) error {
	if !c.Complete() {
		return ErrInvalidSignature
	}
	expected := Sign(c.OrderID, c.PaymentID, secret)
	if !hmac.Equal([]byte(expected), []byte(c.Signature)) {
		return ErrInvalidSignature
	}
	return nil
}
