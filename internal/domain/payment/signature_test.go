package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("s"))
	mac.Write([]byte("order_1|pay_1"))
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, Sign("order_1", "pay_1", "s"))
	assert.NotEqual(t, want, Sign("order_1", "pay_1", "other"))
	assert.NotEqual(t, want, Sign("pay_1", "order_1", "s"))
}

func TestVerifySignature(t *testing.T) {
	valid := Sign("order_1", "pay_1", "s")

	tests := []struct {
		name    string
		conf    Confirmation
		wantErr bool
	}{
		{"matching signature", Confirmation{"order_1", "pay_1", valid}, false},
		{"tampered payment id", Confirmation{"order_1", "pay_2", valid}, true},
		{"garbage signature", Confirmation{"order_1", "pay_1", "deadbeef"}, true},
		{"missing signature", Confirmation{"order_1", "pay_1", ""}, true},
		{"uppercase hex is rejected", Confirmation{"order_1", "pay_1", "X" + valid[1:]}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.conf, "s")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSignature)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFailureDetail_Error(t *testing.T) {
	assert.Equal(t, "Card declined", FailureDetail{Code: "BAD_REQUEST_ERROR", Description: "Card declined"}.Error())
	assert.Equal(t, "BAD_REQUEST_ERROR", FailureDetail{Code: "BAD_REQUEST_ERROR"}.Error())
	assert.Equal(t, "Payment failed", FailureDetail{}.Error())
}
