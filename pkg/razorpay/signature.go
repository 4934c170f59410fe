package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayment computes the checkout signature over order id and payment id.
func SignPayment(providerOrderID, providerPaymentID, secret string) string {
	return sign([]byte(providerOrderID+"|"+providerPaymentID), secret)
}

// VerifyPaymentSignature checks the client-submitted checkout signature in
// constant time.
func VerifyPaymentSignature(providerOrderID, providerPaymentID, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := SignPayment(providerOrderID, providerPaymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the provider signature over the raw webhook
// body in constant time.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func sign(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
