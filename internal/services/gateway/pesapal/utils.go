package pesapal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Hmac256 is a function to generate HMAC256 hash.
func Hmac256(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// VerifySignature checks a webhook body against its HMAC signature.
func VerifySignature(body []byte, secret, receivedHMAC string) bool {
	expectedHMAC := Hmac256(body, []byte(secret))
	return hmac.Equal([]byte(receivedHMAC), []byte(expectedHMAC))
}
