package pesapal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHmac256_Deterministic(t *testing.T) {
	a := Hmac256([]byte("payload"), []byte("key"))
	b := Hmac256([]byte("payload"), []byte("key"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c := Hmac256([]byte("payload"), []byte("other-key"))
	assert.NotEqual(t, a, c)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"merchant_reference":"TM-ABC123","amount":"100.00"}`)
	sig := Hmac256(body, []byte("secret"))

	assert.True(t, VerifySignature(body, "secret", sig))
	assert.False(t, VerifySignature(body, "wrong-secret", sig))
	assert.False(t, VerifySignature([]byte("tampered"), "secret", sig))
}
