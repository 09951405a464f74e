package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	verifier := NewWebhookVerifier("secret")
	payload := []byte(`{"id":1}`)

	require.NoError(t, verifier.Verify(payload, signPayload("secret", payload)))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	verifier := NewWebhookVerifier("secret")
	payload := []byte(`{"id":1}`)

	assert.Error(t, verifier.Verify(payload, signPayload("other-secret", payload)))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	verifier := NewWebhookVerifier("secret")
	signature := signPayload("secret", []byte(`{"id":1}`))

	assert.Error(t, verifier.Verify([]byte(`{"id":2}`), signature))
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	verifier := NewWebhookVerifier("secret")

	assert.Error(t, verifier.Verify([]byte(`{"id":1}`), ""))
}

func TestVerifyRejectsGarbageHeader(t *testing.T) {
	verifier := NewWebhookVerifier("secret")

	assert.Error(t, verifier.Verify([]byte(`{"id":1}`), "not-base64-hmac"))
}
