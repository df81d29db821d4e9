package hmacsig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "shpss_test_secret"

func hexSign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func base64Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyCallback_AcceptsCorrectSignature(t *testing.T) {
	v := New(testSecret)

	params := url.Values{}
	params.Set("code", "abc123")
	params.Set("shop", "demo-store.myshopify.com")
	params.Set("state", "deadbeef")
	params.Set("timestamp", "1700000000")
	// keys sorted, hmac and legacy signature excluded
	message := "code=abc123&shop=demo-store.myshopify.com&state=deadbeef&timestamp=1700000000"
	params.Set("hmac", hexSign(testSecret, message))
	params.Set("signature", "legacy-ignored")

	assert.True(t, v.VerifyCallback(params))
}

func TestVerifyCallback_JoinsMultiValuedParamsWithComma(t *testing.T) {
	v := New(testSecret)

	params := url.Values{}
	params.Add("ids", "1")
	params.Add("ids", "2")
	params.Set("shop", "demo-store.myshopify.com")
	message := "ids=1,2&shop=demo-store.myshopify.com"
	params.Set("hmac", hexSign(testSecret, message))

	assert.True(t, v.VerifyCallback(params))
}

func TestVerifyCallback_RejectsTamperedValue(t *testing.T) {
	v := New(testSecret)

	params := url.Values{}
	params.Set("code", "abc123")
	params.Set("shop", "demo-store.myshopify.com")
	message := "code=abc123&shop=demo-store.myshopify.com"
	params.Set("hmac", hexSign(testSecret, message))
	require.True(t, v.VerifyCallback(params))

	params.Set("shop", "evil-store.myshopify.com")
	assert.False(t, v.VerifyCallback(params))
}

func TestVerifyCallback_RejectsMissingHMACOrSecret(t *testing.T) {
	params := url.Values{}
	params.Set("code", "abc123")
	assert.False(t, New(testSecret).VerifyCallback(params), "missing hmac param")

	params.Set("hmac", hexSign(testSecret, "code=abc123"))
	assert.False(t, New("").VerifyCallback(params), "missing secret")
	assert.True(t, New(testSecret).VerifyCallback(params))
}

func TestVerifyWebhook_AcceptsCorrectSignature(t *testing.T) {
	v := New(testSecret)
	body := []byte(`{"id":1234,"title":"A product"}`)
	assert.True(t, v.VerifyWebhook(body, base64Sign(testSecret, body)))
}

func TestVerifyWebhook_RejectsFlippedBodyByte(t *testing.T) {
	v := New(testSecret)
	body := []byte(`{"id":1234,"title":"A product"}`)
	sig := base64Sign(testSecret, body)

	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] ^= 0x01
	assert.False(t, v.VerifyWebhook(tampered, sig))
}

func TestVerifyWebhook_RejectsGarbageHeader(t *testing.T) {
	v := New(testSecret)
	body := []byte(`{}`)
	assert.False(t, v.VerifyWebhook(body, ""))
	assert.False(t, v.VerifyWebhook(body, "not-base64!!!"))
	assert.False(t, v.VerifyWebhook(body, base64Sign("wrong-secret", body)))
}
