package webhook_test

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/smsgate/pkg/webhook"
)

const (
	testSecret = "12345"
	testURL    = "https://mycompany.com/myapp.php?foo=1&bar=2"
)

func testParams() url.Values {
	return url.Values{
		"To":      {"+18005551212"},
		"From":    {"+14158675309"},
		"CallSid": {"CA1234567890ABCDE"},
		"Digits":  {"1234"},
		"Caller":  {"+14158675309"},
	}
}

func hmacSHA1(secret, data string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestComputeSignature_SortsParameters(t *testing.T) {
	t.Parallel()

	data := testURL +
		"CallSidCA1234567890ABCDE" +
		"Caller+14158675309" +
		"Digits1234" +
		"From+14158675309" +
		"To+18005551212"

	assert.Equal(t, hmacSHA1(testSecret, data), webhook.ComputeSignature(testURL, testParams(), testSecret))
}

func TestComputeSignature_RepeatedAndEmptyParams(t *testing.T) {
	t.Parallel()

	params := url.Values{"b": {"2", "1"}, "a": {""}}
	want := hmacSHA1(testSecret, "https://x.test/cb"+"a"+"b2"+"b1")
	assert.Equal(t, want, webhook.ComputeSignature("https://x.test/cb", params, testSecret))

	assert.Equal(t, hmacSHA1(testSecret, "https://x.test/cb"), webhook.ComputeSignature("https://x.test/cb", nil, testSecret))
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	valid := webhook.ComputeSignature(testURL, testParams(), testSecret)

	tampered := testParams()
	tampered.Set("Digits", "9999")

	tests := []struct {
		name      string
		url       string
		params    url.Values
		secret    string
		signature string
		wantErr   error
	}{
		{name: "valid", url: testURL, params: testParams(), secret: testSecret, signature: valid},
		{name: "missing secret", url: testURL, params: testParams(), signature: valid, wantErr: webhook.ErrMissingSecret},
		{name: "missing signature", url: testURL, params: testParams(), secret: testSecret, wantErr: webhook.ErrMissingSignature},
		{name: "tampered params", url: testURL, params: tampered, secret: testSecret, signature: valid, wantErr: webhook.ErrSignatureMismatch},
		{name: "different url", url: "https://evil.test/myapp.php?foo=1&bar=2", params: testParams(), secret: testSecret, signature: valid, wantErr: webhook.ErrSignatureMismatch},
		{name: "wrong secret", url: testURL, params: testParams(), secret: "other", signature: valid, wantErr: webhook.ErrSignatureMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := webhook.VerifySignature(tt.url, tt.params, tt.secret, tt.signature)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSignRequest(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/myapp.php?foo=1&bar=2", nil)
	webhook.SignRequest(r, "https://mycompany.com/", testParams(), testSecret)

	got := r.Header.Get(webhook.SignatureHeader)
	assert.Equal(t, webhook.ComputeSignature(testURL, testParams(), testSecret), got)
	assert.NoError(t, webhook.VerifySignature(testURL, testParams(), testSecret, got))
}
