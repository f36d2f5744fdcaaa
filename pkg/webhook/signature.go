package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// SignatureHeader carries the provider's request signature.
const SignatureHeader = "X-Twilio-Signature"

// ComputeSignature returns base64(HMAC-SHA1(secret, data)) where data is the
// full request URL followed by every form parameter, sorted by name, written
// as name+value with no separators. Repeated parameters contribute each value
// in order.
func ComputeSignature(rawURL string, params url.Values, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(rawURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against the expected value in constant time.
func VerifySignature(rawURL string, params url.Values, secret, signature string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if signature == "" {
		return ErrMissingSignature
	}

	expected := ComputeSignature(rawURL, params, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// SignRequest sets the signature header on r the way the provider would for
// params posted to baseURL + r.URL.RequestURI(). Used by tests and local
// simulators.
func SignRequest(r *http.Request, baseURL string, params url.Values, secret string) {
	signedURL := strings.TrimRight(baseURL, "/") + r.URL.RequestURI()
	r.Header.Set(SignatureHeader, ComputeSignature(signedURL, params, secret))
}
