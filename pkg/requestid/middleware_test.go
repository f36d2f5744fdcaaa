package requestid_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/smsgate/pkg/logger"
	"github.com/dmitrymomot/smsgate/pkg/requestid"
)

func serve(t *testing.T, headers map[string]string) (ctxID, respID string) {
	t.Helper()

	h := requestid.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctxID = requestid.FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/webhooks/sms/status", nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return ctxID, rec.Header().Get(requestid.Header)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		want    string // empty means a generated uuid
	}{
		{name: "generated", headers: nil},
		{name: "from header", headers: map[string]string{requestid.Header: "req-123"}, want: "req-123"},
		{name: "from provider token", headers: map[string]string{requestid.ProviderHeader: "a1b2c3-d4e5"}, want: "a1b2c3-d4e5"},
		{name: "header wins over provider", headers: map[string]string{requestid.Header: "req-1", requestid.ProviderHeader: "tok-2"}, want: "req-1"},
		{name: "invalid header falls back to provider", headers: map[string]string{requestid.Header: "bad id", requestid.ProviderHeader: "tok-3"}, want: "tok-3"},
		{name: "injection replaced", headers: map[string]string{requestid.Header: "<script>alert(1)</script>"}},
		{name: "too long replaced", headers: map[string]string{requestid.Header: strings.Repeat("a", 129)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctxID, respID := serve(t, tt.headers)
			assert.Equal(t, ctxID, respID)
			if tt.want != "" {
				assert.Equal(t, tt.want, ctxID)
				return
			}
			_, err := uuid.Parse(ctxID)
			assert.NoError(t, err)
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(context.Background()))
	assert.Equal(t, "abc", requestid.FromContext(requestid.WithContext(context.Background(), "abc")))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithJSONFormatter(),
		logger.WithOutput(&buf),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)

	log.InfoContext(requestid.WithContext(context.Background(), "req-42"), "handled")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-42", rec["request_id"])
}
