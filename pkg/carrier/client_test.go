package carrier_test

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/smsgate/pkg/carrier"
	"github.com/dmitrymomot/smsgate/pkg/retry"
)

func newClient(t *testing.T, h http.HandlerFunc) *carrier.Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := carrier.New(carrier.Config{
		BaseURL:           srv.URL + "/",
		AccountSID:        "AC123",
		AuthToken:         "secret",
		FromNumber:        "+15550000000",
		StatusCallbackURL: "https://sms.example.com/webhooks/sms/status",
	}, carrier.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := carrier.New(carrier.Config{AuthToken: "x", FromNumber: "+1"})
	assert.ErrorIs(t, err, carrier.ErrInvalidConfig)

	_, err = carrier.New(carrier.Config{AccountSID: "AC", AuthToken: "x"})
	assert.ErrorIs(t, err, carrier.ErrInvalidConfig)

	c, err := carrier.New(carrier.Config{AccountSID: "AC", AuthToken: "x", FromNumber: "+15550000000"})
	require.NoError(t, err)
	assert.Equal(t, "+15550000000", c.From())
}

func TestClient_Send(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15551234567", r.PostForm.Get("To"))
		assert.Equal(t, "+15550000000", r.PostForm.Get("From"))
		assert.Equal(t, "Truck 12 arriving", r.PostForm.Get("Body"))
		assert.Equal(t, "https://sms.example.com/webhooks/sms/status", r.PostForm.Get("StatusCallback"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM42","status":"queued","num_segments":"2"}`))
	})

	res, err := c.Send(context.Background(), "+15551234567", "Truck 12 arriving")
	require.NoError(t, err)
	assert.Equal(t, carrier.SendResult{SID: "SM42", Status: "queued", Segments: 2}, res)
}

func TestClient_SendErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		body          string
		wantCode      int
		wantRetryable bool
	}{
		{name: "invalid number", status: 400, body: `{"code":21211,"message":"The 'To' number is not valid","status":400}`, wantCode: 21211},
		{name: "unsubscribed", status: 400, body: `{"code":21610,"message":"Attempt to send to unsubscribed recipient"}`, wantCode: 21610},
		{name: "throttled with code", status: 429, body: `{"code":20429,"message":"Too Many Requests"}`, wantCode: 20429, wantRetryable: true},
		{name: "throttled without body", status: 429, wantCode: 20429, wantRetryable: true},
		{name: "unavailable without body", status: 503, body: "<html>down</html>", wantCode: 20503, wantRetryable: true},
		{name: "bad gateway without body", status: 502, wantCode: 20500, wantRetryable: true},
		{name: "unauthorized", status: 401, body: `{"code":20003,"message":"Authenticate"}`, wantCode: 20003},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Send(context.Background(), "+15551234567", "hi")
			require.Error(t, err)

			pe, ok := carrier.AsProviderError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, pe.HTTPStatus)
			assert.Equal(t, tt.wantCode, pe.ProviderCode())
			assert.NotEmpty(t, pe.Message)
			assert.Equal(t, tt.wantRetryable, retry.DefaultIsRetryable(err))
		})
	}
}

func TestClient_TransportErrorIsRetryable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := carrier.New(carrier.Config{
		BaseURL:    srv.URL,
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15550000000",
	})
	require.NoError(t, err)

	_, err = c.Send(context.Background(), "+15551234567", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, carrier.ErrTransport)
	assert.True(t, retry.DefaultIsRetryable(err))
}

func TestClient_InvalidInputAndResponse(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	})

	_, err := c.Send(context.Background(), "", "hi")
	assert.ErrorIs(t, err, carrier.ErrInvalidRequest)

	_, err = c.Send(context.Background(), "+15551234567", "   ")
	assert.ErrorIs(t, err, carrier.ErrInvalidRequest)

	_, err = c.Send(context.Background(), "+15551234567", "hi")
	assert.ErrorIs(t, err, carrier.ErrInvalidResponse)
	assert.False(t, retry.DefaultIsRetryable(err))
}

func TestClient_ContextCancelled(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Send(ctx, "+15551234567", "hi")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, retry.DefaultIsRetryable(err))
}

func TestMessagingResponse(t *testing.T) {
	t.Parallel()

	empty, err := carrier.NewMessagingResponse().Marshal()
	require.NoError(t, err)
	assert.Equal(t, xml.Header+"<Response></Response>", string(empty))

	reply, err := carrier.NewMessagingResponse("You are unsubscribed & won't get more <messages>.").Marshal()
	require.NoError(t, err)
	assert.Equal(t, xml.Header+"<Response><Message>You are unsubscribed &amp; won&#39;t get more &lt;messages&gt;.</Message></Response>", string(reply))

	skipped := carrier.NewMessagingResponse("", "")
	assert.Empty(t, skipped.Messages)
}
