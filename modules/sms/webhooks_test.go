package sms_test

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/smsgate/pkg/ratelimiter"
	"github.com/dmitrymomot/smsgate/svc/messaging"
)

func TestWebhooks_Inbound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantReply  string
		wantOptOut bool
	}{
		{name: "stop", body: "stop", wantReply: messaging.OptOutReply, wantOptOut: true},
		{name: "help", body: " HELP ", wantReply: messaging.HelpReply},
		{name: "plain text", body: "running late, see you at 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := newGateway(t)
			rec := g.do(signedCallback("/webhooks/sms/inbound", inboundForm("SMin1", tt.body)))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/xml")
			assert.Contains(t, rec.Body.String(), "<Response>")
			if tt.wantReply != "" {
				assert.Contains(t, rec.Body.String(), "<Message>"+escapeXML(t, tt.wantReply)+"</Message>")
			} else {
				assert.NotContains(t, rec.Body.String(), "<Message>")
			}

			msg, err := g.store.FindMessageByProviderID(context.Background(), "SMin1")
			require.NoError(t, err)
			assert.Equal(t, messaging.DirectionInbound, msg.Direction)
			assert.Equal(t, tt.body, msg.Body)

			consent, err := g.store.GetOptOut(context.Background(), subscriber)
			if tt.wantOptOut {
				require.NoError(t, err)
				assert.True(t, consent.IsOptedOut())
			} else {
				assert.ErrorIs(t, err, messaging.ErrOptOutNotFound)
			}
		})
	}
}

func TestWebhooks_Inbound_MinimalPayload(t *testing.T) {
	t.Parallel()

	g := newGateway(t)
	form := url.Values{
		"From":        {"5551234567"},
		"Body":        {"Hello"},
		"MessageSid":  {"SM123"},
		"NumSegments": {"1"},
	}
	rec := g.do(signedCallback("/webhooks/sms/inbound", form))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "<Message>")

	thread, err := g.store.ListConversation(context.Background(), subscriber, 10)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, "SM123", thread[0].ProviderMessageID)
	assert.Equal(t, "Hello", thread[0].Body)
	assert.Empty(t, thread[0].To)
}

func TestWebhooks_SignatureRejection(t *testing.T) {
	t.Parallel()

	form := inboundForm("SMin1", "STOP")
	tampered := inboundForm("SMin1", "START")

	tests := []struct {
		name     string
		opts     []gatewayOption
		req      *http.Request
		wantCode int
	}{
		{
			name:     "tampered body",
			req:      callback("/webhooks/sms/inbound", form, tampered, testSecret),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "wrong secret",
			req:      callback("/webhooks/sms/inbound", form, form, "other-secret"),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "missing signature",
			req:      callback("/webhooks/sms/inbound", form, form, ""),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "no secret configured",
			opts:     []gatewayOption{withSecret("")},
			req:      signedCallback("/webhooks/sms/inbound", form),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := newGateway(t, tt.opts...)
			rec := g.do(tt.req)

			assert.Equal(t, tt.wantCode, rec.Code)
			_, err := g.store.FindMessageByProviderID(context.Background(), "SMin1")
			assert.ErrorIs(t, err, messaging.ErrMessageNotFound)
			_, err = g.store.GetOptOut(context.Background(), subscriber)
			assert.ErrorIs(t, err, messaging.ErrOptOutNotFound)
		})
	}
}

func TestWebhooks_SkipValidation(t *testing.T) {
	t.Parallel()

	g := newGateway(t, withSecret(""), withSkipValidation())
	form := inboundForm("SMin1", "hello")
	rec := g.do(callback("/webhooks/sms/inbound", form, form, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	_, err := g.store.FindMessageByProviderID(context.Background(), "SMin1")
	assert.NoError(t, err)
}

func TestWebhooks_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		form url.Values
	}{
		{name: "inbound without sender", path: "/webhooks/sms/inbound", form: url.Values{"MessageSid": {"SM1"}, "Body": {"hi"}}},
		{name: "inbound without sid", path: "/webhooks/sms/inbound", form: url.Values{"From": {subscriber}, "Body": {"hi"}}},
		{name: "status without status", path: "/webhooks/sms/status", form: url.Values{"MessageSid": {"SM1"}}},
		{name: "status without sid", path: "/webhooks/sms/status", form: url.Values{"MessageStatus": {"sent"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := newGateway(t)
			rec := g.do(signedCallback(tt.path, tt.form))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestWebhooks_Status(t *testing.T) {
	t.Parallel()

	t.Run("unknown message is acknowledged", func(t *testing.T) {
		t.Parallel()

		g := newGateway(t)
		rec := g.do(signedCallback("/webhooks/sms/status", url.Values{
			"MessageSid":    {"SMmissing"},
			"MessageStatus": {"delivered"},
		}))
		assert.Equal(t, http.StatusOK, rec.Code)

		_, err := g.store.FindMessageByProviderID(context.Background(), "SMmissing")
		assert.ErrorIs(t, err, messaging.ErrMessageNotFound)
	})

	t.Run("failure is described", func(t *testing.T) {
		t.Parallel()

		g := newGateway(t)
		rec := g.do(jsonRequest(http.MethodPost, "/v1/messages", `{"to":"+15551234567","body":"hi"}`))
		require.Equal(t, http.StatusAccepted, rec.Code)

		rec = g.do(signedCallback("/webhooks/sms/status", url.Values{
			"MessageSid":    {"SMout1"},
			"MessageStatus": {"undelivered"},
			"ErrorCode":     {"30003"},
		}))
		require.Equal(t, http.StatusOK, rec.Code)

		msg, err := g.store.FindMessageByProviderID(context.Background(), "SMout1")
		require.NoError(t, err)
		assert.Equal(t, messaging.StatusUndelivered, msg.Status)
		require.NotNil(t, msg.ErrorDescription)
		assert.Equal(t, "30003: Unknown error", *msg.ErrorDescription)
	})
}

func TestWebhooks_IngressRateLimit(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore()
	t.Cleanup(store.Close)
	bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       1,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)

	g := newGateway(t, withIngressLimiter(bucket))

	rec := g.do(signedCallback("/webhooks/sms/inbound", inboundForm("SM1", "hi")))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = g.do(signedCallback("/webhooks/sms/inbound", inboundForm("SM2", "hi again")))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	_, err = g.store.FindMessageByProviderID(context.Background(), "SM2")
	assert.ErrorIs(t, err, messaging.ErrMessageNotFound)
}

func escapeXML(t *testing.T, s string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, xml.EscapeText(&buf, []byte(s)))
	return buf.String()
}
