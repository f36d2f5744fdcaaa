package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/smsgate/handler"
	"github.com/dmitrymomot/smsgate/pkg/binder"
	"github.com/dmitrymomot/smsgate/pkg/logger"
)

type echoRequest struct {
	Name string `json:"name"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWrap_JSON(t *testing.T) {
	t.Parallel()

	h := handler.Wrap(func(_ handler.Context, req echoRequest) handler.Response {
		return handler.JSON(map[string]string{"hello": req.Name}, handler.WithStatus(http.StatusAccepted))
	}, handler.WithBinders[echoRequest](binder.JSON()))

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ann"}`))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, r)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	body := decodeEnvelope(t, rec)
	assert.Equal(t, map[string]any{"hello": "ann"}, body["data"])
}

func TestWrap_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		respond     handler.Response
		wantCode    int
		wantKey     string
	}{
		{name: "bind unsupported media", contentType: "text/plain", wantCode: http.StatusUnsupportedMediaType, wantKey: "unsupported_media_type"},
		{name: "http error", contentType: "application/json", respond: handler.Error(handler.ErrForbidden.WithMessage("recipient opted out")), wantCode: http.StatusForbidden, wantKey: "forbidden"},
		{name: "raw error hidden", contentType: "application/json", respond: handler.Error(errors.New("pq: password authentication failed")), wantCode: http.StatusInternalServerError, wantKey: "internal_server_error"},
		{name: "nil response", contentType: "application/json", respond: nil, wantCode: http.StatusInternalServerError, wantKey: "internal_server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := handler.Wrap(func(handler.Context, echoRequest) handler.Response {
				return tt.respond
			}, handler.WithBinders[echoRequest](binder.JSON()))

			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
			r.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			h(rec, r)

			assert.Equal(t, tt.wantCode, rec.Code)
			body := decodeEnvelope(t, rec)
			errBody, ok := body["error"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.wantKey, errBody["code"])
			assert.NotContains(t, rec.Body.String(), "password")
		})
	}
}

func TestNewErrorHandler_Logs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithJSONFormatter(), logger.WithOutput(&buf))

	h := handler.Wrap(func(handler.Context, struct{}) handler.Response {
		return handler.Error(errors.New("store down"))
	}, handler.WithErrorHandler[struct{}](handler.NewErrorHandler(log)))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/v1/conversations/x/messages", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), "store down")
	assert.NotContains(t, rec.Body.String(), "store down")
}

func TestWrap_Decorators(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) handler.Decorator[struct{}] {
		return func(next handler.HandlerFunc[struct{}]) handler.HandlerFunc[struct{}] {
			return func(ctx handler.Context, req struct{}) handler.Response {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	h := handler.Wrap(func(handler.Context, struct{}) handler.Response {
		order = append(order, "handler")
		return handler.Empty()
	}, handler.WithDecorators(mark("outer"), mark("inner")))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestXML(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	require.NoError(t, handler.XML([]byte("<Response></Response>")).Render(rec, httptest.NewRequest(http.MethodPost, "/", nil)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/xml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<Response></Response>", rec.Body.String())
}
