package httpserver_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/smsgate/pkg/httpserver"
)

func startServer(t *testing.T, srv *httpserver.Server, h http.Handler) (string, context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, h) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	addr, err := srv.Addr(waitCtx)
	require.NoError(t, err)

	return "http://" + addr.String(), cancel, done
}

func TestServer_RunAndShutdown(t *testing.T) {
	t.Parallel()

	hookCalled := make(chan struct{})
	srv := httpserver.New(
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithShutdownTimeout(time.Second),
		httpserver.WithOnShutdown(func(context.Context) error {
			close(hookCalled)
			return nil
		}),
	)

	base, cancel, done := startServer(t, srv, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	}))

	resp, err := http.Get(base + "/ping")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	select {
	case <-hookCalled:
	default:
		t.Fatal("shutdown hook was not called")
	}
}

func TestServer_HookErrorIsReported(t *testing.T) {
	t.Parallel()

	boom := errors.New("close pool")
	srv := httpserver.New(
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithOnShutdown(func(context.Context) error { return boom }),
	)

	_, cancel, done := startServer(t, srv, nil)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, httpserver.ErrShutdown)
	assert.ErrorIs(t, err, boom)
}

func TestServer_ListenFailure(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	srv := httpserver.New(httpserver.WithAddr(ln.Addr().String()))
	err = srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestServer_RunTwice(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.WithAddr("127.0.0.1:0"))
	_, cancel, done := startServer(t, srv, nil)
	defer func() {
		cancel()
		<-done
	}()

	assert.ErrorIs(t, srv.Run(context.Background(), nil), httpserver.ErrAlreadyRunning)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	srv := httpserver.NewFromConfig(httpserver.Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	_, cancel, done := startServer(t, srv, nil)
	cancel()
	assert.NoError(t, <-done)
}

func TestOptions_PanicOnInvalid(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { httpserver.WithAddr("") })
	assert.Panics(t, func() { httpserver.WithReadTimeout(0) })
	assert.Panics(t, func() { httpserver.WithShutdownTimeout(-time.Second) })
	assert.Panics(t, func() { httpserver.WithOnShutdown(nil) })
}

func TestHealthHandlers(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	httpserver.Liveness()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())

	ok := httpserver.Check{Name: "store", Fn: func(context.Context) error { return nil }}
	down := httpserver.Check{Name: "redis", Fn: func(context.Context) error { return errors.New("dial tcp: connection refused") }}

	rec = httptest.NewRecorder()
	httpserver.Readiness(nil, ok)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "READY", rec.Body.String())

	rec = httptest.NewRecorder()
	httpserver.Readiness(nil, ok, down)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT_READY", rec.Body.String())
}
