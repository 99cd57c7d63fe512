package httpserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

func startServer(t *testing.T, handler http.Handler, opts ...httpserver.Option) (string, context.CancelFunc, <-chan error) {
	t.Helper()

	bound := make(chan string, 1)
	opts = append([]httpserver.Option{
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithShutdownTimeout(200 * time.Millisecond),
		httpserver.WithStartHook(func(addr string) { bound <- addr }),
	}, opts...)
	srv := httpserver.New(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, handler) }()

	select {
	case addr := <-bound:
		return addr, cancel, done
	case err := <-done:
		cancel()
		require.FailNow(t, "server did not start", "%v", err)
	case <-time.After(2 * time.Second):
		cancel()
		require.FailNow(t, "server did not start in time")
	}
	return "", cancel, done
}

func TestRunAndCancel(t *testing.T) {
	t.Parallel()

	addr, cancel, done := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	resp, err := http.Get("http://" + addr)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		require.Fail(t, "run did not finish")
	}
}

func TestStartError(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.WithAddr(":invalid"))
	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestAlreadyRunning(t *testing.T) {
	t.Parallel()

	bound := make(chan string, 1)
	srv := httpserver.New(
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithStartHook(func(addr string) { bound <- addr }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Run(ctx, nil) }()
	<-bound

	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrAlreadyRunning)
	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func(){
		"addr":     func() { httpserver.WithAddr("") },
		"header":   func() { httpserver.WithReadHeaderTimeout(0) },
		"read":     func() { httpserver.WithReadTimeout(-time.Second) },
		"write":    func() { httpserver.WithWriteTimeout(-time.Second) },
		"idle":     func() { httpserver.WithIdleTimeout(-time.Second) },
		"shutdown": func() { httpserver.WithShutdownTimeout(-time.Second) },
		"hook":     func() { httpserver.WithStartHook(nil) },
	} {
		assert.Panics(t, fn, name)
	}
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	ok := httpserver.Check{Name: "redis", Fn: func(context.Context) error { return nil }}
	bad := httpserver.Check{Name: "broker", Fn: func(context.Context) error { return errors.New("closed") }}

	t.Run("all checks pass", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		httpserver.ReadinessHandler(logger.Discard(), time.Second, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
	})

	t.Run("failing check reported", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		httpserver.ReadinessHandler(logger.Discard(), time.Second, ok, bad).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"not_ready","failed":{"broker":"closed"}}`, rec.Body.String())
	})

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		httpserver.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
