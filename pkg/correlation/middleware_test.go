package correlation_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/correlation"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates id when header missing", func(t *testing.T) {
		t.Parallel()
		var seen string
		h := correlation.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = correlation.FromContext(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(correlation.Header))
	})

	t.Run("keeps valid inbound id", func(t *testing.T) {
		t.Parallel()
		var seen string
		h := correlation.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = correlation.FromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(correlation.Header, "trace-abc_123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "trace-abc_123", seen)
		assert.Equal(t, "trace-abc_123", rec.Header().Get(correlation.Header))
	})

	t.Run("replaces malformed ids", func(t *testing.T) {
		t.Parallel()
		for _, bad := range []string{"a b", "x/y", "<script>", strings.Repeat("a", 129)} {
			var seen string
			h := correlation.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = correlation.FromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(correlation.Header, bad)
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.NotEqual(t, bad, seen)
			assert.True(t, correlation.IsValid(seen))
		}
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()
	extract := correlation.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(correlation.WithContext(context.Background(), "abc"))
	require.True(t, ok)
	assert.Equal(t, "correlation_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.String())
	assert.Empty(t, correlation.FromContext(nil)) //nolint:staticcheck
}
