package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quokkahq/tokenforge/pkg/httpx"
)

func TestIPKeyExtractor(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(req))
	})

	t.Run("prefers first X-Forwarded-For hop", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")

		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))
	})

	t.Run("uses X-Real-IP if X-Forwarded-For absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Real-IP", "203.0.113.2")

		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})
}

func TestTokenEndpointKeyExtractor(t *testing.T) {
	extractor := httpx.TokenEndpointKeyExtractor()

	t.Run("prefers client_id form field", func(t *testing.T) {
		form := url.Values{}
		form.Set("client_id", "oauth2-client")

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, "oauth2-client", extractor(req))
	})

	t.Run("falls back to caller IP", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, "192.168.1.1", extractor(req))
	})
}

func TestRateLimiter_Admit(t *testing.T) {
	t.Run("burst admits exactly burst requests", func(t *testing.T) {
		rl := httpx.NewRateLimiter(1, 5)

		for i := 0; i < 5; i++ {
			require.True(t, rl.Admit("client-a"), "request %d should be admitted", i)
		}
		require.False(t, rl.Admit("client-a"), "request past burst should be denied")
	})

	t.Run("refill admits one more after 1/rate elapses", func(t *testing.T) {
		rl := httpx.NewRateLimiter(20, 1) // one token every 50ms

		require.True(t, rl.Admit("client-a"))
		require.False(t, rl.Admit("client-a"), "bucket is empty right after the burst")

		require.Eventually(t, func() bool {
			return rl.Admit("client-a")
		}, time.Second, 5*time.Millisecond, "one token should refill after 1/rate")

		require.False(t, rl.Admit("client-a"), "only a single token refills per interval")
	})

	t.Run("keys are isolated", func(t *testing.T) {
		rl := httpx.NewRateLimiter(1, 2)

		require.True(t, rl.Admit("client-a"))
		require.True(t, rl.Admit("client-a"))
		require.False(t, rl.Admit("client-a"))

		require.True(t, rl.Admit("client-b"), "exhausting one key must not affect another")
	})
}

func TestRateLimiter_PruneIdle(t *testing.T) {
	rl := httpx.NewRateLimiter(1000, 1)

	// Consume the bucket, then let it refill fully.
	require.True(t, rl.Admit("client-a"))
	require.Eventually(t, func() bool {
		return rl.PruneIdle() == 1
	}, time.Second, 5*time.Millisecond, "refilled bucket should be pruned")

	// Pruned keys start over with a full bucket.
	require.True(t, rl.Admit("client-a"))
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("denies with 429 and JSON body", func(t *testing.T) {
		rl := httpx.NewRateLimiter(0.1, 1)
		wrapped := httpx.RateLimitMiddleware(rl, httpx.IPKeyExtractor)(handler)

		req := httptest.NewRequest(http.MethodPost, "/v1/oauth2/token", nil)
		req.RemoteAddr = "10.0.0.1:40000"

		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	})

	t.Run("allows requests with no extractable key", func(t *testing.T) {
		rl := httpx.NewRateLimiter(0.1, 1)
		noKey := func(*http.Request) string { return "" }
		wrapped := httpx.RateLimitMiddleware(rl, noKey)(handler)

		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}
