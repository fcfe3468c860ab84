package httpx

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/quokkahq/tokenforge/pkg/slogx"
)

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g. IP address, client ID).
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// FormFieldKeyExtractor extracts a key from a form field (works for both
// URL parameters and POST bodies).
func FormFieldKeyExtractor(fieldName string) KeyExtractor {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err == nil {
			return r.FormValue(fieldName)
		}
		return ""
	}
}

// FirstKeyExtractor returns the first non-empty key produced by the given
// extractors, in order. Preferred identifiers go first with broader
// fallbacks after, e.g. client_id then caller IP.
func FirstKeyExtractor(extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				return key
			}
		}
		return ""
	}
}

// RateLimiter tracks one token bucket per key. Buckets are created lazily
// on first sight of a key and refill continuously at the configured rate.
type RateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter builds a limiter allowing ratePerSecond sustained requests
// per key with bursts up to burst.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:  rate.Limit(ratePerSecond),
		burst: burst,
	}
}

// Admit reports whether a request for the given key is within the limit,
// consuming one token when it is.
func (rl *RateLimiter) Admit(key string) bool {
	return rl.getLimiter(key).Allow()
}

// PruneIdle drops buckets that have refilled to their full burst capacity.
// A full bucket means the key has been quiet long enough to refill, so
// evicting it loses nothing: a recreated bucket starts full anyway.
// Returns the number of buckets removed.
func (rl *RateLimiter) PruneIdle() int {
	var pruned int
	rl.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
			pruned++
		}
		return true
	})
	return pruned
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	actual, _ := rl.limiters.LoadOrStore(key, limiter)
	return actual.(*rate.Limiter)
}

// RateLimitMiddleware enforces the limiter on every request, grouped by the
// key the extractor produces. Requests with no extractable key are allowed
// through with a warning rather than sharing one global bucket.
func RateLimitMiddleware(rl *RateLimiter, keyExtractor KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if !rl.Admit(key) {
				limiter := rl.getLimiter(key)
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limit_exceeded",
					"error_description": "Too many requests. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// TokenEndpointKeyExtractor groups token requests by client_id when present,
// falling back to the caller IP for requests that omit it.
func TokenEndpointKeyExtractor() KeyExtractor {
	return FirstKeyExtractor(
		FormFieldKeyExtractor("client_id"),
		IPKeyExtractor,
	)
}
