package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-tiket/internal/common"
)

// Config selects the bucket a request counts against and how many requests
// that bucket admits per window.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// ByClientIP buckets requests per caller address under scope, e.g. "quote:203.0.113.7".
func ByClientIP(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		return scope + ":" + common.ClientIP(r)
	}
}

// Handler answers 429 once a bucket is exhausted. When the limiter itself
// fails the request is let through and OnError is called; without OnError the
// failure is logged on the request logger.
type Handler struct {
	Limiter Allower
	Config  Config
	OnError func(error)
}

func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil || h.Config.Key == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := h.Config.Key(r)
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), key, h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			} else {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("bucket", key).Msg("rate_limiter_unavailable")
			}
			next.ServeHTTP(w, r)
			return
		}

		h.setHeaders(w.Header(), remaining, resetAt)
		if !allowed {
			wait := int(math.Ceil(time.Until(resetAt).Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(wait, 1)))
			common.JSONError(w, http.StatusTooManyRequests, common.CodeRateLimited, "rate limit exceeded",
				map[string]any{"limit": h.Config.Max, "windowSeconds": int(h.Config.Window.Seconds())})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h Handler) setHeaders(headers http.Header, remaining int, resetAt time.Time) {
	headers.Set("X-RateLimit-Limit", strconv.Itoa(max(h.Config.Max, 0)))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}
