package ratelimit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type failingAllower struct{ err error }

func (f failingAllower) Allow(context.Context, string, time.Duration, int) (bool, int, time.Time, error) {
	return false, 0, time.Time{}, f.err
}

func quoteRequest(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quote", nil)
	req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
	return req
}

func TestMiddlewareRedisBucketPerClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := Handler{
		Limiter: Limiter{Client: client, Prefix: "rl:"},
		Config:  Config{Key: ByClientIP("quote"), Window: time.Second, Max: 1},
	}.Middleware(okHandler)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, quoteRequest("203.0.113.7"))
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := httptest.NewRecorder()
	h.ServeHTTP(second, quoteRequest("203.0.113.7"))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Equal(t, "1", second.Header().Get("X-RateLimit-Limit"))
	retry, err := strconv.Atoi(second.Header().Get("Retry-After"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, retry, 1)

	var body struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	require.Equal(t, "RATE_LIMITED", body.Error.Code)
	require.EqualValues(t, 1, body.Error.Details["limit"])
	require.True(t, mr.Exists("rl:quote:203.0.113.7"))

	other := httptest.NewRecorder()
	h.ServeHTTP(other, quoteRequest("198.51.100.2"))
	require.Equal(t, http.StatusOK, other.Code)
}

func TestMiddlewareMemoryWindowReopens(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mem := &Memory{Now: func() time.Time { return now }}
	h := Handler{
		Limiter: mem,
		Config:  Config{Key: ByClientIP("quote"), Window: time.Minute, Max: 2},
	}.Middleware(okHandler)

	codes := make([]int, 0, 4)
	for range 3 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, quoteRequest("203.0.113.9"))
		codes = append(codes, rr.Code)
	}
	now = now.Add(61 * time.Second)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, quoteRequest("203.0.113.9"))
	codes = append(codes, rr.Code)

	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusOK}, codes)
}

func TestMiddlewareFailsOpenWithCallback(t *testing.T) {
	var seen error
	h := Handler{
		Limiter: failingAllower{err: errors.New("redis: connection refused")},
		Config:  Config{Key: func(*http.Request) string { return "k" }, Window: time.Second, Max: 1},
		OnError: func(err error) { seen = err },
	}.Middleware(okHandler)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.ErrorContains(t, seen, "connection refused")
	require.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
}

func TestMiddlewareFailsOpenLogsOnRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := Handler{
		Limiter: failingAllower{err: errors.New("boom")},
		Config:  Config{Key: func(*http.Request) string { return "quote:x" }, Window: time.Second, Max: 1},
	}.Middleware(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithContext(req.Context()))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, buf.String(), "rate_limiter_unavailable")
	require.Contains(t, buf.String(), `"bucket":"quote:x"`)
}

func TestMiddlewareWithoutLimiterPassesThrough(t *testing.T) {
	h := Handler{Config: Config{Key: ByClientIP("quote")}}.Middleware(okHandler)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
