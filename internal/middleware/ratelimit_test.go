package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCache struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCache) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCache) Close() error { return nil }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitLoginBlocksAfterLimit(t *testing.T) {
	h := RateLimitLogin(&fakeCache{}, nil, zap.NewNop())(okHandler())

	for i := 0; i < loginLimit; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "attempt %d", i+1)
	}

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// other clients keep their own window
	req = httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := RateLimitRegister(&fakeCache{err: errors.New("redis down")}, nil, zap.NewNop())(okHandler())

	for i := 0; i < registerLimit+5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/register", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitIgnoresSpoofedForwardingHeaders(t *testing.T) {
	cache := &fakeCache{}
	h := RateLimitLogin(cache, nil, zap.NewNop())(okHandler())

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "198.51.100.20:40000"
		req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i))
		req.Header.Set("X-Real-IP", "203.0.113."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}

	assert.Equal(t, loginLimit, allowed)
	assert.Equal(t, map[string]int64{"rl:login:198.51.100.20": 20}, cache.counts)
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.10"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{name: "direct", remote: "198.51.100.7:1234", want: "198.51.100.7"},
		{name: "untrusted peer headers ignored", remote: "198.51.100.7:1234", xff: "203.0.113.5", xri: "203.0.113.6", want: "198.51.100.7"},
		{name: "trusted proxy", remote: "10.1.2.3:80", xff: "203.0.113.5", want: "203.0.113.5"},
		{name: "spoofed prefix skipped", remote: "10.1.2.3:80", xff: "1.2.3.4, 203.0.113.5", want: "203.0.113.5"},
		{name: "proxy chain", remote: "192.0.2.10:80", xff: "203.0.113.5, 10.9.9.9", want: "203.0.113.5"},
		{name: "loopback peer", remote: "127.0.0.1:5000", xff: "203.0.113.8", want: "203.0.113.8"},
		{name: "real ip from trusted peer", remote: "10.1.2.3:80", xri: "203.0.113.9", want: "203.0.113.9"},
		{name: "garbage header", remote: "10.1.2.3:80", xff: "not-an-ip", want: "10.1.2.3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				req.Header.Set("X-Real-IP", tc.xri)
			}
			assert.Equal(t, tc.want, proxies.ClientIP(req))
		})
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
}

func TestForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/dashboard/login", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	assert.Equal(t, "198.51.100.7", ForwardedFor(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	assert.Equal(t, "203.0.113.5, 198.51.100.7", ForwardedFor(req))
}
