package middleware

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"facility-checklist/internal/cache"
)

const (
	loginLimit     = 5
	loginWindow    = time.Minute
	registerLimit  = 10
	registerWindow = time.Minute
)

func RateLimitLogin(cacheClient cache.Client, proxies *TrustedProxies, log *zap.Logger) func(http.Handler) http.Handler {
	return rateLimit(cacheClient, proxies, log, "rl:login:", loginLimit, loginWindow)
}

func RateLimitRegister(cacheClient cache.Client, proxies *TrustedProxies, log *zap.Logger) func(http.Handler) http.Handler {
	return rateLimit(cacheClient, proxies, log, "rl:register:", registerLimit, registerWindow)
}

// rateLimit is a fixed-window counter per client IP. Cache failures let the
// request through.
func rateLimit(cacheClient cache.Client, proxies *TrustedProxies, log *zap.Logger, prefix string, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := proxies.ClientIP(r)
			count, err := cacheClient.IncrWithTTL(r.Context(), prefix+ip, window)
			if err != nil {
				log.Warn("rate limit counter unavailable", zap.String("key", prefix+ip), zap.Error(err))
			} else if count > limit {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
