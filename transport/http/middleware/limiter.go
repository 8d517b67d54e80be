package middleware

import (
	"benzback/shared"
	"benzback/shared/constant"
	"benzback/transport/http/response"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

const (
	cacheKeyRateLimit = "limiter"
	unknownUserAgent  = "unknown"
)

// RateLimit counts requests per client in fixed windows. A cache outage lets traffic
// through rather than failing every booking call.
func (a *appMiddleware) RateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limits := a.config.App.RateLimiter
			if !limits.Enable || limits.MaxRequests <= 0 {
				next.ServeHTTP(w, r)

				return
			}

			clientIP := a.getClientIP(r)
			cacheKey := shared.BuildCacheKey(cacheKeyRateLimit, clientIP, a.getUA(r))

			count, err := a.cache.Incr(r.Context(), cacheKey, limits.WindowSeconds)
			if err != nil {
				log.Warn().Err(err).Str("client_ip", clientIP).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)

				return
			}

			remaining := max(0, int64(limits.MaxRequests)-count)

			w.Header().Set(constant.RequestHeaderRateLimit, strconv.Itoa(limits.MaxRequests))
			w.Header().Set(constant.RequestHeaderRateLimitRemaining, strconv.FormatInt(remaining, 10))
			w.Header().Set(constant.RequestHeaderRateLimitWindow, strconv.Itoa(limits.WindowSeconds))

			if count > int64(limits.MaxRequests) {
				response.WithRequestLimitExceeded(w)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (a *appMiddleware) getUA(r *http.Request) string {
	if ua := r.Header.Get(constant.RequestHeaderUserAgent); ua != "" {
		return ua
	}

	return unknownUserAgent
}

// getClientIP relies on chi's RealIP having already rewritten RemoteAddr from the proxy
// headers.
func (a *appMiddleware) getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
