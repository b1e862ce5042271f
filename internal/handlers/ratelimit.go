package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/metrics"
)

// RateLimiter budgets requests per scope and client address.
type RateLimiter interface {
	Allow(scope, client string) bool
}

// limitRequests rejects requests over the per-client budget of scope.
func limitRequests(limiter RateLimiter, scope string, next apiFunc) apiFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if limiter != nil && !limiter.Allow(scope, clientIP(r)) {
			metrics.RecordRateLimitHit(scope)
			return tooManyRequests("Too many requests, please try again later")
		}
		return next(w, r)
	}
}

// clientIP is the host part of RemoteAddr. Forwarded headers only reach it
// through the RealIP middleware, which NewRouter installs when TrustProxy is set.
func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	host, _, err := net.SplitHostPort(addr)
	if err == nil && host != "" {
		return host
	}
	return addr
}
