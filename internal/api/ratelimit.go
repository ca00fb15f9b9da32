package api

import (
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/lotas/ctxkeep/internal/command"
)

// CodeRateLimited is the failure code of a throttled request.
const CodeRateLimited = "rate_limited"

// Limiter is a single token bucket shared by every API client.
type Limiter struct {
	l     *rate.Limiter
	burst int
}

// NewLimiter allows perSecond requests on average with bursts up to burst.
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{l: rate.NewLimiter(rate.Limit(perSecond), burst), burst: burst}
}

// Allow reports whether one more request may proceed now.
func (l *Limiter) Allow() bool {
	return l.l.Allow()
}

// RateLimitMiddleware rejects requests with 429 once the bucket is empty.
func RateLimitMiddleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.burst))
			if !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, command.Response{
					Error: "rate limit exceeded",
					Code:  CodeRateLimited,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
