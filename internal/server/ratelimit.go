package server

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware admits requests through a shared token bucket. Each
// audit launches a browser and may call paid AI APIs, so the limit is global
// rather than per client. A non-positive rps disables limiting.
func RateLimitMiddleware(rps float64, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(rps), burst)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Reserve()
			delay := res.Delay()
			h := w.Header()
			h.Set("x-ratelimit-limit-requests", strconv.Itoa(burst))

			if !res.OK() || delay > 0 {
				res.Cancel()
				retry := int(math.Ceil(delay.Seconds()))
				if retry < 1 {
					retry = 1
				}
				h.Set("x-ratelimit-remaining-requests", "0")
				h.Set("Retry-After", strconv.Itoa(retry))
				AddLogField(r.Context(), "rate_limited", "true")
				writeJSON(w, http.StatusTooManyRequests, errorBody{
					Error:   "Too Many Requests",
					Details: "Audit capacity is exhausted; retry after " + (time.Duration(retry) * time.Second).String() + ".",
				})
				return
			}

			h.Set("x-ratelimit-remaining-requests", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}
