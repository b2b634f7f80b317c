package middleware

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"

	"golang.org/x/time/rate"
)

// WebhookTokenHeader carries the shared webhook secret
const WebhookTokenHeader = "X-Webhook-Token"

// TokenSource returns the currently configured webhook token; "" disables the check
type TokenSource func(ctx context.Context) (string, error)

// WebhookToken rejects deliveries without the configured token. WATI cannot
// add headers, so the token may also be given as ?token= in the webhook URL.
func WebhookToken(source TokenSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			want, err := source(r.Context())
			if err != nil {
				log.Printf("❌ Webhook token lookup failed: %v", err)
				http.Error(w, "Settings unavailable", http.StatusServiceUnavailable)
				return
			}
			if want == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get(WebhookTokenHeader)
			if got == "" {
				got = r.URL.Query().Get("token")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				http.Error(w, "Invalid webhook token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit answers 429 once limiter runs out of tokens
func RateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
