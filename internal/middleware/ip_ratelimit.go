package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pairsync/sync-server/internal/audit"
	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/service"
)

type IPRateLimitMiddleware struct {
	limiter *service.RateLimiter
	limit   int
	window  time.Duration
	prefix  string
}

func NewIPRateLimitMiddleware(limiter *service.RateLimiter, limit int, window time.Duration, prefix string) *IPRateLimitMiddleware {
	return &IPRateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
	}
}

// Handler fails closed: when the limiter cannot reach the store the request
// is rejected with 503.
func (m *IPRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := remoteIP(r)
		key := fmt.Sprintf("ip:%s:%s", m.prefix, ip)

		err := m.limiter.Enforce(r.Context(), key, m.limit, m.window)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrCodeRateLimitExceeded) {
				audit.LogFromRequest(r, audit.Event{
					Type:    audit.EventRateLimitExceed,
					Details: map[string]any{"scope": m.prefix},
				})
			}
			writeError(w, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// remoteIP strips the port chi's RealIP leaves on direct connections.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
