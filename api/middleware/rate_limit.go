package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sitewrap/sitewrap-backend/api/responses"
	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
	"github.com/sitewrap/sitewrap-backend/pkg/logger"
	"github.com/sitewrap/sitewrap-backend/pkg/metrics"
)

type rateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	RateLimitKey(parts ...string) string
}

// Identity selects what a rate-limit policy counts against.
type Identity int

const (
	IdentityIP Identity = iota
	IdentityUser
)

// Policy is one fixed-window budget for a traffic scope.
type Policy struct {
	Name     string
	Window   time.Duration
	Limit    int
	Identity Identity
}

func (p Policy) enabled() bool {
	return p.Window > 0 && p.Limit > 0
}

// RateLimit enforces one or more policies against the redis counter store.
// A store failure admits the request: throttling is a guard rail, not a
// correctness dependency.
func RateLimit(store rateLimitStore, logg *logger.Logger, m *metrics.LedgerMetrics, policies ...Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			for _, policy := range policies {
				if !policy.enabled() {
					continue
				}

				identity := identityFor(r, policy.Identity)
				if identity == "" {
					continue
				}
				key := store.RateLimitKey(policy.Name, identity)

				count, err := store.IncrWithTTL(ctx, key, policy.Window)
				if err != nil {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy": policy.Name,
						}), "rate limit store unavailable, admitting request")
					}
					continue
				}

				if count > int64(policy.Limit) {
					m.IncThrottled(policy.Name)
					retryAfter := retryAfterSeconds(ctx, store, key, policy.Window)
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":   policy.Name,
							"attempts": count,
							"limit":    policy.Limit,
						}), "rate_limit.blocked")
					}
					responses.WriteError(ctx, nil, w,
						pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded").
							WithDetails(map[string]any{"retry_after_seconds": retryAfter}))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func identityFor(r *http.Request, identity Identity) string {
	switch identity {
	case IdentityUser:
		if id := UserIDFromContext(r.Context()); id != uuid.Nil {
			return "user:" + id.String()
		}
		return ""
	default:
		if ip := ClientIP(r); ip != "" {
			return "ip:" + ip
		}
		return ""
	}
}

func retryAfterSeconds(ctx context.Context, store rateLimitStore, key string, window time.Duration) int {
	ttl, err := store.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		ttl = window
	}
	seconds := int(ttl.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// ClientIP resolves the caller address, honoring proxy headers.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
