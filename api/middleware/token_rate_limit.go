package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shoplane/shoplane-backend/api/responses"
	pkgerrors "github.com/shoplane/shoplane-backend/pkg/errors"
	"github.com/shoplane/shoplane-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// TokenRateLimitPolicy defines throttling for the unauthenticated
// confirm/cancel endpoints, counted per source IP and per order.
type TokenRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	orderLimit int
}

// NewTokenRateLimitPolicy builds a policy with the supplied window and limits.
func NewTokenRateLimitPolicy(name string, window time.Duration, ipLimit, orderLimit int) TokenRateLimitPolicy {
	return TokenRateLimitPolicy{
		name:       strings.ToLower(strings.TrimSpace(name)),
		window:     window,
		ipLimit:    ipLimit,
		orderLimit: orderLimit,
	}
}

func (p TokenRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.orderLimit > 0)
}

func (p TokenRateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "token"
	}
	return p.name
}

func (p TokenRateLimitPolicy) ipKey(ip string) string {
	if ip == "" {
		return ""
	}
	return fmt.Sprintf("rl:ip:%s:%s", p.normalizedName(), ip)
}

func (p TokenRateLimitPolicy) orderKey(orderID string) string {
	if orderID == "" {
		return ""
	}
	return fmt.Sprintf("rl:order:%s:%s", p.normalizedName(), orderID)
}

// TokenRateLimit throttles guessing attempts against tokened order links.
// Counting per order caps brute force on a single confirmation token even
// when the attacker rotates source addresses.
func TokenRateLimit(policy TokenRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := clientIP(r)
			if policy.ipLimit > 0 {
				if key := policy.ipKey(ip); key != "" {
					if allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.ipLimit)); err != nil {
						responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					} else if !allowed {
						respondRateLimited(ctx, logg, w, policy, "ip", ip, "", count, policy.ipLimit)
						return
					}
				}
			}

			if policy.orderLimit > 0 {
				orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
				if key := policy.orderKey(orderID); key != "" {
					if allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.orderLimit)); err != nil {
						responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					} else if !allowed {
						respondRateLimited(ctx, logg, w, policy, "order", "", orderID, count, policy.orderLimit)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allow(ctx context.Context, store rateLimiterStore, key string, window time.Duration, limit int64) (bool, int64, error) {
	count, err := store.IncrWithTTL(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy TokenRateLimitPolicy, scope, ip, orderID string, count int64, limit int) {
	if logg != nil {
		fields := map[string]any{
			"scope":          scope,
			"policy":         policy.normalizedName(),
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		}
		if ip != "" {
			fields["ip"] = ip
		}
		if orderID != "" {
			fields["order_id"] = orderID
		}
		logCtx := logg.WithFields(ctx, fields)
		logg.Warn(logCtx, "token.rate_limit.blocked")
	}
	err := pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded")
	responses.WriteError(ctx, nil, w, err)
}

func clientIP(r *http.Request) string {
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
