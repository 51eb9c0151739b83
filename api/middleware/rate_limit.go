package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/folio-backend/api/responses"
	"github.com/angelmondragon/folio-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/angelmondragon/folio-backend/pkg/logger"
)

// peeking at the identifier never reads more than this from the body
const maxPeekBytes = 64 << 10

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy defines the throttling parameters for a traffic surface.
type RateLimitPolicy struct {
	name            string
	window          time.Duration
	ipLimit         int
	identifierLimit int
	identifierField string
}

// NewRateLimitPolicy builds a policy. identifierField names the JSON body
// field counted per value; leave it empty to throttle by IP only.
func NewRateLimitPolicy(name string, window time.Duration, ipLimit, identifierLimit int, identifierField string) RateLimitPolicy {
	return RateLimitPolicy{
		name:            strings.ToLower(strings.TrimSpace(name)),
		window:          window,
		ipLimit:         ipLimit,
		identifierLimit: identifierLimit,
		identifierField: identifierField,
	}
}

// LoginRateLimitPolicy throttles login attempts per IP and per identifier.
func LoginRateLimitPolicy(cfg config.AuthRateLimitConfig) RateLimitPolicy {
	return NewRateLimitPolicy("login", cfg.LoginWindow, cfg.LoginIPLimit, cfg.LoginIdentifierLimit, "identifier")
}

// ContactRateLimitPolicy throttles contact form submissions per IP.
func ContactRateLimitPolicy(cfg config.AuthRateLimitConfig) RateLimitPolicy {
	return NewRateLimitPolicy("contact", cfg.ContactWindow, cfg.ContactIPLimit, 0, "")
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.identifierLimit > 0)
}

func (p RateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "auth"
	}
	return p.name
}

func (p RateLimitPolicy) ipScope(ip string) string {
	return fmt.Sprintf("%s:ip:%s", p.normalizedName(), ip)
}

func (p RateLimitPolicy) identifierScope(hash string) string {
	return fmt.Sprintf("%s:id:%s", p.normalizedName(), hash)
}

// RateLimit enforces fixed-window counters shared across instances through
// Redis. A nil limiter disables the middleware.
func RateLimit(policy RateLimitPolicy, limiter rateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if ip := clientIP(r); policy.ipLimit > 0 && ip != "" {
				allowed, count, err := limiter.FixedWindowAllow(ctx, policy.ipScope(ip), int64(policy.ipLimit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					respondRateLimited(ctx, logg, w, policy, map[string]any{"scope": "ip", "ip": ip}, count, policy.ipLimit)
					return
				}
			}

			if policy.identifierLimit > 0 && policy.identifierField != "" {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))

				if identifier := extractField(body, policy.identifierField); identifier != "" {
					hash := hashValue(identifier)
					allowed, count, err := limiter.FixedWindowAllow(ctx, policy.identifierScope(hash), int64(policy.identifierLimit), policy.window)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if !allowed {
						respondRateLimited(ctx, logg, w, policy, map[string]any{"scope": "identifier", "identifier_hash": hash}, count, policy.identifierLimit)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, fields map[string]any, count int64, limit int) {
	if logg != nil {
		fields["policy"] = policy.normalizedName()
		fields["attempts"] = count
		fields["limit"] = limit
		fields["window_seconds"] = int(policy.window.Seconds())
		logg.Warn(logg.WithFields(ctx, fields), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, please try again later"))
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

func extractField(payload []byte, field string) string {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(body[field], &value); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
