package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/housebook/housebook-backend/api/responses"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/logger"
)

const maxThrottleBody = 64 << 10

type hitCounter interface {
	Hit(ctx context.Context, scope string, window time.Duration) (int64, error)
}

// Throttle is a fixed-window budget for one auth route, counted separately
// per client address and per submitted email.
type Throttle struct {
	Route    string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

type bucket struct {
	dimension string
	subject   string
	limit     int
}

// AuthThrottle rejects requests over either budget with RATE_LIMIT_EXCEEDED.
// Emails are hashed before they reach the counter or the logs.
func AuthThrottle(t Throttle, counter hitCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil || t.Window <= 0 || (t.PerIP <= 0 && t.PerEmail <= 0) {
			return next
		}
		route := strings.ToLower(strings.TrimSpace(t.Route))
		if route == "" {
			route = "auth"
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			buckets := make([]bucket, 0, 2)
			if t.PerIP > 0 {
				if ip := remoteIP(r); ip != "" {
					buckets = append(buckets, bucket{"ip", ip, t.PerIP})
				}
			}
			if t.PerEmail > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxThrottleBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if digest := emailDigest(body); digest != "" {
					buckets = append(buckets, bucket{"email", digest, t.PerEmail})
				}
			}

			for _, b := range buckets {
				n, err := counter.Hit(ctx, route+":"+b.dimension+":"+b.subject, t.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
					return
				}
				if n > int64(b.limit) {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"route":     route,
							"dimension": b.dimension,
							"subject":   b.subject,
							"hits":      n,
							"limit":     b.limit,
						}), "auth.throttled")
					}
					w.Header().Set("Retry-After", retryAfter(t.Window))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// remoteIP reads RemoteAddr, which chi's RealIP has already resolved from
// proxy headers.
func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func emailDigest(body []byte) string {
	var probe struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(probe.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:12])
}

func retryAfter(window time.Duration) string {
	secs := int(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
