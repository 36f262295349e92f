package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/api/responses"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/logger"
	"github.com/housebook/housebook-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	replayHeader         = "Idempotent-Replay"

	defaultReplayTTL = 24 * time.Hour
	// inFlightTTL bounds how long a crashed request can block its key.
	inFlightTTL = time.Minute
	// maxReplayBody matches the JSON body cap in api/validators.
	maxReplayBody = 1 << 20
)

type replayStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// replay is the stored outcome of the first request under a key. Done is
// false while that request is still running.
type replay struct {
	Fingerprint string `json:"fp"`
	Done        bool   `json:"done"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"ct,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency is attached to individual mutating routes. A retry carrying the
// same Idempotency-Key and the same request gets the first response back
// without touching the handler; a different request under a used key is
// refused. Keys are per user, so anonymous requests pass straight through.
// 5xx responses are not kept.
func Idempotency(store replayStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultReplayTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			user, authed := UserUUIDFromContext(r.Context())
			if store == nil || id == "" || !authed || user == uuid.Nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(io.LimitReader(r.Body, maxReplayBody+1))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			if len(body) > maxReplayBody {
				responses.WriteError(ctx, logg, w, pkgerrors.Invalid("body", "max_bytes", "request body too large"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(user.String(), id)
			fp := fingerprint(r, body)

			pending, _ := json.Marshal(replay{Fingerprint: fp})
			claimed, err := store.SetNX(ctx, key, pending, inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable"))
				return
			}
			if !claimed {
				serveExisting(ctx, store, key, fp, w, logg)
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			// Detached so a client hang-up does not leave the key wedged.
			bg := context.WithoutCancel(ctx)
			status := statusOf(ww)
			if status >= http.StatusInternalServerError {
				if err := store.Del(bg, key); err != nil && logg != nil {
					logg.Error(bg, "idempotency.release_failed", err)
				}
				return
			}
			done, _ := json.Marshal(replay{
				Fingerprint: fp,
				Done:        true,
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
			})
			if err := store.Set(bg, key, done, ttl); err != nil && logg != nil {
				logg.Error(bg, "idempotency.store_failed", err)
			}
		})
	}
}

func serveExisting(ctx context.Context, store replayStore, key, fp string, w http.ResponseWriter, logg *logger.Logger) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// The first attempt failed and released the key a moment ago.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is being retried, try again"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable"))
		return
	}
	var prior replay
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt idempotency record"))
		return
	}
	switch {
	case prior.Fingerprint != fp:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used for a different request"))
	case !prior.Done:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
	default:
		if prior.ContentType != "" {
			w.Header().Set("Content-Type", prior.ContentType)
		}
		w.Header().Set(replayHeader, "true")
		w.WriteHeader(prior.Status)
		_, _ = w.Write(prior.Body)
	}
}

// fingerprint ties a key to one method, path and body.
func fingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	_, _ = io.WriteString(h, r.Method+" "+r.URL.Path+"\n")
	_, _ = h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
