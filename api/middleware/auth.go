package middleware

import (
	"net/http"
	"strings"

	"github.com/housebook/housebook-backend/api/responses"
	"github.com/housebook/housebook-backend/pkg/auth"
	"github.com/housebook/housebook-backend/pkg/auth/session"
	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/enums"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/logger"
)

// Auth admits requests carrying a valid access token whose session is still
// open, and stores the Principal on the context.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := authenticate(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithPrincipal(r.Context(), p)
			if logg != nil {
				ctx = logg.WithUserID(ctx, p.UserID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (Principal, error) {
	raw := BearerToken(r)
	if raw == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := auth.ParseAccessToken(cfg, raw)
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "token has no session")
	}
	if sessions != nil {
		live, err := sessions.HasSession(r.Context(), claims.ID)
		if err != nil {
			return Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session lookup failed")
		}
		if !live {
			return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session has ended")
		}
	}
	return Principal{UserID: claims.UserID, Roles: claims.Roles, AccessID: claims.ID}, nil
}

// BearerToken prefers the Authorization header. Browsers cannot set headers
// on a websocket handshake, so ?access_token= is accepted as well.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return header
}

// RequireRole gates a route group on a token role.
func RequireRole(role enums.ActorRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFrom(r.Context())
			if !p.HasRole(role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, string(role)+" role required"))
				return
			}
			if logg != nil {
				r = r.WithContext(logg.WithActorRole(r.Context(), string(role)))
			}
			next.ServeHTTP(w, r)
		})
	}
}
