package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housebook/housebook-backend/pkg/auth"
	"github.com/housebook/housebook-backend/pkg/auth/session"
	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/enums"
)

var jwtCfg = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

type sessionsFunc func(accessID string) (bool, error)

func (f sessionsFunc) HasSession(_ context.Context, accessID string) (bool, error) {
	return f(accessID)
}

func liveSessions(string) (bool, error) { return true, nil }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func mintTestToken(t *testing.T, roles ...enums.ActorRole) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := auth.MintAccessToken(jwtCfg, time.Now(), auth.AccessTokenPayload{
		UserID: userID,
		Roles:  roles,
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return token, userID
}

func TestAuthStatus(t *testing.T) {
	token, _ := mintTestToken(t, enums.ActorRoleOwner)

	cases := []struct {
		name     string
		target   string
		header   string
		sessions sessionsFunc
		want     int
	}{
		{name: "no credentials", target: "/", sessions: liveSessions, want: http.StatusUnauthorized},
		{name: "garbage token", target: "/", header: "Bearer invalid", sessions: liveSessions, want: http.StatusUnauthorized},
		{name: "revoked session", target: "/", header: "Bearer " + token, want: http.StatusUnauthorized,
			sessions: func(string) (bool, error) { return false, nil }},
		{name: "session store down", target: "/", header: "Bearer " + token, want: http.StatusServiceUnavailable,
			sessions: func(string) (bool, error) { return false, errors.New("redis down") }},
		{name: "lowercase scheme", target: "/", header: "bearer " + token, sessions: liveSessions, want: http.StatusOK},
		{name: "query token", target: "/feed?access_token=" + token, sessions: liveSessions, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			Auth(jwtCfg, tc.sessions, nil)(okHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAuthStoresPrincipal(t *testing.T) {
	token, userID := mintTestToken(t, enums.ActorRoleOwner, enums.ActorRoleTradie)
	var checked string
	sessions := sessionsFunc(func(id string) (bool, error) {
		checked = id
		return true, nil
	})

	var got Principal
	handler := Auth(jwtCfg, sessions, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFrom(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, userID, got.UserID)
	assert.True(t, got.HasRole(enums.ActorRoleOwner))
	assert.True(t, got.HasRole(enums.ActorRoleTradie))
	assert.NotEmpty(t, got.AccessID)
	assert.Equal(t, got.AccessID, checked)
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name  string
		roles []enums.ActorRole
		want  int
	}{
		{name: "anonymous", want: http.StatusForbidden},
		{name: "tradie only", roles: []enums.ActorRole{enums.ActorRoleTradie}, want: http.StatusForbidden},
		{name: "dual role", roles: []enums.ActorRole{enums.ActorRoleTradie, enums.ActorRoleOwner}, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.roles != nil {
				req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: uuid.New(), Roles: tc.roles}))
			}
			rec := httptest.NewRecorder()
			RequireRole(enums.ActorRoleOwner, nil)(okHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
