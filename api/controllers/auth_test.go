package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/internal/auth"
	"github.com/housebook/housebook-backend/internal/identity"
	"github.com/housebook/housebook-backend/internal/users"
	"github.com/housebook/housebook-backend/pkg/enums"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

type stubAuthService struct {
	resp *auth.LoginResponse
	pair *auth.TokenPair
	err  error

	refreshed auth.RefreshRequest
	loggedOut string
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.resp, s.err
}

func (s *stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPair, error) {
	s.refreshed = req
	return s.pair, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, accessToken string) error {
	s.loggedOut = accessToken
	return s.err
}

type stubResolver struct {
	actor *identity.Actor
	err   error
}

func (s stubResolver) Resolve(ctx context.Context, userID uuid.UUID) (*identity.Actor, error) {
	return s.actor, s.err
}

func TestAuthLoginSetsTokenHeader(t *testing.T) {
	resp := &auth.LoginResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Roles:        []enums.ActorRole{enums.ActorRoleTradie},
		User:         &users.UserDTO{ID: uuid.New(), Email: "sam@example.com"},
	}
	handler := AuthLogin(&stubAuthService{resp: resp}, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"email":"sam@example.com","password":"Secret#1"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := rec.Header().Get("X-HB-Token"); got != "access" {
		t.Fatalf("expected token header got %q", got)
	}
	var envelope struct {
		Data auth.LoginResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Roles) != 1 || envelope.Data.Roles[0] != enums.ActorRoleTradie {
		t.Fatalf("unexpected roles %v", envelope.Data.Roles)
	}
}

func TestAuthLoginRejectsBadEmail(t *testing.T) {
	handler := AuthLogin(&stubAuthService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"email":"nope","password":"x"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	handler := AuthLogin(&stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}, nil)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"email":"sam@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthMeListsRoles(t *testing.T) {
	userID, ownerID, tradieID := uuid.New(), uuid.New(), uuid.New()
	actor := &identity.Actor{UserID: userID, DisplayName: "Sam Lee", OwnerID: &ownerID, TradieID: &tradieID}
	handler := AuthMe(stubResolver{actor: actor}, nil)

	req := withRoute(httptest.NewRequest(http.MethodGet, "/me", nil), userID, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data struct {
			DisplayName string            `json:"display_name"`
			Roles       []enums.ActorRole `json:"roles"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.DisplayName != "Sam Lee" || len(envelope.Data.Roles) != 2 {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}
