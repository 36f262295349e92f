package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgAuth "github.com/housebook/housebook-backend/pkg/auth"
	"github.com/housebook/housebook-backend/pkg/auth/session"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

// Refresh rotates the session named by the access token's jti. Roles are
// resolved again so a profile added since login shows up in the new token.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error) {
	claims, err := s.sessionClaims(req.AccessToken)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	actor, err := s.identity.Resolve(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	roles := actor.Roles()
	if len(roles) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account has no owner or tradie profile")
	}

	accessID, refreshToken, err := s.session.Rotate(ctx, claims.UserID, claims.ID, req.RefreshToken)
	if errors.Is(err, session.ErrInvalidRefreshToken) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	accessToken, err := s.mint(time.Now().UTC(), claims.UserID, roles, accessID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, Roles: roles}, nil
}

// Logout ends the session even when the access token has expired.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.sessionClaims(accessToken)
	if err != nil {
		return err
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) sessionClaims(raw string) (*pkgAuth.AccessTokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token has no session")
	}
	return claims, nil
}
