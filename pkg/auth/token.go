package auth

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/enums"
)

// Access tokens are HMAC signed; nothing else is accepted on the way in.
const signingAlg = "HS256"

var (
	errNoSecret  = errors.New("jwt secret is required")
	errNoIssuer  = errors.New("jwt issuer is required")
	errNoTTL     = errors.New("jwt expiration minutes must be positive")
	errNoUser    = errors.New("token carries no user")
	errBadIssuer = errors.New("token issuer mismatch")
)

func checkSigning(cfg config.JWTConfig) error {
	switch {
	case cfg.Secret == "":
		return errNoSecret
	case cfg.Issuer == "":
		return errNoIssuer
	case cfg.ExpirationMinutes <= 0:
		return errNoTTL
	}
	return nil
}

// MintAccessToken signs payload with an expiry of now plus the configured
// TTL. A blank JTI gets a random one.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkSigning(cfg); err != nil {
		return "", err
	}
	if payload.UserID == uuid.Nil {
		return "", errNoUser
	}
	if i := slices.IndexFunc(payload.Roles, func(r enums.ActorRole) bool { return !r.IsValid() }); i >= 0 {
		return "", fmt.Errorf("invalid actor role %q", payload.Roles[i])
	}

	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Roles:  payload.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        cmp.Or(strings.TrimSpace(payload.JTI), uuid.NewString()),
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL())),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.GetSigningMethod(signingAlg), claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken checks signature, issuer and expiry.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parseClaims(cfg, raw, true)
}

// ParseAccessTokenAllowExpired checks signature and issuer only. Refresh and
// logout use it to find the session behind a token that has run out.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parseClaims(cfg, raw, false)
}

func parseClaims(cfg config.JWTConfig, raw string, checkExpiry bool) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{signingAlg})}
	if checkExpiry {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := new(AccessTokenClaims)
	secret := func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil }
	if _, err := jwt.ParseWithClaims(raw, claims, secret, opts...); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if !checkExpiry && claims.Issuer != cfg.Issuer {
		return nil, errBadIssuer
	}
	if claims.UserID == uuid.Nil {
		return nil, errNoUser
	}
	return claims, nil
}
