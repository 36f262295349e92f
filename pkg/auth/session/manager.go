// Package session keeps one refresh token per access token id (jti) in Redis.
// A live entry is also what makes the access token itself acceptable.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/redis"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// AccessSessionChecker is what the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type backend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(jti string) string
}

// entry binds the refresh token to its user so a stolen token cannot be
// paired with somebody else's access token.
type entry struct {
	UserID uuid.UUID `json:"user_id"`
	Token  string    `json:"token"`
}

type Manager struct {
	kv  backend
	ttl time.Duration
}

func NewManager(client *redis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("session manager needs redis")
	}
	ttl, accessTTL := cfg.RefreshTokenTTL(), cfg.AccessTokenTTL()
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh ttl %s must be longer than access ttl %s", ttl, accessTTL)
	}
	return &Manager{kv: client, ttl: ttl}, nil
}

// NewAccessID mints the jti shared by an access token and its session.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if userID == uuid.Nil || accessID == "" {
		return "", errors.New("user id and access id are required")
	}
	return m.open(ctx, userID, accessID)
}

// Rotate spends the session under oldAccessID and opens a new one. The old
// entry is consumed before it is checked, so a refresh token works at most
// once and a mismatched attempt also ends the session.
func (m *Manager) Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, refreshToken string) (accessID, token string, err error) {
	if oldAccessID == "" || refreshToken == "" {
		return "", "", ErrInvalidRefreshToken
	}
	raw, err := m.kv.GetDel(ctx, m.kv.AccessSessionKey(oldAccessID))
	if errors.Is(err, redis.Nil) {
		return "", "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", "", fmt.Errorf("load session: %w", err)
	}

	var prev entry
	if json.Unmarshal([]byte(raw), &prev) != nil ||
		prev.UserID != userID ||
		subtle.ConstantTimeCompare([]byte(prev.Token), []byte(refreshToken)) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	accessID = NewAccessID()
	token, err = m.open(ctx, userID, accessID)
	return accessID, token, err
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if accessID == "" {
		return errors.New("access id is required")
	}
	return m.kv.Del(ctx, m.kv.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if accessID == "" {
		return false, nil
	}
	return m.kv.Exists(ctx, m.kv.AccessSessionKey(accessID))
}

func (m *Manager) open(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("refresh token entropy: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(secret)
	payload, err := json.Marshal(entry{UserID: userID, Token: token})
	if err != nil {
		return "", err
	}
	if err := m.kv.Set(ctx, m.kv.AccessSessionKey(accessID), payload, m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}
