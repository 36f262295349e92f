package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/identity"
	"github.com/housebook/housebook-backend/internal/users"
	pkgAuth "github.com/housebook/housebook-backend/pkg/auth"
	"github.com/housebook/housebook-backend/pkg/auth/session"
	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/db/models"
	"github.com/housebook/housebook-backend/pkg/enums"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service covers the session lifecycle: login, refresh rotation and logout.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type service struct {
	users    userRepository
	identity actorResolver
	session  sessionManager
	jwtCfg   config.JWTConfig
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type actorResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*identity.Actor, error)
}

type sessionManager interface {
	Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error)
	Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type ServiceParams struct {
	UserRepo       userRepository
	Identity       actorResolver
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.UserRepo == nil:
		return nil, errors.New("user repository is required")
	case params.Identity == nil:
		return nil, errors.New("identity resolver is required")
	case params.SessionManager == nil:
		return nil, errors.New("session manager is required")
	}
	return &service{
		users:    params.UserRepo,
		identity: params.Identity,
		session:  params.SessionManager,
		jwtCfg:   params.JWTConfig,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	actor, err := s.identity.Resolve(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	roles := actor.Roles()
	if len(roles) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account has no owner or tradie profile")
	}

	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}

	accessID := session.NewAccessID()
	accessToken, err := s.mint(now, user.ID, roles, accessID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.session.Generate(ctx, user.ID, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Roles:        roles,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) mint(now time.Time, userID uuid.UUID, roles []enums.ActorRole, accessID string) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: userID,
		Roles:  roles,
		JTI:    accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

// authenticate answers the same UNAUTHORIZED for an unknown email, a wrong
// password and a deactivated account.
func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	denied := pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	email = users.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, denied
	}
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, denied
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok || !user.IsActive {
		return nil, denied
	}
	return user, nil
}

func (s *service) recordLogin(ctx context.Context, user *models.User) (time.Time, error) {
	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return now, nil
}
