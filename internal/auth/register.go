package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/users"
	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/db"
	"github.com/housebook/housebook-backend/pkg/enums"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/security"
)

const msgEmailTaken = "email already registered"

// RegisterService creates a user and the role profiles they asked for in one
// transaction.
type RegisterService interface {
	Register(ctx context.Context, in RegisterInput) (*users.UserDTO, error)
}

type RegisterServiceParams struct {
	DB             db.TxRunner
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          db.TxRunner
	passwordCfg config.PasswordConfig
}

func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{db: params.DB, passwordCfg: params.PasswordConfig}, nil
}

func (s *registerService) Register(ctx context.Context, in RegisterInput) (*users.UserDTO, error) {
	if err := ValidateRegistration(in); err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(in.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	signup := users.CreateUserDTO{
		Email:        users.NormalizeEmail(in.Email),
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
	}

	var created *users.UserDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)
		if err := ensureEmailFree(ctx, repo, signup.Email); err != nil {
			return err
		}
		user, err := repo.Create(ctx, signup)
		switch {
		case db.IsUniqueViolation(err, ""):
			return pkgerrors.New(pkgerrors.CodeConflict, msgEmailTaken)
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		if err := createProfiles(ctx, repo, user.ID, in.Roles); err != nil {
			return err
		}
		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func ensureEmailFree(ctx context.Context, repo *users.Repository, email string) error {
	_, err := repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return pkgerrors.New(pkgerrors.CodeConflict, msgEmailTaken)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}
}

// createProfiles adds one profile row per requested role.
func createProfiles(ctx context.Context, repo *users.Repository, userID uuid.UUID, roles []enums.ActorRole) error {
	if hasRole(roles, enums.ActorRoleOwner) {
		if _, err := repo.CreateOwnerProfile(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create owner profile")
		}
	}
	if hasRole(roles, enums.ActorRoleTradie) {
		if _, err := repo.CreateTradieProfile(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create tradie profile")
		}
	}
	return nil
}
