package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/pkg/db/models"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

// Resolver turns an authenticated user id into an Actor and answers
// property/asset ownership checks.
type Resolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*Actor, error)
	RequirePropertyOwner(ctx context.Context, actor *Actor, propertyID uuid.UUID) error
	RequireAssetOwner(ctx context.Context, actor *Actor, assetID uuid.UUID) (uuid.UUID, error)
	OwnsProperty(ctx context.Context, actor *Actor, propertyID uuid.UUID) (bool, error)
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindOwnerByUserID(ctx context.Context, userID uuid.UUID) (*models.Owner, error)
	FindTradieByUserID(ctx context.Context, userID uuid.UUID) (*models.Tradesperson, error)
}

type ownershipStore interface {
	IsPropertyOwner(ctx context.Context, ownerID, propertyID uuid.UUID) (bool, error)
	PropertyExists(ctx context.Context, propertyID uuid.UUID) (bool, error)
	PropertyIDForAsset(ctx context.Context, assetID uuid.UUID) (uuid.UUID, error)
}

type service struct {
	users     userStore
	ownership ownershipStore
}

func NewService(users userStore, ownership ownershipStore) (Resolver, error) {
	if users == nil {
		return nil, fmt.Errorf("user store required")
	}
	if ownership == nil {
		return nil, fmt.Errorf("ownership store required")
	}
	return &service{users: users, ownership: ownership}, nil
}

func (s *service) Resolve(ctx context.Context, userID uuid.UUID) (*Actor, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgUserNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgUserInactive)
	}

	actor := &Actor{UserID: user.ID, DisplayName: user.DisplayName()}

	owner, err := s.users.FindOwnerByUserID(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load owner profile")
	}
	if owner != nil {
		id := owner.ID
		actor.OwnerID = &id
	}

	tradie, err := s.users.FindTradieByUserID(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tradie profile")
	}
	if tradie != nil {
		id := tradie.ID
		actor.TradieID = &id
	}

	return actor, nil
}

func (s *service) OwnsProperty(ctx context.Context, actor *Actor, propertyID uuid.UUID) (bool, error) {
	if !actor.IsOwner() {
		return false, nil
	}
	ok, err := s.ownership.IsPropertyOwner(ctx, *actor.OwnerID, propertyID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check property ownership")
	}
	return ok, nil
}

func (s *service) RequirePropertyOwner(ctx context.Context, actor *Actor, propertyID uuid.UUID) error {
	if err := RequireOwner(actor); err != nil {
		return err
	}
	ok, err := s.OwnsProperty(ctx, actor, propertyID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	exists, err := s.ownership.PropertyExists(ctx, propertyID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check property")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgPropertyAbsent)
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, msgNotOwner)
}

func (s *service) RequireAssetOwner(ctx context.Context, actor *Actor, assetID uuid.UUID) (uuid.UUID, error) {
	if err := RequireOwner(actor); err != nil {
		return uuid.Nil, err
	}
	propertyID, err := s.ownership.PropertyIDForAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, msgAssetAbsent)
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve asset property")
	}
	if err := s.RequirePropertyOwner(ctx, actor, propertyID); err != nil {
		return uuid.Nil, err
	}
	return propertyID, nil
}
