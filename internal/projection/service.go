package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/identity"
	"github.com/housebook/housebook-backend/pkg/db/models"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

// AssetSpecification is the per-asset read: the current snapshot plus the
// older accepted ones.
type AssetSpecification struct {
	AssetID uuid.UUID       `json:"asset_id"`
	Current *ChangeLogView  `json:"current"`
	History []ChangeLogView `json:"history"`
	Message string          `json:"message,omitempty"`
}

type PropertyRollup struct {
	PropertyID  uuid.UUID         `json:"property_id"`
	Disciplines []DisciplineGroup `json:"disciplines"`
}

type Service interface {
	AssetSpecification(ctx context.Context, userID, assetID uuid.UUID, jobID *uuid.UUID) (*AssetSpecification, error)
	PropertyRollup(ctx context.Context, userID, propertyID uuid.UUID, jobID *uuid.UUID) (*PropertyRollup, error)
}

type changeLogStore interface {
	ChangeLogsForAsset(ctx context.Context, assetID uuid.UUID) ([]models.ChangeLog, error)
}

type assetLocator interface {
	PropertyIDForAsset(ctx context.Context, assetID uuid.UUID) (uuid.UUID, error)
}

type treeStore interface {
	LoadTree(ctx context.Context, propertyID uuid.UUID) (*models.Property, error)
}

type readAuthorizer interface {
	AuthorizePropertyRead(ctx context.Context, actor *identity.Actor, propertyID uuid.UUID, jobID *uuid.UUID) error
}

// ServiceParams bundles the projection service dependencies.
type ServiceParams struct {
	ChangeLogs changeLogStore
	Assets     assetLocator
	Trees      treeStore
	Identity   identity.Resolver
	Access     readAuthorizer
}

type service struct {
	logs     changeLogStore
	assets   assetLocator
	trees    treeStore
	identity identity.Resolver
	access   readAuthorizer
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.ChangeLogs == nil:
		return nil, fmt.Errorf("change log store required")
	case params.Assets == nil:
		return nil, fmt.Errorf("asset locator required")
	case params.Trees == nil:
		return nil, fmt.Errorf("tree store required")
	case params.Identity == nil:
		return nil, fmt.Errorf("identity resolver required")
	case params.Access == nil:
		return nil, fmt.Errorf("read authorizer required")
	}
	return &service{
		logs:     params.ChangeLogs,
		assets:   params.Assets,
		trees:    params.Trees,
		identity: params.Identity,
		access:   params.Access,
	}, nil
}

func (s *service) AssetSpecification(ctx context.Context, userID, assetID uuid.UUID, jobID *uuid.UUID) (*AssetSpecification, error) {
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	propertyID, err := s.assets.PropertyIDForAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve asset property")
	}
	if err := s.access.AuthorizePropertyRead(ctx, actor, propertyID, jobID); err != nil {
		return nil, err
	}

	rows, err := s.logs.ChangeLogsForAsset(ctx, assetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load change logs")
	}
	out := &AssetSpecification{
		AssetID: assetID,
		Current: Current(rows),
		History: History(rows),
	}
	if out.Current == nil {
		out.Message = NoSpecificationMessage
	}
	return out, nil
}

func (s *service) PropertyRollup(ctx context.Context, userID, propertyID uuid.UUID, jobID *uuid.UUID) (*PropertyRollup, error) {
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizePropertyRead(ctx, actor, propertyID, jobID); err != nil {
		return nil, err
	}
	prop, err := s.trees.LoadTree(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property tree")
	}
	return &PropertyRollup{PropertyID: propertyID, Disciplines: Rollup(prop)}, nil
}
