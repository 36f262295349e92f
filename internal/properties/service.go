package properties

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/identity"
	"github.com/housebook/housebook-backend/pkg/db/models"
	"github.com/housebook/housebook-backend/pkg/enums"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/logger"
)

type urlSigner interface {
	PresignedGetURL(ctx context.Context, key string) (string, error)
}

// Service serves the owner read side and the space/asset catalogue.
type Service interface {
	Overview(ctx context.Context, userID uuid.UUID) (*Overview, error)
	Tree(ctx context.Context, userID, propertyID uuid.UUID) (*PropertyTree, error)
	CreateSpace(ctx context.Context, userID uuid.UUID, input CreateSpaceInput) (*SpaceNode, error)
	CreateAsset(ctx context.Context, userID uuid.UUID, input CreateAssetInput) (*AssetNode, error)
	ListAssetTypes(ctx context.Context) ([]AssetTypeDTO, error)
}

// Overview is the owner's landing payload.
type Overview struct {
	User       OverviewUser      `json:"user"`
	Properties []PropertySummary `json:"properties"`
}

type OverviewUser struct {
	ID          uuid.UUID         `json:"id"`
	DisplayName string            `json:"display_name"`
	Roles       []enums.ActorRole `json:"roles"`
}

type PropertySummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Address     *string   `json:"address,omitempty"`
	Description *string   `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
}

type CreateSpaceInput struct {
	PropertyID uuid.UUID
	Name       string
	Type       *string
}

type CreateAssetInput struct {
	SpaceID     uuid.UUID
	Description string
	AssetTypeID *uuid.UUID
}

type service struct {
	repo     *Repository
	identity identity.Resolver
	signer   urlSigner
	logg     *logger.Logger
}

// NewService builds the properties service. signer may be nil, in which case
// image URLs are omitted.
func NewService(repo *Repository, resolver identity.Resolver, signer urlSigner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("properties repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	return &service{repo: repo, identity: resolver, signer: signer, logg: logg}, nil
}

func (s *service) Overview(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	var (
		actor *identity.Actor
		props []models.Property
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		actor, err = s.identity.Resolve(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		props, err = s.repo.ListOwnedByUser(gctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owned properties")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := identity.RequireOwner(actor); err != nil {
		return nil, err
	}

	out := &Overview{
		User: OverviewUser{
			ID:          actor.UserID,
			DisplayName: actor.DisplayName,
			Roles:       actor.Roles(),
		},
		Properties: make([]PropertySummary, 0, len(props)),
	}
	for i := range props {
		p := &props[i]
		out.Properties = append(out.Properties, PropertySummary{
			ID:          p.ID,
			Name:        p.Name,
			Address:     p.Address,
			Description: p.Description,
			ImageURL:    s.imageURL(ctx, p.ImageKey),
		})
	}
	return out, nil
}

func (s *service) Tree(ctx context.Context, userID, propertyID uuid.UUID) (*PropertyTree, error) {
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.identity.RequirePropertyOwner(ctx, actor, propertyID); err != nil {
		return nil, err
	}
	prop, err := s.repo.LoadTree(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property tree")
	}
	tree := BuildTree(prop, nil)
	tree.ImageURL = s.imageURL(ctx, prop.ImageKey)
	return tree, nil
}

func (s *service) CreateSpace(ctx context.Context, userID uuid.UUID, input CreateSpaceInput) (*SpaceNode, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.Invalid("name", "required", "space name is required")
	}
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.identity.RequirePropertyOwner(ctx, actor, input.PropertyID); err != nil {
		return nil, err
	}

	space := &models.Space{PropertyID: input.PropertyID, Name: name, Type: trimmedOrNil(input.Type)}
	if err := s.repo.CreateSpace(ctx, space); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create space")
	}
	return &SpaceNode{ID: space.ID, Name: space.Name, Type: space.Type, Assets: []AssetNode{}}, nil
}

func (s *service) CreateAsset(ctx context.Context, userID uuid.UUID, input CreateAssetInput) (*AssetNode, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.Invalid("description", "required", "asset description is required")
	}
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := identity.RequireOwner(actor); err != nil {
		return nil, err
	}

	space, err := s.repo.FindSpace(ctx, input.SpaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "space not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load space")
	}
	if err := s.identity.RequirePropertyOwner(ctx, actor, space.PropertyID); err != nil {
		return nil, err
	}

	var assetType *models.AssetType
	if input.AssetTypeID != nil && *input.AssetTypeID != uuid.Nil {
		assetType, err = s.repo.FindAssetType(ctx, *input.AssetTypeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Invalid("asset_type_id", "exists", "unknown asset type")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset type")
		}
	}

	asset := &models.Asset{SpaceID: space.ID, Description: &description}
	if assetType != nil {
		asset.AssetTypeID = &assetType.ID
	}
	if err := s.repo.CreateAsset(ctx, asset); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create asset")
	}
	return &AssetNode{
		ID:          asset.ID,
		Description: description,
		AssetType:   assetTypeDTO(assetType),
		ChangeLogs:  []ChangeLogNode{},
	}, nil
}

func (s *service) ListAssetTypes(ctx context.Context) ([]AssetTypeDTO, error) {
	rows, err := s.repo.ListAssetTypes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list asset types")
	}
	out := make([]AssetTypeDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *assetTypeDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) imageURL(ctx context.Context, key *string) string {
	if s.signer == nil || key == nil || strings.TrimSpace(*key) == "" {
		return ""
	}
	url, err := s.signer.PresignedGetURL(ctx, *key)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "image_key", *key), "presign property image failed")
		}
		return ""
	}
	return url
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
