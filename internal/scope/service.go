package scope

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/identity"
	"github.com/housebook/housebook-backend/internal/properties"
	"github.com/housebook/housebook-backend/pkg/db/models"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

const (
	msgJobNotFound   = "job not found"
	msgNotYourJob    = "job is not assigned to you"
	msgJobInactive   = "job is no longer active"
	msgAssetOutScope = "asset is not part of this job"
	msgOtherProperty = "job does not cover this property"
)

// Scope is a tradie's view of a property through one job.
type Scope struct {
	JobID            uuid.UUID                `json:"job_id"`
	Property         *properties.PropertyTree `json:"property"`
	EditableAssetIDs AssetSet                 `json:"editable_asset_ids"`
}

// Resolver answers which assets a tradie's job lets them touch.
type Resolver interface {
	FetchPropertyAndJobScope(ctx context.Context, userID, propertyID, jobID uuid.UUID) (*Scope, error)
	AuthorizeAssetWrite(ctx context.Context, tradieID, jobID, assetID uuid.UUID) error
	ActiveJob(ctx context.Context, tradieID, jobID uuid.UUID) (*models.Job, error)
	AuthorizePropertyRead(ctx context.Context, actor *identity.Actor, propertyID uuid.UUID, jobID *uuid.UUID) error
}

type jobStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	AssetIDs(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error)
}

type treeStore interface {
	LoadTree(ctx context.Context, propertyID uuid.UUID) (*models.Property, error)
}

type service struct {
	jobs     jobStore
	trees    treeStore
	identity identity.Resolver
}

func NewService(jobs jobStore, trees treeStore, resolver identity.Resolver) (Resolver, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job store required")
	}
	if trees == nil {
		return nil, fmt.Errorf("tree store required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	return &service{jobs: jobs, trees: trees, identity: resolver}, nil
}

func (s *service) FetchPropertyAndJobScope(ctx context.Context, userID, propertyID, jobID uuid.UUID) (*Scope, error) {
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := identity.RequireTradie(actor); err != nil {
		return nil, err
	}
	job, err := s.ActiveJob(ctx, *actor.TradieID, jobID)
	if err != nil {
		return nil, err
	}
	if job.PropertyID != propertyID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgJobNotFound)
	}

	var (
		prop     *models.Property
		assetIDs []uuid.UUID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prop, err = s.trees.LoadTree(gctx, propertyID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property tree")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		assetIDs, err = s.jobs.AssetIDs(gctx, jobID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job assets")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	editable := NewAssetSet(assetIDs...)
	return &Scope{
		JobID:            jobID,
		Property:         properties.BuildTree(prop, editable.Has),
		EditableAssetIDs: editable,
	}, nil
}

// ActiveJob loads the job and checks it is accepted, unexpired and held by tradieID.
func (s *service) ActiveJob(ctx context.Context, tradieID, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgJobNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
	}
	if job.TradieID == nil || *job.TradieID != tradieID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgNotYourJob)
	}
	if !job.IsActiveFor(tradieID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgJobInactive)
	}
	return job, nil
}

// AuthorizeAssetWrite re-checks on the server that the asset is inside the
// tradie's active job.
func (s *service) AuthorizeAssetWrite(ctx context.Context, tradieID, jobID, assetID uuid.UUID) error {
	if _, err := s.ActiveJob(ctx, tradieID, jobID); err != nil {
		return err
	}
	ids, err := s.jobs.AssetIDs(ctx, jobID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job assets")
	}
	if !NewAssetSet(ids...).Has(assetID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, msgAssetOutScope)
	}
	return nil
}

// AuthorizePropertyRead lets owners of the property read it, and tradies
// read it through an active job on that property.
func (s *service) AuthorizePropertyRead(ctx context.Context, actor *identity.Actor, propertyID uuid.UUID, jobID *uuid.UUID) error {
	if jobID == nil || *jobID == uuid.Nil {
		return s.identity.RequirePropertyOwner(ctx, actor, propertyID)
	}
	if err := identity.RequireTradie(actor); err != nil {
		return err
	}
	job, err := s.ActiveJob(ctx, *actor.TradieID, *jobID)
	if err != nil {
		return err
	}
	if job.PropertyID != propertyID {
		return pkgerrors.New(pkgerrors.CodeForbidden, msgOtherProperty)
	}
	return nil
}
