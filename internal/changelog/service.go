package changelog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/identity"
	"github.com/housebook/housebook-backend/internal/projection"
	"github.com/housebook/housebook-backend/internal/scope"
	"github.com/housebook/housebook-backend/pkg/db"
	"github.com/housebook/housebook-backend/pkg/db/models"
	dbtypes "github.com/housebook/housebook-backend/pkg/db/types"
	"github.com/housebook/housebook-backend/pkg/enums"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/logger"
	"github.com/housebook/housebook-backend/pkg/metrics"
	"github.com/housebook/housebook-backend/pkg/outbox"
	"github.com/housebook/housebook-backend/pkg/outbox/payloads"
	"github.com/housebook/housebook-backend/pkg/pagination"
)

const (
	msgRequestNotFound  = "change request not found"
	msgAlreadyReviewed  = "change request already reviewed"
	msgNotYourRequest   = "you can only cancel your own requests"
	msgBadReviewStatus  = "status must be ACCEPTED or DECLINED"
	msgDescriptionEmpty = "description is required"
	msgAssetRequired    = "select an asset"
	msgBlankSpecKey     = "specification names cannot be blank"
)

// Service runs the change request state machine.
type Service interface {
	AddHistory(ctx context.Context, userID uuid.UUID, input AddHistoryInput) (*projection.ChangeLogView, error)
	SubmitChange(ctx context.Context, userID uuid.UUID, input SubmitChangeInput) (*projection.ChangeLogView, error)
	Draft(ctx context.Context, userID, assetID uuid.UUID, jobID *uuid.UUID) (dbtypes.Specifications, error)
	UpdateRequestStatus(ctx context.Context, userID, changeLogID uuid.UUID, status enums.ChangeLogStatus) (*projection.ChangeLogView, error)
	CancelTradieRequest(ctx context.Context, userID, changeLogID uuid.UUID) error
	ListPendingForProperty(ctx context.Context, userID, propertyID uuid.UUID) ([]RequestItem, error)
	ListMine(ctx context.Context, userID uuid.UUID, page pagination.Params) (*pagination.Page[RequestItem], error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type acceptedStore interface {
	AcceptedForAsset(ctx context.Context, assetID uuid.UUID) ([]models.ChangeLog, error)
}

type assetLocator interface {
	PropertyIDForAsset(ctx context.Context, assetID uuid.UUID) (uuid.UUID, error)
}

// ServiceParams bundles the change request dependencies.
type ServiceParams struct {
	Repo     *Repository
	DB       db.TxRunner
	Identity identity.Resolver
	Scope    scope.Resolver
	Accepted acceptedStore
	Assets   assetLocator
	Outbox   outboxEmitter
	Metrics  *metrics.WorkflowMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	tx       db.TxRunner
	identity identity.Resolver
	scope    scope.Resolver
	accepted acceptedStore
	assets   assetLocator
	outbox   outboxEmitter
	metrics  *metrics.WorkflowMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("changelog repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Identity == nil:
		return nil, fmt.Errorf("identity resolver required")
	case params.Scope == nil:
		return nil, fmt.Errorf("scope resolver required")
	case params.Accepted == nil:
		return nil, fmt.Errorf("accepted change log store required")
	case params.Assets == nil:
		return nil, fmt.Errorf("asset locator required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.DB,
		identity: params.Identity,
		scope:    params.Scope,
		accepted: params.Accepted,
		assets:   params.Assets,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func validateEntry(assetID uuid.UUID, description string, specs dbtypes.Specifications) (string, error) {
	if assetID == uuid.Nil {
		return "", pkgerrors.Invalid("asset_id", "required", msgAssetRequired)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return "", pkgerrors.Invalid("description", "required", msgDescriptionEmpty)
	}
	if _, blank := specs.BlankKey(); blank {
		return "", pkgerrors.Invalid("specifications", "blank_key", msgBlankSpecKey)
	}
	return description, nil
}

func (s *service) AddHistory(ctx context.Context, userID uuid.UUID, input AddHistoryInput) (*projection.ChangeLogView, error) {
	description, err := validateEntry(input.AssetID, input.Description, input.Specifications)
	if err != nil {
		return nil, err
	}
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	propertyID, err := s.identity.RequireAssetOwner(ctx, actor, input.AssetID)
	if err != nil {
		return nil, err
	}

	row := &models.ChangeLog{
		AssetID:           input.AssetID,
		Specifications:    input.Specifications.Clone(),
		ChangeDescription: description,
		ChangedByUserID:   &actor.UserID,
		Status:            enums.ChangeLogStatusAccepted,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Insert(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert change log")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventHistoryRecorded,
			AggregateType: enums.AggregateChangeLog,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: enums.ActorRoleOwner},
			Data: payloads.HistoryRecordedEvent{
				ChangeLogID: row.ID,
				AssetID:     row.AssetID,
				PropertyID:  propertyID,
				RecordedBy:  actor.UserID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.view(row, actor), nil
}

func (s *service) SubmitChange(ctx context.Context, userID uuid.UUID, input SubmitChangeInput) (*projection.ChangeLogView, error) {
	if input.JobID == uuid.Nil {
		return nil, pkgerrors.Invalid("job_id", "required", "job id is required")
	}
	description, err := validateEntry(input.AssetID, input.Description, input.Specifications)
	if err != nil {
		return nil, err
	}
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := identity.RequireTradie(actor); err != nil {
		return nil, err
	}
	if err := s.scope.AuthorizeAssetWrite(ctx, *actor.TradieID, input.JobID, input.AssetID); err != nil {
		return nil, err
	}
	propertyID, err := s.propertyFor(ctx, input.AssetID)
	if err != nil {
		return nil, err
	}

	row := &models.ChangeLog{
		AssetID:           input.AssetID,
		Specifications:    input.Specifications.Clone(),
		ChangeDescription: description,
		ChangedByUserID:   &actor.UserID,
		Status:            enums.ChangeLogStatusPending,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Insert(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert change request")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventChangeRequestSubmitted,
			AggregateType: enums.AggregateChangeLog,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: enums.ActorRoleTradie},
			Data: payloads.ChangeRequestSubmittedEvent{
				ChangeLogID: row.ID,
				AssetID:     row.AssetID,
				JobID:       input.JobID,
				PropertyID:  propertyID,
				SubmittedBy: actor.UserID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncSubmitted()
	return s.view(row, actor), nil
}

// Draft returns a copy of the asset's current accepted snapshot so a new
// entry starts from every existing key.
func (s *service) Draft(ctx context.Context, userID, assetID uuid.UUID, jobID *uuid.UUID) (dbtypes.Specifications, error) {
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if jobID != nil && *jobID != uuid.Nil {
		if err := identity.RequireTradie(actor); err != nil {
			return nil, err
		}
		if err := s.scope.AuthorizeAssetWrite(ctx, *actor.TradieID, *jobID, assetID); err != nil {
			return nil, err
		}
	} else if _, err := s.identity.RequireAssetOwner(ctx, actor, assetID); err != nil {
		return nil, err
	}

	rows, err := s.accepted.AcceptedForAsset(ctx, assetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load accepted specifications")
	}
	current := projection.Current(rows)
	if current == nil {
		return dbtypes.Specifications{}, nil
	}
	return current.Specifications.Clone(), nil
}

// UpdateRequestStatus reviews a pending request. Repeating the same decision
// succeeds without change; the opposite decision is a STATE_CONFLICT.
func (s *service) UpdateRequestStatus(ctx context.Context, userID, changeLogID uuid.UUID, status enums.ChangeLogStatus) (*projection.ChangeLogView, error) {
	if !status.IsTerminal() {
		return nil, pkgerrors.Invalid("status", "review_status", msgBadReviewStatus)
	}
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := identity.RequireOwner(actor); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, s.repo, changeLogID)
	if err != nil {
		return nil, err
	}
	propertyID, err := s.identity.RequireAssetOwner(ctx, actor, row.AssetID)
	if err != nil {
		return nil, err
	}

	var changed bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		changed, err = repo.TransitionFromPending(ctx, changeLogID, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update change request status")
		}
		if !changed {
			current, err := s.load(ctx, repo, changeLogID)
			if err != nil {
				return err
			}
			if current.Status == status {
				row = current
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, msgAlreadyReviewed)
		}
		row.Status = status
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventChangeRequestReviewed,
			AggregateType: enums.AggregateChangeLog,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: enums.ActorRoleOwner},
			Data: payloads.ChangeRequestReviewedEvent{
				ChangeLogID: row.ID,
				AssetID:     row.AssetID,
				PropertyID:  propertyID,
				Status:      status,
				ReviewedBy:  actor.UserID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.ObserveReview(string(status))
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"change_log_id": row.ID.String(),
				"status":        status.API(),
			})
			s.logg.Info(logCtx, "change request reviewed")
		}
	}
	return s.view(row, nil), nil
}

// CancelTradieRequest deletes the caller's own pending request.
func (s *service) CancelTradieRequest(ctx context.Context, userID, changeLogID uuid.UUID) error {
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return err
	}
	if err := identity.RequireTradie(actor); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := s.load(ctx, repo, changeLogID)
		if err != nil {
			return err
		}
		if row.ChangedByUserID == nil || *row.ChangedByUserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, msgNotYourRequest)
		}
		deleted, err := repo.DeletePendingByAuthor(ctx, changeLogID, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel change request")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, msgAlreadyReviewed)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventChangeRequestCancelled,
			AggregateType: enums.AggregateChangeLog,
			AggregateID:   changeLogID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: enums.ActorRoleTradie},
			Data: payloads.ChangeRequestCancelledEvent{
				ChangeLogID: changeLogID,
				AssetID:     row.AssetID,
				CancelledBy: actor.UserID,
			},
		})
	})
}

func (s *service) ListPendingForProperty(ctx context.Context, userID, propertyID uuid.UUID) ([]RequestItem, error) {
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.identity.RequirePropertyOwner(ctx, actor, propertyID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPendingForProperty(ctx, propertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending requests")
	}
	return toRequestItems(rows), nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, page pagination.Params) (*pagination.Page[RequestItem], error) {
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := identity.RequireTradie(actor); err != nil {
		return nil, err
	}
	after, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, pkgerrors.Invalid("cursor", "cursor", "invalid cursor")
	}
	rows, err := s.repo.ListByAuthor(ctx, actor.UserID, after, pagination.LimitWithBuffer(page.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list my requests")
	}
	rows, next := pagination.Trim(rows, page.Limit, func(row requestRow) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return &pagination.Page[RequestItem]{Items: toRequestItems(rows), NextCursor: next}, nil
}

func (s *service) load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.ChangeLog, error) {
	row, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgRequestNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load change request")
	}
	return row, nil
}

func (s *service) propertyFor(ctx context.Context, assetID uuid.UUID) (uuid.UUID, error) {
	propertyID, err := s.assets.PropertyIDForAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve asset property")
	}
	return propertyID, nil
}

func (s *service) view(row *models.ChangeLog, actor *identity.Actor) *projection.ChangeLogView {
	author := row.AuthorName()
	if actor != nil && row.ChangedByUserID != nil && *row.ChangedByUserID == actor.UserID && actor.DisplayName != "" {
		author = actor.DisplayName
	}
	return &projection.ChangeLogView{
		ID:                row.ID,
		AssetID:           row.AssetID,
		Specifications:    row.Specifications.Clone(),
		ChangeDescription: row.ChangeDescription,
		Status:            row.Status.API(),
		ChangedByUserID:   row.ChangedByUserID,
		Author:            author,
		CreatedAt:         row.CreatedAt,
	}
}
