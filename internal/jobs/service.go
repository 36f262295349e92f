package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/identity"
	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/db"
	"github.com/housebook/housebook-backend/pkg/db/models"
	"github.com/housebook/housebook-backend/pkg/enums"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/logger"
	"github.com/housebook/housebook-backend/pkg/metrics"
	"github.com/housebook/housebook-backend/pkg/outbox"
	"github.com/housebook/housebook-backend/pkg/outbox/payloads"
	"github.com/housebook/housebook-backend/pkg/security"
)

const (
	msgNoPendingJob     = "no pending job for this property (it may already be taken)"
	msgAlreadyClaimed   = "job already claimed by another tradesperson"
	msgPropertyNotFound = "property not found"
	msgInvalidPIN       = "invalid PIN or job unavailable"

	expireBatchSize = 200
)

// Service coordinates job creation, claiming and expiry.
type Service interface {
	ClaimByPropertyID(ctx context.Context, userID, propertyID uuid.UUID) (*ClaimResult, error)
	ClaimWithPIN(ctx context.Context, userID, propertyID uuid.UUID, pin string) (*ClaimResult, error)
	CreateJob(ctx context.Context, userID uuid.UUID, input CreateJobInput) (*JobDTO, error)
	ListTradieJobs(ctx context.Context, userID uuid.UUID) ([]JobSummary, error)
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams bundles the job service dependencies.
type ServiceParams struct {
	Repo     *Repository
	DB       db.TxRunner
	Identity identity.Resolver
	Outbox   outboxEmitter
	Metrics  *metrics.WorkflowMetrics
	Config   config.JobsConfig
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	tx       db.TxRunner
	identity identity.Resolver
	outbox   outboxEmitter
	metrics  *metrics.WorkflowMetrics
	cfg      config.JobsConfig
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("jobs repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Identity == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Config.ClaimTTL <= 0 {
		return nil, fmt.Errorf("claim ttl must be positive")
	}
	if params.Config.PINLength <= 0 {
		return nil, fmt.Errorf("pin length must be positive")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.DB,
		identity: params.Identity,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		cfg:      params.Config,
		logg:     params.Logger,
	}, nil
}

func (s *service) ClaimByPropertyID(ctx context.Context, userID, propertyID uuid.UUID) (*ClaimResult, error) {
	if propertyID == uuid.Nil {
		return nil, pkgerrors.Invalid("property_id", "required", "property id is required")
	}
	job, err := s.repo.FindPendingByProperty(ctx, propertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find pending job")
	}
	if job == nil {
		s.metrics.ObserveClaim(metrics.ClaimMethodProperty, metrics.ClaimOutcomeNotFound)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgNoPendingJob)
	}
	return s.claim(ctx, userID, job, payloads.ClaimMethodProperty)
}

func (s *service) ClaimWithPIN(ctx context.Context, userID, propertyID uuid.UUID, pin string) (*ClaimResult, error) {
	if propertyID == uuid.Nil {
		return nil, pkgerrors.Invalid("property_id", "required", "property id is required")
	}
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return nil, pkgerrors.Invalid("pin", "required", "PIN is required")
	}

	exists, err := s.repo.PropertyExists(ctx, propertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check property")
	}
	if !exists {
		s.metrics.ObserveClaim(metrics.ClaimMethodPIN, metrics.ClaimOutcomeNotFound)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgPropertyNotFound)
	}

	job, err := s.repo.FindClaimableByPIN(ctx, propertyID, pin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find job by pin")
	}
	if job == nil {
		s.metrics.ObserveClaim(metrics.ClaimMethodPIN, metrics.ClaimOutcomeNotFound)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgInvalidPIN)
	}
	return s.claim(ctx, userID, job, payloads.ClaimMethodPIN)
}

func (s *service) claim(ctx context.Context, userID uuid.UUID, job *models.Job, method payloads.ClaimMethod) (*ClaimResult, error) {
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := identity.RequireTradie(actor); err != nil {
		return nil, err
	}
	tradieID := *actor.TradieID

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		won, err := s.repo.WithTx(tx).Claim(ctx, job.ID, tradieID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim job")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeConflict, msgAlreadyClaimed)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventJobClaimed,
			AggregateType: enums.AggregateJob,
			AggregateID:   job.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: enums.ActorRoleTradie},
			Data: payloads.JobClaimedEvent{
				JobID:      job.ID,
				PropertyID: job.PropertyID,
				TradieID:   tradieID,
				Method:     method,
			},
		})
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			s.metrics.ObserveClaim(string(method), metrics.ClaimOutcomeRaceLost)
		}
		return nil, err
	}
	s.metrics.ObserveClaim(string(method), metrics.ClaimOutcomeClaimed)

	job.TradieID = &tradieID
	job.Status = enums.JobStatusAccepted
	if s.logg != nil {
		s.logg.Info(s.logg.WithJobID(ctx, job.ID.String()), "job claimed")
	}
	return &ClaimResult{Job: fromModel(job), PropertyID: job.PropertyID}, nil
}

func (s *service) CreateJob(ctx context.Context, userID uuid.UUID, input CreateJobInput) (*JobDTO, error) {
	if input.PropertyID == uuid.Nil {
		return nil, pkgerrors.Invalid("property_id", "required", "property id is required")
	}
	assetIDs := dedupe(input.AssetIDs)
	if len(assetIDs) == 0 {
		return nil, pkgerrors.Invalid("asset_ids", "required", "select at least one asset")
	}

	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.identity.RequirePropertyOwner(ctx, actor, input.PropertyID); err != nil {
		return nil, err
	}

	pin := strings.TrimSpace(input.PIN)
	if pin == "" {
		pin, err = security.GeneratePIN(s.cfg.PINLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate pin")
		}
	}

	job := &models.Job{
		PropertyID: input.PropertyID,
		PIN:        pin,
		Status:     enums.JobStatusPending,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountAssetsInProperty(ctx, input.PropertyID, assetIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check job assets")
		}
		if count != int64(len(assetIDs)) {
			return pkgerrors.Invalid("asset_ids", "asset_scope", "every asset must belong to the property")
		}
		if err := repo.Create(ctx, job, assetIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create job")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventJobCreated,
			AggregateType: enums.AggregateJob,
			AggregateID:   job.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: enums.ActorRoleOwner},
			Data: payloads.JobCreatedEvent{
				JobID:      job.ID,
				PropertyID: job.PropertyID,
				AssetIDs:   assetIDs,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	dto := fromModel(job)
	dto.PIN = job.PIN
	dto.AssetIDs = assetIDs
	return dto, nil
}

func (s *service) ListTradieJobs(ctx context.Context, userID uuid.UUID) ([]JobSummary, error) {
	actor, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := identity.RequireTradie(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListActiveForTradie(ctx, *actor.TradieID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tradie jobs")
	}
	return rows, nil
}

// ExpirePending expires pending jobs older than the claim TTL and returns
// how many rows it changed.
func (s *service) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.UTC().Add(-s.cfg.ClaimTTL)
	stale, err := s.repo.FindStalePending(ctx, cutoff, expireBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stale jobs")
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var expired int64
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, job := range stale {
			ok, err := repo.Expire(ctx, job.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire job")
			}
			if !ok {
				continue
			}
			expired++
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventJobExpired,
				AggregateType: enums.AggregateJob,
				AggregateID:   job.ID,
				Data: payloads.JobExpiredEvent{
					JobID:      job.ID,
					PropertyID: job.PropertyID,
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.AddExpired(expired)
	return expired, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
