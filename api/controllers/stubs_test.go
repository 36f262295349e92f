package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/api/middleware"
	"github.com/housebook/housebook-backend/internal/changelog"
	"github.com/housebook/housebook-backend/internal/jobs"
	"github.com/housebook/housebook-backend/internal/projection"
	dbtypes "github.com/housebook/housebook-backend/pkg/db/types"
	"github.com/housebook/housebook-backend/pkg/enums"
	"github.com/housebook/housebook-backend/pkg/pagination"
)

type stubChangelog struct {
	submit   func(userID uuid.UUID, in changelog.SubmitChangeInput) (*projection.ChangeLogView, error)
	review   func(userID, id uuid.UUID, status enums.ChangeLogStatus) (*projection.ChangeLogView, error)
	cancel   func(userID, id uuid.UUID) error
	draft    func(userID, assetID uuid.UUID, jobID *uuid.UUID) (dbtypes.Specifications, error)
	listMine func(page pagination.Params) (*pagination.Page[changelog.RequestItem], error)
}

func (s *stubChangelog) AddHistory(ctx context.Context, userID uuid.UUID, in changelog.AddHistoryInput) (*projection.ChangeLogView, error) {
	return &projection.ChangeLogView{ID: uuid.New(), AssetID: in.AssetID, Status: "ACCEPTED"}, nil
}

func (s *stubChangelog) SubmitChange(ctx context.Context, userID uuid.UUID, in changelog.SubmitChangeInput) (*projection.ChangeLogView, error) {
	return s.submit(userID, in)
}

func (s *stubChangelog) Draft(ctx context.Context, userID, assetID uuid.UUID, jobID *uuid.UUID) (dbtypes.Specifications, error) {
	return s.draft(userID, assetID, jobID)
}

func (s *stubChangelog) UpdateRequestStatus(ctx context.Context, userID, id uuid.UUID, status enums.ChangeLogStatus) (*projection.ChangeLogView, error) {
	return s.review(userID, id, status)
}

func (s *stubChangelog) CancelTradieRequest(ctx context.Context, userID, id uuid.UUID) error {
	return s.cancel(userID, id)
}

func (s *stubChangelog) ListPendingForProperty(ctx context.Context, userID, propertyID uuid.UUID) ([]changelog.RequestItem, error) {
	return nil, nil
}

func (s *stubChangelog) ListMine(ctx context.Context, userID uuid.UUID, page pagination.Params) (*pagination.Page[changelog.RequestItem], error) {
	if s.listMine != nil {
		return s.listMine(page)
	}
	return &pagination.Page[changelog.RequestItem]{Items: []changelog.RequestItem{}}, nil
}

type stubJobs struct {
	claimedProperty uuid.UUID
	pin             string
	err             error
}

func (s *stubJobs) ClaimByPropertyID(ctx context.Context, userID, propertyID uuid.UUID) (*jobs.ClaimResult, error) {
	s.claimedProperty = propertyID
	if s.err != nil {
		return nil, s.err
	}
	return &jobs.ClaimResult{PropertyID: propertyID, Job: &jobs.JobDTO{ID: uuid.New(), PropertyID: propertyID, Status: "ACCEPTED"}}, nil
}

func (s *stubJobs) ClaimWithPIN(ctx context.Context, userID, propertyID uuid.UUID, pin string) (*jobs.ClaimResult, error) {
	s.pin = pin
	return s.ClaimByPropertyID(ctx, userID, propertyID)
}

func (s *stubJobs) CreateJob(ctx context.Context, userID uuid.UUID, in jobs.CreateJobInput) (*jobs.JobDTO, error) {
	return &jobs.JobDTO{ID: uuid.New(), PropertyID: in.PropertyID, AssetIDs: in.AssetIDs, PIN: "123456"}, s.err
}

func (s *stubJobs) ListTradieJobs(ctx context.Context, userID uuid.UUID) ([]jobs.JobSummary, error) {
	return nil, s.err
}

func (s *stubJobs) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// withRoute attaches chi params and an authenticated user to r.
func withRoute(r *http.Request, userID uuid.UUID, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if userID != uuid.Nil {
		ctx = middleware.WithUserID(ctx, userID)
	}
	return r.WithContext(ctx)
}
