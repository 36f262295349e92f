package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housebook/housebook-backend/internal/changelog"
	"github.com/housebook/housebook-backend/internal/projection"
	dbtypes "github.com/housebook/housebook-backend/pkg/db/types"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/pagination"
)

func TestTradieClaimFromQRPayload(t *testing.T) {
	propertyID := uuid.New()
	svc := &stubJobs{}
	body := `{"qr_payload":"housebook://property/` + propertyID.String() + `"}`
	req := withRoute(httptest.NewRequest(http.MethodPost, "/claim", strings.NewReader(body)), uuid.New(), nil)
	rec := httptest.NewRecorder()

	TradieClaim(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, propertyID, svc.claimedProperty)
}

func TestTradieClaimNeedsPropertyOrQR(t *testing.T) {
	svc := &stubJobs{}
	req := withRoute(httptest.NewRequest(http.MethodPost, "/claim", strings.NewReader(`{}`)), uuid.New(), nil)
	rec := httptest.NewRecorder()

	TradieClaim(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, uuid.Nil, svc.claimedProperty)
}

func TestTradieClaimLostRaceIsConflict(t *testing.T) {
	svc := &stubJobs{err: pkgerrors.New(pkgerrors.CodeConflict, "job already claimed")}
	body := `{"property_id":"` + uuid.NewString() + `"}`
	req := withRoute(httptest.NewRequest(http.MethodPost, "/claim", strings.NewReader(body)), uuid.New(), nil)
	rec := httptest.NewRecorder()

	TradieClaim(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTradieClaimPINPassesPIN(t *testing.T) {
	svc := &stubJobs{}
	body := `{"property_id":"` + uuid.NewString() + `","pin":"4321"}`
	req := withRoute(httptest.NewRequest(http.MethodPost, "/claim-pin", strings.NewReader(body)), uuid.New(), nil)
	rec := httptest.NewRecorder()

	TradieClaimPIN(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4321", svc.pin)
}

func TestTradieSubmitChangeUsesPathIDs(t *testing.T) {
	userID, jobID, assetID := uuid.New(), uuid.New(), uuid.New()
	var got changelog.SubmitChangeInput
	svc := &stubChangelog{submit: func(u uuid.UUID, in changelog.SubmitChangeInput) (*projection.ChangeLogView, error) {
		got = in
		return &projection.ChangeLogView{ID: uuid.New(), AssetID: in.AssetID, Status: "PENDING"}, nil
	}}
	body := `{"description":"replaced tap","specifications":{"Brand":"Acme"}}`
	req := withRoute(httptest.NewRequest(http.MethodPost, "/changes", strings.NewReader(body)), userID,
		map[string]string{"jobId": jobID.String(), "assetId": assetID.String()})
	rec := httptest.NewRecorder()

	TradieSubmitChange(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, jobID, got.JobID)
	assert.Equal(t, assetID, got.AssetID)
	assert.Equal(t, dbtypes.Specifications{"Brand": "Acme"}, got.Specifications)

	var envelope struct {
		Data projection.ChangeLogView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "PENDING", envelope.Data.Status)
}

func TestTradieSubmitChangeRejectsBadPath(t *testing.T) {
	svc := &stubChangelog{}
	req := withRoute(httptest.NewRequest(http.MethodPost, "/changes", strings.NewReader(`{}`)), uuid.New(),
		map[string]string{"jobId": "not-a-uuid", "assetId": uuid.NewString()})
	rec := httptest.NewRecorder()

	TradieSubmitChange(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTradieDraftScopesToJob(t *testing.T) {
	jobID, assetID := uuid.New(), uuid.New()
	svc := &stubChangelog{draft: func(u, a uuid.UUID, j *uuid.UUID) (dbtypes.Specifications, error) {
		require.NotNil(t, j)
		assert.Equal(t, jobID, *j)
		assert.Equal(t, assetID, a)
		return dbtypes.Specifications{"Colour": "White"}, nil
	}}
	req := withRoute(httptest.NewRequest(http.MethodGet, "/draft", nil), uuid.New(),
		map[string]string{"jobId": jobID.String(), "assetId": assetID.String()})
	rec := httptest.NewRecorder()

	TradieDraft(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Colour":"White"`)
}

func TestTradieCancelReviewedRequest(t *testing.T) {
	svc := &stubChangelog{cancel: func(u, id uuid.UUID) error {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending requests can be cancelled")
	}}
	req := withRoute(httptest.NewRequest(http.MethodDelete, "/requests", nil), uuid.New(),
		map[string]string{"changeLogId": uuid.NewString()})
	rec := httptest.NewRecorder()

	TradieCancelRequest(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTradieRequestsPassesPage(t *testing.T) {
	var seen pagination.Params
	svc := &stubChangelog{listMine: func(page pagination.Params) (*pagination.Page[changelog.RequestItem], error) {
		seen = page
		return &pagination.Page[changelog.RequestItem]{Items: []changelog.RequestItem{{ID: uuid.New(), Status: "PENDING"}}, NextCursor: "next"}, nil
	}}
	req := withRoute(httptest.NewRequest(http.MethodGet, "/requests?limit=10&cursor=abc", nil), uuid.New(), nil)
	rec := httptest.NewRecorder()

	TradieRequests(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pagination.Params{Limit: 10, Cursor: "abc"}, seen)
	var body struct {
		Data struct {
			Items      []changelog.RequestItem `json:"items"`
			NextCursor string                  `json:"next_cursor"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data.Items, 1)
	assert.Equal(t, "next", body.Data.NextCursor)
}

func TestTradieRequestsRejectsBadLimit(t *testing.T) {
	req := withRoute(httptest.NewRequest(http.MethodGet, "/requests?limit=-3", nil), uuid.New(), nil)
	rec := httptest.NewRecorder()

	TradieRequests(&stubChangelog{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTradieRoutesNeedUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/requests", nil)
	rec := httptest.NewRecorder()

	TradieRequests(&stubChangelog{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }
