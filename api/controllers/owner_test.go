package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housebook/housebook-backend/internal/projection"
	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/enums"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

func TestOwnerReviewRequestParsesStatus(t *testing.T) {
	ownerID, changeLogID := uuid.New(), uuid.New()
	var gotStatus enums.ChangeLogStatus
	svc := &stubChangelog{review: func(u, id uuid.UUID, status enums.ChangeLogStatus) (*projection.ChangeLogView, error) {
		assert.Equal(t, ownerID, u)
		assert.Equal(t, changeLogID, id)
		gotStatus = status
		return &projection.ChangeLogView{ID: id, Status: status.API()}, nil
	}}
	req := withRoute(httptest.NewRequest(http.MethodPost, "/status", strings.NewReader(`{"status":"ACCEPTED"}`)), ownerID,
		map[string]string{"changeLogId": changeLogID.String()})
	rec := httptest.NewRecorder()

	OwnerReviewRequest(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.ChangeLogStatusAccepted, gotStatus)
	assert.Contains(t, rec.Body.String(), `"status":"ACCEPTED"`)
}

func TestOwnerReviewRequestRejectsUnknownStatus(t *testing.T) {
	called := false
	svc := &stubChangelog{review: func(u, id uuid.UUID, status enums.ChangeLogStatus) (*projection.ChangeLogView, error) {
		called = true
		return nil, nil
	}}
	req := withRoute(httptest.NewRequest(http.MethodPost, "/status", strings.NewReader(`{"status":"MAYBE"}`)), uuid.New(),
		map[string]string{"changeLogId": uuid.NewString()})
	rec := httptest.NewRecorder()

	OwnerReviewRequest(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestOwnerReviewRequestForbidden(t *testing.T) {
	svc := &stubChangelog{review: func(u, id uuid.UUID, status enums.ChangeLogStatus) (*projection.ChangeLogView, error) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not an owner of this property")
	}}
	req := withRoute(httptest.NewRequest(http.MethodPost, "/status", strings.NewReader(`{"status":"DECLINED"}`)), uuid.New(),
		map[string]string{"changeLogId": uuid.NewString()})
	rec := httptest.NewRecorder()

	OwnerReviewRequest(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOwnerCreateJobRequiresAssets(t *testing.T) {
	req := withRoute(httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"asset_ids":[]}`)), uuid.New(),
		map[string]string{"propertyId": uuid.NewString()})
	rec := httptest.NewRecorder()

	OwnerCreateJob(&stubJobs{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOwnerCreateJobReturnsCreated(t *testing.T) {
	propertyID, assetID := uuid.New(), uuid.New()
	body := `{"asset_ids":["` + assetID.String() + `"]}`
	req := withRoute(httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body)), uuid.New(),
		map[string]string{"propertyId": propertyID.String()})
	rec := httptest.NewRecorder()

	OwnerCreateJob(&stubJobs{}, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), propertyID.String())
	assert.Contains(t, rec.Body.String(), `"pin":"123456"`)
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": okPinger{}, "redis": failingPinger{}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": okPinger{}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Housebook-Env"))
}
