package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// newTestServer routes "METHOD /path" keys to handlers and returns a client
// already holding a bearer token.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, New(srv.URL, WithToken("test-token"))
}

func jsonData(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"data": v}) //nolint:errcheck
}

func jsonError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", "req-1")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": code, "message": msg}}) //nolint:errcheck
}

func TestLoginStoresToken(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/auth/login": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
			if body["email"] != "sam@example.com" {
				jsonError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
				return
			}
			jsonData(w, http.StatusOK, Session{AccessToken: "fresh", RefreshToken: "r1", Roles: []string{"tradie"}})
		},
	})
	s, err := c.Login(context.Background(), "sam@example.com", "pw")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if !s.HasRole("tradie") || s.HasRole("owner") {
		t.Errorf("unexpected roles %v", s.Roles)
	}
	if c.Token() != "fresh" {
		t.Errorf("got token %q, want fresh", c.Token())
	}

	_, err = c.Login(context.Background(), "nobody@example.com", "pw")
	if !IsCode(err, CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestRequestsCarryBearerAndIdempotencyKey(t *testing.T) {
	propertyID := uuid.New()
	jobID := uuid.New()
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/tradie/jobs/claim": func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer test-token" {
				jsonError(w, http.StatusUnauthorized, CodeUnauthorized, "missing credentials")
				return
			}
			if r.Header.Get("Idempotency-Key") != "scan-1" {
				jsonError(w, http.StatusBadRequest, CodeValidation, "missing key")
				return
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
			if body["qr_payload"] == "" {
				jsonError(w, http.StatusBadRequest, CodeValidation, "qr_payload required")
				return
			}
			jsonData(w, http.StatusOK, Claim{PropertyID: propertyID, Job: &Job{ID: jobID, PropertyID: propertyID, Status: "accepted"}})
		},
	})
	claim, err := c.ClaimByQR(context.Background(), "housebook://property/"+propertyID.String(), WithIdempotencyKey("scan-1"))
	if err != nil {
		t.Fatalf("ClaimByQR() error: %v", err)
	}
	if claim.Job.ID != jobID || claim.PropertyID != propertyID {
		t.Errorf("unexpected claim %+v", claim)
	}
}

func TestClaimConflict(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/tradie/jobs/claim-pin": func(w http.ResponseWriter, _ *http.Request) {
			jsonError(w, http.StatusConflict, CodeConflict, "job already claimed")
		},
	})
	_, err := c.ClaimWithPIN(context.Background(), uuid.New(), "1234")
	if !IsClaimConflict(err) {
		t.Fatalf("expected claim conflict, got %v", err)
	}
	apiErr := err.(*APIError)
	if apiErr.StatusCode != http.StatusConflict || apiErr.RequestID != "req-1" {
		t.Errorf("unexpected error fields %+v", apiErr)
	}
}

func TestScopeAndDraft(t *testing.T) {
	propertyID, jobID, assetID := uuid.New(), uuid.New(), uuid.New()
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/tradie/properties/{propertyId}/jobs/{jobId}/scope": func(w http.ResponseWriter, r *http.Request) {
			if r.PathValue("jobId") != jobID.String() {
				jsonError(w, http.StatusForbidden, CodeForbidden, "job not assigned")
				return
			}
			jsonData(w, http.StatusOK, Scope{
				JobID:            jobID,
				EditableAssetIDs: []uuid.UUID{assetID},
				Property: &Property{ID: propertyID, Name: "Home", Spaces: []Space{{
					ID: uuid.New(), Name: "Kitchen",
					Assets: []Asset{{ID: assetID, Description: "Benchtop", Editable: true}},
				}}},
			})
		},
		"GET /api/v1/tradie/jobs/{jobId}/assets/{assetId}/draft": func(w http.ResponseWriter, _ *http.Request) {
			jsonData(w, http.StatusOK, map[string]any{"specifications": Specifications{"colour": "white"}})
		},
	})
	scope, err := c.Scope(context.Background(), propertyID, jobID)
	if err != nil {
		t.Fatalf("Scope() error: %v", err)
	}
	if !scope.Editable(assetID) || scope.Editable(uuid.New()) {
		t.Errorf("unexpected editable set %v", scope.EditableAssetIDs)
	}
	if asset, ok := scope.Property.Asset(assetID); !ok || asset.Description != "Benchtop" {
		t.Errorf("asset lookup failed: %+v", asset)
	}

	if _, err := c.Scope(context.Background(), propertyID, uuid.New()); !IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	draft, err := c.Draft(context.Background(), jobID, assetID)
	if err != nil {
		t.Fatalf("Draft() error: %v", err)
	}
	if draft["colour"] != "white" {
		t.Errorf("unexpected draft %v", draft)
	}
}

func TestSubmitReviewAndCancel(t *testing.T) {
	jobID, assetID, changeID := uuid.New(), uuid.New(), uuid.New()
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/tradie/jobs/{jobId}/assets/{assetId}/changes": func(w http.ResponseWriter, r *http.Request) {
			var in ChangeInput
			json.NewDecoder(r.Body).Decode(&in) //nolint:errcheck
			jsonData(w, http.StatusCreated, ChangeLog{ID: changeID, AssetID: assetID, Specifications: in.Specifications, ChangeDescription: in.Description, Status: StatusPending})
		},
		"POST /api/v1/owner/requests/{changeLogId}/status": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
			if body["status"] == StatusPending {
				jsonError(w, http.StatusBadRequest, CodeValidation, "status must be ACCEPTED or DECLINED")
				return
			}
			jsonData(w, http.StatusOK, ChangeLog{ID: changeID, Status: body["status"]})
		},
		"DELETE /api/v1/tradie/requests/{changeLogId}": func(w http.ResponseWriter, _ *http.Request) {
			jsonError(w, http.StatusUnprocessableEntity, CodeStateConflict, "request is no longer pending")
		},
	})

	ctx := context.Background()
	created, err := c.SubmitChange(ctx, jobID, assetID, ChangeInput{Description: "resealed", Specifications: Specifications{"finish": "matte"}})
	if err != nil {
		t.Fatalf("SubmitChange() error: %v", err)
	}
	if created.Status != StatusPending || created.Specifications["finish"] != "matte" {
		t.Errorf("unexpected change %+v", created)
	}

	reviewed, err := c.Review(ctx, changeID, StatusAccepted)
	if err != nil {
		t.Fatalf("Review() error: %v", err)
	}
	if reviewed.Status != StatusAccepted {
		t.Errorf("got status %q", reviewed.Status)
	}
	if _, err := c.Review(ctx, changeID, StatusPending); !IsCode(err, CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := c.CancelRequest(ctx, changeID); !IsCode(err, CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRollupDecodes(t *testing.T) {
	propertyID := uuid.New()
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/owner/properties/{propertyId}/rollup": func(w http.ResponseWriter, _ *http.Request) {
			jsonData(w, http.StatusOK, Rollup{PropertyID: propertyID, Disciplines: []DisciplineGroup{{
				Discipline: "Electrical",
				Groups: []SpecGroup{{
					Specifications: Specifications{"brand": "Clipsal"},
					Locations:      []Location{{SpaceName: "Kitchen", AssetName: "Power point"}, {SpaceName: "Laundry", AssetName: "Power point"}},
				}},
			}}})
		},
	})
	rollup, err := c.OwnerRollup(context.Background(), propertyID)
	if err != nil {
		t.Fatalf("OwnerRollup() error: %v", err)
	}
	if len(rollup.Disciplines) != 1 || len(rollup.Disciplines[0].Groups[0].Locations) != 2 {
		t.Errorf("unexpected rollup %+v", rollup)
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/owner/properties": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		},
	})
	_, err := c.Properties(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.StatusCode != http.StatusBadGateway || apiErr.Code != "unknown" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestMyRequestsPages(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/tradie/requests": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("cursor") == "" {
				jsonData(w, http.StatusOK, RequestPage{Items: []Request{{ChangeLog: ChangeLog{ID: uuid.New()}, AssetName: "Tap"}}, NextCursor: "c2"})
				return
			}
			if r.URL.Query().Get("limit") != "1" {
				jsonError(w, http.StatusBadRequest, CodeValidation, "limit lost")
				return
			}
			jsonData(w, http.StatusOK, RequestPage{Items: []Request{{ChangeLog: ChangeLog{ID: uuid.New()}, AssetName: "Oven"}}})
		},
	})
	ctx := context.Background()
	first, err := c.MyRequests(ctx, 1, "")
	if err != nil {
		t.Fatalf("MyRequests() error: %v", err)
	}
	if first.NextCursor != "c2" || first.Items[0].AssetName != "Tap" {
		t.Fatalf("unexpected first page %+v", first)
	}
	second, err := c.MyRequests(ctx, 1, first.NextCursor)
	if err != nil {
		t.Fatalf("MyRequests() error: %v", err)
	}
	if second.NextCursor != "" || second.Items[0].AssetName != "Oven" {
		t.Fatalf("unexpected second page %+v", second)
	}
}

func TestProposeChangeSubmitsFullSnapshot(t *testing.T) {
	jobID, assetID := uuid.New(), uuid.New()
	var got ChangeInput
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/tradie/jobs/{jobId}/assets/{assetId}/draft": func(w http.ResponseWriter, _ *http.Request) {
			jsonData(w, http.StatusOK, map[string]any{"specifications": Specifications{"colour": "white", "brand": "Dulux"}})
		},
		"POST /api/v1/tradie/jobs/{jobId}/assets/{assetId}/changes": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
			jsonData(w, http.StatusCreated, ChangeLog{ID: uuid.New(), Status: StatusPending, Specifications: got.Specifications})
		},
	})

	entry, err := c.ProposeChange(context.Background(), jobID, assetID, "repaint",
		map[string]string{"colour": "grey", "sheen": "low"}, []string{"brand"})
	if err != nil {
		t.Fatalf("ProposeChange() error: %v", err)
	}
	if got.Description != "repaint" || len(got.Specifications) != 2 ||
		got.Specifications["colour"] != "grey" || got.Specifications["sheen"] != "low" {
		t.Fatalf("unexpected submitted body %+v", got)
	}
	if entry.Status != StatusPending {
		t.Errorf("unexpected status %q", entry.Status)
	}
}

func TestSpecificationsApplyLeavesDraftUntouched(t *testing.T) {
	draft := Specifications{"colour": "white", "brand": "Dulux"}
	next := draft.Apply(map[string]string{"colour": "grey"}, []string{"brand"})
	if draft["colour"] != "white" || draft["brand"] != "Dulux" {
		t.Fatalf("draft mutated: %v", draft)
	}
	if len(next) != 1 || next["colour"] != "grey" {
		t.Fatalf("unexpected snapshot %v", next)
	}
	if empty := Specifications(nil).Apply(map[string]string{"a": "b"}, nil); empty["a"] != "b" {
		t.Fatalf("nil draft not applied: %v", empty)
	}
}
