package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/api/responses"
	"github.com/housebook/housebook-backend/api/validators"
	"github.com/housebook/housebook-backend/internal/changelog"
	"github.com/housebook/housebook-backend/internal/jobs"
	"github.com/housebook/housebook-backend/internal/projection"
	"github.com/housebook/housebook-backend/internal/properties"
	dbtypes "github.com/housebook/housebook-backend/pkg/db/types"
	"github.com/housebook/housebook-backend/pkg/enums"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/logger"
)

type createSpaceRequest struct {
	Name string  `json:"name" validate:"required,max=120"`
	Type *string `json:"type,omitempty"`
}

type createAssetRequest struct {
	Description string     `json:"description" validate:"required,max=500"`
	AssetTypeID *uuid.UUID `json:"asset_type_id,omitempty"`
}

type createJobRequest struct {
	AssetIDs []uuid.UUID `json:"asset_ids" validate:"required,min=1"`
	PIN      string      `json:"pin,omitempty" validate:"omitempty,numeric,min=4,max=8"`
}

type historyRequest struct {
	Description    string                 `json:"description"`
	Specifications dbtypes.Specifications `json:"specifications"`
}

type reviewRequest struct {
	Status string `json:"status" validate:"required"`
}

// OwnerProperties returns the caller's landing overview.
func OwnerProperties(svc properties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		overview, err := svc.Overview(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

func OwnerPropertyTree(svc properties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, propertyID, err := userAndParam(r, "propertyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tree, err := svc.Tree(r.Context(), userID, propertyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tree)
	}
}

func OwnerPropertyRollup(svc projection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, propertyID, err := userAndParam(r, "propertyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rollup, err := svc.PropertyRollup(r.Context(), userID, propertyID, nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rollup)
	}
}

// OwnerPendingRequests lists the property's requests awaiting review, newest first.
func OwnerPendingRequests(svc changelog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, propertyID, err := userAndParam(r, "propertyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListPendingForProperty(r.Context(), userID, propertyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func OwnerCreateSpace(svc properties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, propertyID, err := userAndParam(r, "propertyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createSpaceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		space, err := svc.CreateSpace(r.Context(), userID, properties.CreateSpaceInput{
			PropertyID: propertyID,
			Name:       validators.SanitizeString(body.Name, 120),
			Type:       body.Type,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, space)
	}
}

func OwnerCreateAsset(svc properties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, spaceID, err := userAndParam(r, "spaceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createAssetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		asset, err := svc.CreateAsset(r.Context(), userID, properties.CreateAssetInput{
			SpaceID:     spaceID,
			Description: validators.SanitizeString(body.Description, 500),
			AssetTypeID: body.AssetTypeID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, asset)
	}
}

// OwnerCreateJob opens a claimable job. The PIN is generated when omitted.
func OwnerCreateJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, propertyID, err := userAndParam(r, "propertyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createJobRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		job, err := svc.CreateJob(r.Context(), userID, jobs.CreateJobInput{
			PropertyID: propertyID,
			AssetIDs:   body.AssetIDs,
			PIN:        body.PIN,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, job)
	}
}

func OwnerAssetSpecification(svc projection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, assetID, err := userAndParam(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		spec, err := svc.AssetSpecification(r.Context(), userID, assetID, nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, spec)
	}
}

func OwnerAssetDraft(svc changelog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, assetID, err := userAndParam(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		draft, err := svc.Draft(r.Context(), userID, assetID, nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"specifications": draft})
	}
}

// OwnerAddHistory records an owner edit, accepted immediately.
func OwnerAddHistory(svc changelog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, assetID, err := userAndParam(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body historyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.AddHistory(r.Context(), userID, changelog.AddHistoryInput{
			AssetID:        assetID,
			Description:    body.Description,
			Specifications: body.Specifications,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// OwnerReviewRequest accepts or declines a pending change request.
func OwnerReviewRequest(svc changelog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, changeLogID, err := userAndParam(r, "changeLogId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseChangeLogStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Invalid("status", "oneof", "status must be ACCEPTED or DECLINED"))
			return
		}
		view, err := svc.UpdateRequestStatus(r.Context(), userID, changeLogID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AssetTypes lists the catalog used when creating assets.
func AssetTypes(svc properties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetTypes, err := svc.ListAssetTypes(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assetTypes)
	}
}

func userAndParam(r *http.Request, key string) (uuid.UUID, uuid.UUID, error) {
	userID, err := currentUser(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := validators.URLParamUUID(r, key)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, id, nil
}
