package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/api/responses"
	"github.com/housebook/housebook-backend/api/validators"
	"github.com/housebook/housebook-backend/internal/changelog"
	"github.com/housebook/housebook-backend/internal/jobs"
	"github.com/housebook/housebook-backend/internal/projection"
	"github.com/housebook/housebook-backend/internal/scope"
	dbtypes "github.com/housebook/housebook-backend/pkg/db/types"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/logger"
)

const maxQRPayload = 2048

type claimRequest struct {
	PropertyID *uuid.UUID `json:"property_id,omitempty"`
	QRPayload  string     `json:"qr_payload,omitempty"`
}

type claimPINRequest struct {
	PropertyID uuid.UUID `json:"property_id" validate:"required"`
	PIN        string    `json:"pin" validate:"required"`
}

type submitChangeRequest struct {
	Description    string                 `json:"description"`
	Specifications dbtypes.Specifications `json:"specifications"`
}

// TradieClaim claims the property's pending job from a scanned QR code or a
// bare property id.
func TradieClaim(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body claimRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var propertyID uuid.UUID
		switch {
		case body.PropertyID != nil && *body.PropertyID != uuid.Nil:
			propertyID = *body.PropertyID
		case body.QRPayload != "":
			propertyID, err = jobs.ParseQRPayload(validators.SanitizeString(body.QRPayload, maxQRPayload))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.Invalid("property_id", "required", "property_id or qr_payload is required"))
			return
		}

		result, err := svc.ClaimByPropertyID(r.Context(), userID, propertyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func TradieClaimPIN(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body claimPINRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ClaimWithPIN(r.Context(), userID, body.PropertyID, body.PIN)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func TradieJobs(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListTradieJobs(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// TradieScope returns the property tree with the job's editable assets marked.
func TradieScope(svc scope.Resolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, propertyID, jobID, err := userAndParams(r, "propertyId", "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.FetchPropertyAndJobScope(r.Context(), userID, propertyID, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func TradieRollup(svc projection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, propertyID, jobID, err := userAndParams(r, "propertyId", "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rollup, err := svc.PropertyRollup(r.Context(), userID, propertyID, &jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rollup)
	}
}

func TradieDraft(svc changelog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, jobID, assetID, err := userAndParams(r, "jobId", "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		draft, err := svc.Draft(r.Context(), userID, assetID, &jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"specifications": draft})
	}
}

func TradieSpecification(svc projection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, jobID, assetID, err := userAndParams(r, "jobId", "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		spec, err := svc.AssetSpecification(r.Context(), userID, assetID, &jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, spec)
	}
}

// TradieSubmitChange files a pending change request against an in-scope asset.
func TradieSubmitChange(svc changelog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, jobID, assetID, err := userAndParams(r, "jobId", "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body submitChangeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.SubmitChange(r.Context(), userID, changelog.SubmitChangeInput{
			JobID:          jobID,
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

func TradieRequests(svc changelog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListMine(r.Context(), userID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TradieCancelRequest withdraws the caller's own pending request.
func TradieCancelRequest(svc changelog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, changeLogID, err := userAndParam(r, "changeLogId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.CancelTradieRequest(r.Context(), userID, changeLogID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": changeLogID, "status": "cancelled"})
	}
}

func userAndParams(r *http.Request, first, second string) (uuid.UUID, uuid.UUID, uuid.UUID, error) {
	userID, a, err := userAndParam(r, first)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	b, err := validators.URLParamUUID(r, second)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	return userID, a, b, nil
}
