package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/api/responses"
	"github.com/housebook/housebook-backend/api/validators"
	"github.com/housebook/housebook-backend/internal/auth"
	"github.com/housebook/housebook-backend/internal/identity"
	"github.com/housebook/housebook-backend/pkg/enums"
	"github.com/housebook/housebook-backend/pkg/logger"
)

type actorResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*identity.Actor, error)
}

type meResponse struct {
	*identity.Actor
	Roles []enums.ActorRole `json:"roles"`
}

// AuthLogin exchanges credentials for an access and refresh token.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		issueSession(w, r, svc, body, http.StatusOK, logg)
	}
}

func issueSession(w http.ResponseWriter, r *http.Request, svc auth.Service, creds auth.LoginRequest, status int, logg *logger.Logger) {
	result, err := svc.Login(r.Context(), creds)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	w.Header().Set(tokenHeader, result.AccessToken)
	responses.WriteSuccessStatus(w, status, result)
}

// AuthMe returns the caller and the role profiles they hold.
func AuthMe(resolver actorResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("identity resolver"))
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := resolver.Resolve(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, meResponse{Actor: actor, Roles: actor.Roles()})
	}
}
