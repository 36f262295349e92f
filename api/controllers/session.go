package controllers

import (
	"net/http"

	"github.com/housebook/housebook-backend/api/middleware"
	"github.com/housebook/housebook-backend/api/responses"
	"github.com/housebook/housebook-backend/api/validators"
	"github.com/housebook/housebook-backend/internal/auth"
	"github.com/housebook/housebook-backend/pkg/logger"
)

// tokenHeader mirrors the access token so clients need not parse the body.
const tokenHeader = "X-HB-Token"

// AuthRefresh trades a refresh token, plus the access token it was issued
// with, for a fresh pair. The old refresh token stops working either way.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.AccessToken = middleware.BearerToken(r)

		pair, err := svc.Refresh(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set(tokenHeader, pair.AccessToken)
		responses.WriteSuccess(w, pair)
	}
}

func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		if err := svc.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
