package controllers

import (
	"net/http"

	"github.com/housebook/housebook-backend/api/responses"
	"github.com/housebook/housebook-backend/api/validators"
	"github.com/housebook/housebook-backend/internal/auth"
	"github.com/housebook/housebook-backend/pkg/logger"
)

// AuthRegister signs the account up and answers 201 with a live session, so
// the client goes straight from signup to the dashboard.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		var in auth.RegisterInput
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := reg.Register(r.Context(), in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		issueSession(w, r, svc, auth.LoginRequest{Email: in.Email, Password: in.Password}, http.StatusCreated, logg)
	}
}
