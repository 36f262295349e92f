package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/api/middleware"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

func currentUser(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return id, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}
