package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/pagination"
)

// URLParamUUID reads a required chi path parameter as a UUID.
func URLParamUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.Invalid(key, "required", "path parameter is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Invalid(key, "uuid", "path parameter must be a uuid")
	}
	return id, nil
}

// ParsePage reads the limit and cursor query parameters.
func ParsePage(r *http.Request) (pagination.Params, error) {
	q := r.URL.Query()
	params := pagination.Params{Cursor: strings.TrimSpace(q.Get("cursor"))}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return pagination.Params{}, pkgerrors.Invalid("limit", "min", "limit must be a positive integer")
		}
		params.Limit = limit
	}
	return params, nil
}
