// Package responses writes the two JSON shapes handlers return:
// {"data": ...} on success and {"error": {...}} on failure.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
	"github.com/housebook/housebook-backend/pkg/logger"
)

type Envelope struct {
	Data any `json:"data"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Data: data})
}

// WriteError renders err by its code. Untyped errors become INTERNAL, and
// 5xx codes answer with their public message only. logg may be nil.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	status, body := render(typed)

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.Diagnose(err).Fields())
		if status >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}
	writeJSON(w, status, ErrorEnvelope{Error: body})
}

func render(e *pkgerrors.Error) (int, ErrorBody) {
	meta := pkgerrors.MetadataFor(e.Code())
	body := ErrorBody{Code: string(e.Code()), Message: meta.PublicMessage}
	if meta.HTTPStatus < http.StatusInternalServerError && e.Message() != "" {
		body.Message = e.Message()
	}
	if meta.DetailsAllowed {
		body.Details = e.Details()
	}
	return meta.HTTPStatus, body
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
