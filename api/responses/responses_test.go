package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		status      int
		code        pkgerrors.Code
		message     string
		withDetails bool
	}{
		{
			name:        "validation keeps message and details",
			err:         pkgerrors.Invalid("email", "email", "email is not valid"),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			message:     "email is not valid",
			withDetails: true,
		},
		{
			name:    "state conflict explains itself",
			err:     pkgerrors.New(pkgerrors.CodeStateConflict, "change request already reviewed"),
			status:  http.StatusUnprocessableEntity,
			code:    pkgerrors.CodeStateConflict,
			message: "change request already reviewed",
		},
		{
			name:    "dependency hides the cause",
			err:     pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp 10.0.0.3:5432"), "load property"),
			status:  http.StatusServiceUnavailable,
			code:    pkgerrors.CodeDependency,
			message: "dependency unavailable",
		},
		{
			name:    "untyped becomes internal",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
		{
			name:    "nil still answers",
			err:     nil,
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			require.Equal(t, tc.status, rec.Code)
			var body ErrorEnvelope
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, string(tc.code), body.Error.Code)
			assert.Equal(t, tc.message, body.Error.Message)
			assert.Equal(t, tc.withDetails, body.Error.Details != nil)
		})
	}
}
