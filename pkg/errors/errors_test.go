package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	want := map[Code]Metadata{
		CodeValidation:    {http.StatusBadRequest, false, "validation failed", true},
		CodeUnauthorized:  {http.StatusUnauthorized, false, "authentication required", false},
		CodeForbidden:     {http.StatusForbidden, false, "access denied", false},
		CodeNotFound:      {http.StatusNotFound, false, "resource not found", false},
		CodeConflict:      {http.StatusConflict, false, "conflict detected", false},
		CodeStateConflict: {http.StatusUnprocessableEntity, false, "state transition disallowed", true},
		CodeIdempotency:   {http.StatusConflict, false, "idempotency key reused", true},
		CodeRateLimit:     {http.StatusTooManyRequests, false, "rate limit exceeded", false},
		CodeInternal:      {http.StatusInternalServerError, true, "internal server error", false},
		CodeDependency:    {http.StatusServiceUnavailable, true, "dependency unavailable", true},
	}
	for code, meta := range want {
		assert.Equal(t, meta, MetadataFor(code), string(code))
	}
	assert.Equal(t, want[CodeInternal], MetadataFor("SOMETHING_UNKNOWN"))
}

func TestErrorAccessors(t *testing.T) {
	err := New(CodeValidation, "missing foo")
	assert.Equal(t, CodeValidation, err.Code())
	assert.Equal(t, "missing foo", err.Message())
	assert.Nil(t, err.Details())
	assert.Equal(t, "VALIDATION_ERROR: missing foo", err.Error())

	err.WithDetails(map[string]any{"field": "foo"})
	assert.NotNil(t, err.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
}

func TestNilErrorIsSafe(t *testing.T) {
	var err *Error
	assert.Equal(t, CodeInternal, err.Code())
	assert.Empty(t, err.Message())
	assert.Empty(t, err.Error())
	assert.Nil(t, err.Details())
	assert.Nil(t, err.WithDetails("x"))
	assert.NoError(t, err.Unwrap())
}

func TestAsAndIsCodeFollowWrapping(t *testing.T) {
	inner := New(CodeStateConflict, "already reviewed")
	outer := stdErrors.Join(stdErrors.New("context"), fmt.Errorf("review: %w", inner))

	require.NotNil(t, As(outer))
	assert.Same(t, inner, As(outer))
	assert.True(t, IsCode(outer, CodeStateConflict))
	assert.False(t, IsCode(outer, CodeConflict))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeInternal))
	assert.Nil(t, As(nil))
}

func TestInvalidCarriesFieldViolation(t *testing.T) {
	err := Invalid("email", "format", "email is not valid")
	assert.Equal(t, CodeValidation, err.Code())
	assert.Equal(t, FieldViolation{Field: "email", Rule: "format"}, err.Details())
}

func TestDiagnoseReadsPostgresErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "jobs_one_pending_per_property", TableName: "jobs"}
	d := Diagnose(Wrap(CodeConflict, fmt.Errorf("insert job: %w", pgErr), "create job"))

	assert.Equal(t, CodeConflict, d.Code)
	require.NotNil(t, d.PG)
	assert.Equal(t, "23505", d.PG.Code)
	assert.Equal(t, "jobs_one_pending_per_property", d.PG.Constraint)
	assert.Len(t, d.Chain, 3)
	assert.Equal(t, "jobs", d.Fields()["pg_table"])

	plain := Diagnose(stdErrors.New("boom"))
	assert.Empty(t, plain.Code)
	assert.Nil(t, plain.PG)
	assert.NotContains(t, plain.Fields(), "error_code")
}
