package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housebook/housebook-backend/internal/testdb"
	"github.com/housebook/housebook-backend/internal/users"
	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/enums"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

func validInput() RegisterInput {
	phone := "+61400111222"
	return RegisterInput{
		FirstName: "Mary-Jane",
		LastName:  "O'Neil",
		Email:     "MJ@Example.com",
		Phone:     &phone,
		Password:  "Str0ng!pass",
		Roles:     []enums.ActorRole{enums.ActorRoleOwner},
	}
}

func violation(t *testing.T, err error) pkgerrors.FieldViolation {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	v, ok := typed.Details().(pkgerrors.FieldViolation)
	require.True(t, ok, "details should be a field violation, got %T", typed.Details())
	return v
}

func TestValidateRegistrationFirstViolationWins(t *testing.T) {
	in := validInput()
	in.FirstName = "R2D2"
	in.Email = "not-an-email"
	in.Password = "weak"

	v := violation(t, ValidateRegistration(in))
	assert.Equal(t, "first_name", v.Field)
	assert.Equal(t, "name_format", v.Rule)
}

func TestValidateRegistrationRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
		rule   string
	}{
		{"last name", func(in *RegisterInput) { in.LastName = "" }, "last_name", "name_format"},
		{"email", func(in *RegisterInput) { in.Email = "mj@" }, "email", "email_format"},
		{"phone", func(in *RegisterInput) { p := "12ab"; in.Phone = &p }, "phone", "phone_format"},
		{"password length", func(in *RegisterInput) { in.Password = "Ab1!" }, "password", "password_strength"},
		{"password symbol", func(in *RegisterInput) { in.Password = "Abcdefg12" }, "password", "password_strength"},
		{"no roles", func(in *RegisterInput) { in.Roles = nil }, "roles", "role_required"},
		{"unknown role", func(in *RegisterInput) { in.Roles = []enums.ActorRole{"admin"} }, "roles", "role_unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			v := violation(t, ValidateRegistration(in))
			assert.Equal(t, tc.field, v.Field)
			assert.Equal(t, tc.rule, v.Rule)
		})
	}

	in := validInput()
	in.Phone = nil
	assert.NoError(t, ValidateRegistration(in))
}

func newRegisterService(t *testing.T) (RegisterService, *users.Repository) {
	t.Helper()
	client := testdb.Client(t)
	svc, err := NewRegisterService(RegisterServiceParams{
		DB: client,
		PasswordConfig: config.PasswordConfig{
			ArgonMemoryKB:    1024,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
	})
	require.NoError(t, err)
	return svc, users.NewRepository(client.DB())
}

func TestRegisterCreatesUserAndProfiles(t *testing.T) {
	svc, repo := newRegisterService(t)
	ctx := context.Background()

	in := validInput()
	in.Roles = []enums.ActorRole{enums.ActorRoleOwner, enums.ActorRoleTradie}
	dto, err := svc.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "mj@example.com", dto.Email)

	owner, err := repo.FindOwnerByUserID(ctx, dto.ID)
	require.NoError(t, err)
	assert.NotNil(t, owner)
	tradie, err := repo.FindTradieByUserID(ctx, dto.ID)
	require.NoError(t, err)
	assert.NotNil(t, tradie)

	stored, err := repo.FindByEmail(ctx, "mj@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, in.Password, stored.PasswordHash)
}

func TestRegisterOwnerOnly(t *testing.T) {
	svc, repo := newRegisterService(t)
	ctx := context.Background()

	dto, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	tradie, err := repo.FindTradieByUserID(ctx, dto.ID)
	require.NoError(t, err)
	assert.Nil(t, tradie)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newRegisterService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	again := validInput()
	again.Email = "mj@example.com"
	_, err = svc.Register(ctx, again)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestRegisterValidationFailsBeforeWrites(t *testing.T) {
	svc, repo := newRegisterService(t)
	in := validInput()
	in.Password = "short"

	_, err := svc.Register(context.Background(), in)
	require.Error(t, err)
	_, err = repo.FindByEmail(context.Background(), "mj@example.com")
	assert.Error(t, err)
}
