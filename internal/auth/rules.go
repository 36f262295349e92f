package auth

import (
	"regexp"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/housebook/housebook-backend/pkg/enums"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

var (
	personNamePattern = regexp.MustCompile(`^[\p{L}' -]{1,50}$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
	ruleValidator     = newRuleValidator()
)

func newRuleValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return isStrongPassword(fl.Field().String())
	})
	return v
}

// fieldRule is one signup check. Rules run in slice order and the first
// violation is reported.
type fieldRule struct {
	field   string
	rule    string
	tag     string
	message string
	value   func(RegisterInput) string
}

var registerRules = []fieldRule{
	{
		field:   "first_name",
		rule:    "name_format",
		tag:     "required,personname",
		message: "first name may only contain letters, spaces, apostrophes and hyphens (1-50 characters)",
		value:   func(in RegisterInput) string { return in.FirstName },
	},
	{
		field:   "last_name",
		rule:    "name_format",
		tag:     "required,personname",
		message: "last name may only contain letters, spaces, apostrophes and hyphens (1-50 characters)",
		value:   func(in RegisterInput) string { return in.LastName },
	},
	{
		field:   "email",
		rule:    "email_format",
		tag:     "required,email",
		message: "please enter a valid email address",
		value:   func(in RegisterInput) string { return in.Email },
	},
	{
		field:   "phone",
		rule:    "phone_format",
		tag:     "omitempty,phone",
		message: "phone number must be 8-15 digits with an optional leading +",
		value: func(in RegisterInput) string {
			if in.Phone == nil {
				return ""
			}
			return *in.Phone
		},
	},
	{
		field:   "password",
		rule:    "password_strength",
		tag:     "required,strongpassword",
		message: "password must be at least 8 characters and include upper and lower case letters, a number and a symbol",
		value:   func(in RegisterInput) string { return in.Password },
	},
}

// ValidateRegistration returns the first violated signup rule as a
// VALIDATION_ERROR carrying field and rule details.
func ValidateRegistration(in RegisterInput) error {
	for _, r := range registerRules {
		if err := ruleValidator.Var(r.value(in), r.tag); err != nil {
			return pkgerrors.Invalid(r.field, r.rule, r.message)
		}
	}
	if len(in.Roles) == 0 {
		return pkgerrors.Invalid("roles", "role_required", "choose at least one role: owner or tradie")
	}
	for _, role := range in.Roles {
		if !role.IsValid() {
			return pkgerrors.Invalid("roles", "role_unknown", "roles must be owner or tradie")
		}
	}
	return nil
}

func isStrongPassword(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

func hasRole(roles []enums.ActorRole, want enums.ActorRole) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
