package auth

import (
	"github.com/housebook/housebook-backend/internal/users"
	"github.com/housebook/housebook-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens, user and roles produced by a successful login.
type LoginResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	Roles        []enums.ActorRole `json:"roles"`
	User         *users.UserDTO    `json:"user"`
}

// RefreshRequest pairs the refresh token from the body with the caller's
// current access token, which may already have expired.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	AccessToken  string `json:"-"`
}

type TokenPair struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	Roles        []enums.ActorRole `json:"roles"`
}

// RegisterInput is the signup payload. Field checks happen in
// ValidateRegistration rather than struct tags so the order is fixed.
type RegisterInput struct {
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Email     string            `json:"email"`
	Phone     *string           `json:"phone,omitempty"`
	Password  string            `json:"password"`
	Roles     []enums.ActorRole `json:"roles"`
}
