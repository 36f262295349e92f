package identity

import (
	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/pkg/enums"
	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

const (
	msgOwnerRequired  = "owner role required"
	msgNoTradie       = "no tradie profile"
	msgNotOwner       = "not an owner of this property"
	msgUserNotFound   = "user not found"
	msgUserInactive   = "user is inactive"
	msgPropertyAbsent = "property not found"
	msgAssetAbsent    = "asset not found"
)

// Actor is the authenticated user with whichever role profiles they hold.
type Actor struct {
	UserID      uuid.UUID  `json:"user_id"`
	DisplayName string     `json:"display_name"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty"`
	TradieID    *uuid.UUID `json:"tradie_id,omitempty"`
}

func (a *Actor) IsOwner() bool {
	return a != nil && a.OwnerID != nil
}

func (a *Actor) IsTradie() bool {
	return a != nil && a.TradieID != nil
}

// Roles lists held roles, owner first.
func (a *Actor) Roles() []enums.ActorRole {
	roles := make([]enums.ActorRole, 0, 2)
	if a.IsOwner() {
		roles = append(roles, enums.ActorRoleOwner)
	}
	if a.IsTradie() {
		roles = append(roles, enums.ActorRoleTradie)
	}
	return roles
}

func RequireOwner(actor *Actor) error {
	if !actor.IsOwner() {
		return pkgerrors.New(pkgerrors.CodeForbidden, msgOwnerRequired)
	}
	return nil
}

func RequireTradie(actor *Actor) error {
	if !actor.IsTradie() {
		return pkgerrors.New(pkgerrors.CodeForbidden, msgNoTradie)
	}
	return nil
}
