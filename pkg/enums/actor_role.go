package enums

import "slices"

// ActorRole is a role a user can hold; a user may hold both.
type ActorRole string

const (
	ActorRoleOwner  ActorRole = "owner"
	ActorRoleTradie ActorRole = "tradie"
)

var actorRoles = []ActorRole{ActorRoleOwner, ActorRoleTradie}

func (r ActorRole) String() string { return string(r) }

func (r ActorRole) IsValid() bool { return slices.Contains(actorRoles, r) }

func ParseActorRole(value string) (ActorRole, error) {
	return parse("actor role", actorRoles, value)
}
