package enums

import "slices"

// ActorRole is the role carried in an access token.
type ActorRole string

const (
	ActorRoleGuest        ActorRole = "guest"
	ActorRolePhotographer ActorRole = "photographer"
	ActorRoleAdmin        ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	ActorRoleGuest,
	ActorRolePhotographer,
	ActorRoleAdmin,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	return slices.Contains(validActorRoles, r)
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	return parse(validActorRoles, value, "actor role")
}
