package enums

import "fmt"

// ActorRole identifies the kind of authenticated caller.
type ActorRole string

const (
	RoleCustomer  ActorRole = "customer"
	RoleVendor    ActorRole = "vendor"
	RoleLogistics ActorRole = "logistics"
	RoleAdmin     ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	RoleCustomer,
	RoleVendor,
	RoleLogistics,
	RoleAdmin,
}

func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value matches a known actor role.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
