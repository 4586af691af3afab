package domain

import "fmt"

// Role identifies the authorization role of an actor.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleRegistrar Role = "registrar"
	RoleJudge     Role = "judge"
	RoleLawyer    Role = "lawyer"
	RoleClerk     Role = "clerk"
	RolePublic    Role = "public"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleRegistrar, RoleJudge, RoleLawyer, RoleClerk, RolePublic}

// ParseRole converts a string to a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor is the authenticated principal performing an operation.
// Authentication itself is out of scope; callers supply a verified identity.
type Actor struct {
	ID   string `json:"id" validate:"required"`
	Role Role   `json:"role" validate:"required"`
}
