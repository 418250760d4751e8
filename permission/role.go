package permission

import (
	"errors"
	"strings"
)

// Role is one of the three account roles.
type Role string

const (
	RoleUser         Role = "user"
	RoleCollaborator Role = "collaborator"
	RoleAdmin        Role = "admin"
)

// ErrUnknownRole is returned by ParseRole for values outside the hierarchy.
var ErrUnknownRole = errors.New("unknown role")

var rank = map[Role]int{
	RoleUser:         1,
	RoleCollaborator: 2,
	RoleAdmin:        3,
}

// Roles lists the hierarchy in ascending order.
func Roles() []Role {
	return []Role{RoleUser, RoleCollaborator, RoleAdmin}
}

// ParseRole accepts the canonical lower-case names only.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := rank[r]; !ok {
		return "", ErrUnknownRole
	}
	return r, nil
}

// Valid reports whether r is part of the hierarchy.
func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// AtLeast reports whether r ranks at or above min. Unknown roles never do.
func (r Role) AtLeast(min Role) bool {
	have, ok := rank[r]
	if !ok {
		return false
	}
	return have >= rank[min]
}

// IsAdmin reports whether r is exactly admin.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
