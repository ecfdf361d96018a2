package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of capabilities a user or token can carry.
type Role uint8

const (
	RoleGuest Role = iota
	RoleUser
	RoleModerator
	RoleAdmin
	RoleSuperAdmin
)

var roleNames = [...]string{
	RoleGuest:      "guest",
	RoleUser:       "user",
	RoleModerator:  "moderator",
	RoleAdmin:      "admin",
	RoleSuperAdmin: "super_admin",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return int(r) < len(roleNames)
}

// ParseRole converts the stored/claimed text form into a Role.
func ParseRole(s string) (Role, error) {
	for i, name := range roleNames {
		if strings.EqualFold(s, name) {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Scopes is a set of roles an endpoint accepts. The zero value is the empty set,
// which the gate treats as "any authenticated caller".
type Scopes uint8

// NewScopes builds a set from the given roles.
func NewScopes(roles ...Role) Scopes {
	var s Scopes
	for _, r := range roles {
		s |= 1 << r
	}
	return s
}

var (
	// StaffScopes admits moderators and administrators.
	StaffScopes = NewScopes(RoleAdmin, RoleModerator)
	// MemberScopes admits every registered role that may write content.
	MemberScopes = NewScopes(RoleAdmin, RoleModerator, RoleUser)
	// AdminScopes admits administrators only.
	AdminScopes = NewScopes(RoleAdmin, RoleSuperAdmin)
)

func (s Scopes) Has(r Role) bool {
	return r.Valid() && s&(1<<r) != 0
}

func (s Scopes) Empty() bool {
	return s == 0
}

// Roles lists the members in declaration order.
func (s Scopes) Roles() []Role {
	var out []Role
	for i := range roleNames {
		if s.Has(Role(i)) {
			out = append(out, Role(i))
		}
	}
	return out
}

// String renders the set the way the Bearer challenge expects: space separated.
func (s Scopes) String() string {
	roles := s.Roles()
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}
