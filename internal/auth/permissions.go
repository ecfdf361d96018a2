package auth

import "github.com/ayush/media-reviews/backend/internal/models"

// RoleOf reads the stored role of u. Unknown or empty values count as guest.
func RoleOf(u *models.User) Role {
	if u == nil {
		return RoleGuest
	}
	r, err := ParseRole(u.Role)
	if err != nil {
		return RoleGuest
	}
	return r
}

// IsAdmin reports whether u administers the application.
func IsAdmin(u *models.User) bool {
	r := RoleOf(u)
	return r == RoleAdmin || r == RoleSuperAdmin
}

// IsAdminOrModerator reports whether u may manage other people's content.
func IsAdminOrModerator(u *models.User) bool {
	return IsAdmin(u) || RoleOf(u) == RoleModerator
}

// IsAdminOrModeratorOrSelf reports whether actor may change something owned by
// owner: owners always may, staff may regardless of ownership.
func IsAdminOrModeratorOrSelf(actor, owner *models.User) bool {
	if actor == nil {
		return false
	}
	if owner != nil && actor.ID == owner.ID {
		return true
	}
	return IsAdminOrModerator(actor)
}
