// Package access decides who may see and modify a record.
package access

import "github.com/sbilibin2017/musicon/internal/models"

// IsOwner reports whether user may modify entity. Admins own everything;
// otherwise the entity's owner reference must point at the user.
func IsOwner(entity models.Entity, user *models.User) bool {
	if user == nil {
		return false
	}
	if user.Role == models.RoleAdmin {
		return true
	}
	owner := entity.Owner()
	if owner.IsZero() {
		return false
	}
	return owner.RefID() == user.ID
}

// IsVisible reports whether user may see entity. Records without an explicit
// public=false are visible to everyone.
func IsVisible(entity models.Entity, user *models.User) bool {
	if IsOwner(entity, user) {
		return true
	}
	public := entity.Public()
	return public == nil || *public
}

// VisibilityScope is the SQL precondition matching the records user may see.
func VisibilityScope(user *models.User) (string, []any) {
	if user == nil {
		return "public = TRUE", nil
	}
	return "created_by = ? OR public = TRUE", []any{user.ID}
}
