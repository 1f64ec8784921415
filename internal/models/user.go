package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the caller's coarse role; permissions derive from it.
type Role string

const (
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Permission names follow "task.<action>".
const (
	PermTaskView         = "task.view"
	PermTaskViewAll      = "task.view-all"
	PermTaskCreate       = "task.create"
	PermTaskUpdate       = "task.update"
	PermTaskDelete       = "task.delete"
	PermTaskAssign       = "task.assign"
	PermTaskUpdateStatus = "task.update-status"
)

var rolePermissions = map[Role][]string{
	RoleManager: {
		PermTaskView, PermTaskViewAll, PermTaskCreate, PermTaskUpdate,
		PermTaskDelete, PermTaskAssign, PermTaskUpdateStatus,
	},
	RoleEmployee: {
		PermTaskView, PermTaskUpdateStatus,
	},
}

// PermissionsFor returns the permissions a role grants. The returned slice
// is a copy; callers may not mutate the role table through it.
func PermissionsFor(role Role) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// User represents a platform user.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email" validate:"required,email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `gorm:"not null" json:"name" validate:"required"`
	Phone        string         `json:"phone"`
	Role         Role           `gorm:"type:varchar(32);not null;default:'employee'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasPermission reports whether the user's role grants the permission.
func (u *User) HasPermission(perm string) bool {
	for _, p := range rolePermissions[u.Role] {
		if p == perm {
			return true
		}
	}
	return false
}

// CanOverrideRestrictedStatus reports whether the user may move a task out
// of a completed, cancelled, or delayed status.
func (u *User) CanOverrideRestrictedStatus() bool {
	return u.Role == RoleManager || u.HasPermission(PermTaskAssign)
}
