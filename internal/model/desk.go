package model

import "time"

// Permission is the access level a share grants on a desk.
type Permission string

const (
	PermissionView  Permission = "view"
	PermissionAdmin Permission = "admin"
	PermissionOwner Permission = "owner"
)

// Valid reports whether p is one of the known permission levels.
func (p Permission) Valid() bool {
	switch p {
	case PermissionView, PermissionAdmin, PermissionOwner:
		return true
	}
	return false
}

// Desk is a workspace owned by one user and optionally shared with others.
type Desk struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	Slug       string `gorm:"uniqueIndex;not null"`
	UserID     uint   `gorm:"index;not null"`
	User       User   `gorm:"constraint:OnDelete:CASCADE;"`
	ShareToken string `gorm:"uniqueIndex;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Categories []Category         `gorm:"foreignKey:DeskID;constraint:OnDelete:CASCADE;"`
	Shares     []DeskUserShare    `gorm:"foreignKey:DeskID;constraint:OnDelete:CASCADE;"`
	Templates  []ScheduleTemplate `gorm:"foreignKey:DeskID;constraint:OnDelete:CASCADE;"`
}

// DeskUserShare grants a user access to a desk. One row per (desk, user).
type DeskUserShare struct {
	ID         uint       `gorm:"primaryKey"`
	DeskID     uint       `gorm:"uniqueIndex:idx_desk_user;not null"`
	UserID     uint       `gorm:"uniqueIndex:idx_desk_user;not null;index"`
	User       User       `gorm:"constraint:OnDelete:CASCADE;"`
	Permission Permission `gorm:"type:varchar(10);not null;default:view"`
	CreatedAt  time.Time
}
