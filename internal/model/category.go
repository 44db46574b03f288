package model

import "time"

// Category groups tasks inside a desk.
type Category struct {
	ID          uint  `gorm:"primaryKey"`
	DeskID      *uint `gorm:"index"`
	Title       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tasks       []Task `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE;"`
}
