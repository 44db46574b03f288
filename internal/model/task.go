package model

import "time"

// Task represents a single item on a desk.
//
// IsActive means the task is due and waiting for the user. Schedule triggers
// only ever move it from false to true; the user toggle flips it either way.
type Task struct {
	ID          uint `gorm:"primaryKey"`
	CategoryID  uint `gorm:"index;not null"`
	Title       string
	Description string
	IsActive    bool `gorm:"default:false;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Schedules   []TaskSchedule `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE;"`
}
