package model

import "time"

// RepeatForever marks a scheduled job that never runs out of repeats.
const RepeatForever = -1

// ScheduledJob is a recurring job registration, unique by name.
type ScheduledJob struct {
	ID              uint   `gorm:"primaryKey"`
	Name            string `gorm:"uniqueIndex;not null"`
	EntryPoint      string `gorm:"not null"`
	IntervalMinutes int    `gorm:"not null"`
	Repeats         int    `gorm:"not null"`
	LastRunAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
