package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday numbers days Monday=0 .. Sunday=6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// WeekdayOf converts a time.Weekday (Sunday=0) into the Monday-based numbering.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// ParseWeekday accepts 0..6 or an English day name or its three-letter prefix.
func ParseWeekday(raw string) (Weekday, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		d := Weekday(n)
		if !d.Valid() {
			return 0, fmt.Errorf("day %d out of range 0..6", n)
		}
		return d, nil
	}
	lower := strings.ToLower(raw)
	if len(lower) >= 3 {
		for i, name := range weekdayNames {
			if strings.HasPrefix(strings.ToLower(name), lower) {
				return Weekday(i), nil
			}
		}
	}
	return 0, fmt.Errorf("invalid day %q", raw)
}

// TimeOfDay is a wall-clock minute, stored as minutes after midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour and minute.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour %d", hour)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute %d", minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// TimeOfDayOf truncates t to its minute within the day, in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return NewTimeOfDay(hour, minute)
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// ScheduleTemplate is a named bundle of weekly trigger moments scoped to a desk.
type ScheduleTemplate struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	UserID    uint   `gorm:"index;not null"`
	DeskID    uint   `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Triggers []TriggerMoment `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE;"`
	Bindings []TaskSchedule  `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE;"`
}

// TriggerMoment is one weekly recurrence rule of a template.
type TriggerMoment struct {
	ID         uint      `gorm:"primaryKey"`
	TemplateID uint      `gorm:"uniqueIndex:idx_template_moment;not null"`
	DayOfWeek  Weekday   `gorm:"uniqueIndex:idx_template_moment;index:idx_day_time;not null"`
	Time       TimeOfDay `gorm:"column:time_of_day;uniqueIndex:idx_template_moment;index:idx_day_time;not null"`
}

// BindingState is the lifecycle state of a TaskSchedule.
//
// bind: -> Active, unbind: Active -> Inactive, bind again: Inactive -> Active.
type BindingState string

const (
	BindingActive   BindingState = "active"
	BindingInactive BindingState = "inactive"
)

// TaskSchedule binds a task to a schedule template.
type TaskSchedule struct {
	ID         uint         `gorm:"primaryKey"`
	TaskID     uint         `gorm:"uniqueIndex:idx_task_template;not null"`
	TemplateID uint         `gorm:"uniqueIndex:idx_task_template;not null;index"`
	State      BindingState `gorm:"type:varchar(10);not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s TaskSchedule) IsActive() bool { return s.State == BindingActive }
