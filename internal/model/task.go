package model

import (
	"slices"
	"time"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Recurrence rule kinds.
const (
	RecurDaily   = "daily"
	RecurWeekly  = "weekly"
	RecurMonthly = "monthly"
)

// Task represents a single item in the tracker. For recurring tasks DueDate
// is a cursor maintained by the occurrence synchronizer, not a fixed
// attribute.
type Task struct {
	ID                 string `gorm:"primaryKey"`
	Content            string
	Priority           string `gorm:"default:medium"`
	Completed          bool   `gorm:"default:false"`
	DueDate            *Date
	IsPinned           bool     `gorm:"default:false"`
	IsRecurring        bool     `gorm:"default:false"`
	RecurringType      string   // daily, weekly or monthly
	RecurringDays      []string `gorm:"serializer:json"` // ISO weekday codes "1".."7"
	RecurringMonthDays []string `gorm:"serializer:json"` // day-of-month "1".."31"
	CompletedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// WeekdaySet returns the configured weekday codes, defaulting to Monday.
func (t *Task) WeekdaySet() []string {
	if len(t.RecurringDays) == 0 {
		return []string{"1"}
	}
	return t.RecurringDays
}

// MonthDaySet returns the configured day-of-month codes, defaulting to the 1st.
func (t *Task) MonthDaySet() []string {
	if len(t.RecurringMonthDays) == 0 {
		return []string{"1"}
	}
	return t.RecurringMonthDays
}

func ValidPriority(p string) bool {
	return slices.Contains([]string{PriorityLow, PriorityMedium, PriorityHigh}, p)
}

func ValidRecurringType(rt string) bool {
	return slices.Contains([]string{RecurDaily, RecurWeekly, RecurMonthly}, rt)
}
