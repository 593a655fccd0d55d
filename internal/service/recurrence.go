package service

import (
	"slices"

	"task-tracker/internal/model"
)

// occurrenceHorizonDays bounds the forward scan for the next occurrence.
const occurrenceHorizonDays = 365

// ActiveOn reports whether a recurring task has an occurrence on the given
// date. Pure and total: any task/date pair yields an answer, empty day sets
// fall back to their documented defaults, and an unknown rule kind is never
// active.
func ActiveOn(task model.Task, date model.Date) bool {
	switch task.RecurringType {
	case model.RecurDaily:
		return true
	case model.RecurWeekly:
		return slices.Contains(task.WeekdaySet(), date.ISOWeekday())
	case model.RecurMonthly:
		// No clamping for short months: a rule pinned to "31" is simply
		// inactive in a 30-day month.
		return slices.Contains(task.MonthDaySet(), date.DayOfMonth())
	default:
		return false
	}
}

// NextOccurrence returns the first date strictly after from on which the
// task is active. ok is false when no occurrence exists within the horizon,
// e.g. a monthly rule whose day never happens; callers leave the due date
// untouched in that case.
func NextOccurrence(from model.Date, task model.Task) (model.Date, bool) {
	next := from
	for i := 0; i < occurrenceHorizonDays; i++ {
		next = next.AddDays(1)
		if ActiveOn(task, next) {
			return next, true
		}
	}
	return model.Date{}, false
}
