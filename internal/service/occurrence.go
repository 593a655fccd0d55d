package service

import (
	"context"
	"log/slog"

	"task-tracker/internal/clock"
	"task-tracker/internal/model"
	"task-tracker/internal/repository"
)

// SyncMode distinguishes scheduled ticks from manual date navigation. Both
// run the same mutation algorithm; only scheduled ticks feed the
// notification pipeline downstream.
type SyncMode string

const (
	SyncAuto   SyncMode = "auto"
	SyncManual SyncMode = "manual"
)

// OccurrenceSynchronizer keeps each recurring task's due-date cursor aligned
// with the occurrence that is live on a target date.
type OccurrenceSynchronizer struct {
	tasks *repository.TaskRepository
	clk   clock.Clock
}

func NewOccurrenceSynchronizer(tasks *repository.TaskRepository, clk clock.Clock) *OccurrenceSynchronizer {
	return &OccurrenceSynchronizer{tasks: tasks, clk: clk}
}

// Synchronize walks the collection and, per recurring task, either reopens a
// completed occurrence, moves the cursor to the target date, or rolls the
// cursor forward to the next occurrence once the current one has lapsed.
// Idempotent: a second run against the same target date reports no change.
// The whole collection is persisted in one write, and only when something
// changed; a failed write is logged and retried naturally on the next cycle.
func (s *OccurrenceSynchronizer) Synchronize(ctx context.Context, tasks []model.Task, targetDate model.Date, mode SyncMode) ([]model.Task, bool) {
	updated := make([]model.Task, len(tasks))
	copy(updated, tasks)

	now := s.clk.Now()
	changed := false

	for i := range updated {
		task := &updated[i]
		if !task.IsRecurring {
			continue
		}

		active := ActiveOn(*task, targetDate)
		switch {
		case active && task.Completed && !completedOn(task, targetDate):
			// A previous occurrence was completed; reopen for today's.
			task.Completed = false
			task.CompletedAt = nil
			setDueDate(task, targetDate)
			task.UpdatedAt = now
			changed = true

		case active && !task.Completed && !dueDateIs(task, targetDate):
			setDueDate(task, targetDate)
			task.UpdatedAt = now
			changed = true

		case !active && !task.Completed && dueDateIs(task, targetDate):
			next, ok := NextOccurrence(targetDate, *task)
			if !ok {
				slog.Warn("no occurrence within horizon, due date left unchanged",
					"task", task.ID, "type", task.RecurringType)
				continue
			}
			setDueDate(task, next)
			task.UpdatedAt = now
			changed = true
		}
	}

	if changed {
		if !s.tasks.ReplaceAll(ctx, updated) {
			slog.Warn("occurrence sync not persisted, will retry next cycle",
				"mode", mode, "target", targetDate)
		}
	}
	return updated, changed
}

func completedOn(task *model.Task, date model.Date) bool {
	return task.CompletedAt != nil && model.NewDate(*task.CompletedAt).Equal(date)
}

func dueDateIs(task *model.Task, date model.Date) bool {
	return task.DueDate != nil && task.DueDate.Equal(date)
}

func setDueDate(task *model.Task, date model.Date) {
	d := date
	task.DueDate = &d
}
