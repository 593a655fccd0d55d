package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"task-tracker/internal/model"
	"task-tracker/internal/notify"
	"task-tracker/internal/repository"
)

// overdueRepeatWindow is how long an overdue notification suppresses the
// next one for the same task.
const overdueRepeatWindow = time.Hour

// NotificationGate decides whether a classified event actually produces a
// notification. Checks run in a fixed order and any failing check suppresses
// with no side effect; on allow the dedup record is written before the
// decision is returned, so rapid re-evaluation cannot double-fire.
type NotificationGate struct {
	state *repository.StateRepository
}

func NewNotificationGate(state *repository.StateRepository) *NotificationGate {
	return &NotificationGate{state: state}
}

func (g *NotificationGate) ShouldNotify(ctx context.Context, taskID string, typ notify.EventType, now time.Time, settings model.NotificationSettings) bool {
	if InQuietHours(settings.QuietHours, now) {
		return false
	}
	if !typeEnabled(typ, settings) {
		return false
	}
	if !settings.ChannelEnabled() {
		return false
	}

	switch typ {
	case notify.EventOverdue:
		last, ok, err := g.state.LastSent(ctx, repository.OverdueKey(taskID))
		if err != nil {
			slog.Error("read overdue dedup record", "task", taskID, "error", err)
			return false
		}
		if ok && now.Sub(last) <= overdueRepeatWindow {
			return false
		}
		g.record(ctx, repository.OverdueKey(taskID), now)
		return true

	case notify.EventDueSoon:
		// Send-once semantics: any prior record suppresses, even if the task
		// left the window and came back.
		_, ok, err := g.state.LastSent(ctx, repository.DueSoonKey(taskID))
		if err != nil {
			slog.Error("read due-soon dedup record", "task", taskID, "error", err)
			return false
		}
		if ok {
			return false
		}
		g.record(ctx, repository.DueSoonKey(taskID), now)
		return true

	case notify.EventReminder, notify.EventCompleted, notify.EventSystem:
		// Caller is responsible for not repeating the same logical event.
		return true

	default:
		return false
	}
}

func (g *NotificationGate) record(ctx context.Context, key string, now time.Time) {
	if err := g.state.MarkSent(ctx, key, now); err != nil {
		slog.Error("write dedup record", "key", key, "error", err)
	}
}

func typeEnabled(typ notify.EventType, settings model.NotificationSettings) bool {
	switch typ {
	case notify.EventReminder:
		return settings.TaskReminders
	case notify.EventDueSoon:
		return settings.TaskDueSoon
	case notify.EventOverdue:
		return settings.TaskOverdue
	case notify.EventCompleted:
		return settings.TaskCompleted
	case notify.EventSystem:
		return settings.SystemUpdates
	default:
		return false
	}
}

// InQuietHours reports whether the instant falls inside the configured
// window. Start after end means the window spans midnight. A malformed
// window never suppresses.
func InQuietHours(q model.QuietHours, now time.Time) bool {
	if !q.Enabled {
		return false
	}
	start, okStart := parseMinutes(q.Start)
	end, okEnd := parseMinutes(q.End)
	if !okStart || !okEnd {
		return false
	}

	current := now.Hour()*60 + now.Minute()
	if start <= end {
		return current >= start && current < end
	}
	return current >= start || current < end
}

func parseMinutes(hhmm string) (int, bool) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
