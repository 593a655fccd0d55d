// Package notify defines the notification contract and the delivery
// implementations behind it.
package notify

import (
	"context"
	"fmt"

	"task-tracker/internal/model"
)

// EventType identifies what a notification is about. The values double as
// dedup-record discriminators, so they are stable.
type EventType string

const (
	EventReminder  EventType = "reminder"
	EventDueSoon   EventType = "dueSoon"
	EventOverdue   EventType = "overdue"
	EventCompleted EventType = "completed"
	EventSystem    EventType = "systemUpdate"
)

// Notification is one message to deliver. TaskID is empty for system
// notices.
type Notification struct {
	Title     string
	Body      string
	Icon      string
	Vibration []int
	TaskID    string
	Type      EventType
}

// Notifier delivers a notification. Implementations return an error instead
// of panicking; callers log failures and move on.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

const (
	defaultIcon   = "/favicon.ico"
	maxTitleRunes = 20
)

// ForTask builds the canonical notification for a task event. Callers must
// pass a full task value; identifiers are resolved against the store before
// reaching this point.
func ForTask(task model.Task, typ EventType) Notification {
	label := truncate(task.Content)

	var title, body string
	switch typ {
	case EventReminder:
		title = "Task reminder"
		body = fmt.Sprintf("You have a pending task: %s", label)
	case EventDueSoon:
		title = "Task due soon"
		body = fmt.Sprintf("Task %q is due shortly", label)
	case EventOverdue:
		title = "Task overdue"
		body = fmt.Sprintf("Task %q is overdue, please take care of it", label)
	case EventCompleted:
		title = "Task completed"
		body = fmt.Sprintf("Task %q has been completed", label)
	default:
		title = "Task update"
		body = label
	}

	return Notification{
		Title:     title,
		Body:      body,
		Icon:      defaultIcon,
		Vibration: []int{100, 50, 100},
		TaskID:    task.ID,
		Type:      typ,
	}
}

// ForSystem builds a system notice.
func ForSystem(title, message string) Notification {
	return Notification{
		Title:     title,
		Body:      message,
		Icon:      defaultIcon,
		Vibration: []int{100},
		Type:      EventSystem,
	}
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTitleRunes {
		return s
	}
	return string(runes[:maxTitleRunes]) + "..."
}
