package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"task-tracker/internal/clock"
	"task-tracker/internal/model"
	"task-tracker/internal/notify"
	"task-tracker/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Content            string
	Priority           string
	DueDate            *model.Date
	IsPinned           bool
	IsRecurring        bool
	RecurringType      string
	RecurringDays      []string
	RecurringMonthDays []string
}

// TaskUpdate carries a partial edit; nil fields are left untouched.
type TaskUpdate struct {
	Content   *string
	Priority  *string
	Completed *bool
	DueDate   *model.Date
	ClearDue  bool
	IsPinned  *bool
}

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks    *repository.TaskRepository
	state    *repository.StateRepository
	settings *repository.SettingsRepository
	gate     *NotificationGate
	notifier notify.Notifier
	clk      clock.Clock
}

func NewTaskService(
	tasks *repository.TaskRepository,
	state *repository.StateRepository,
	settings *repository.SettingsRepository,
	gate *NotificationGate,
	notifier notify.Notifier,
	clk clock.Clock,
) *TaskService {
	return &TaskService{
		tasks:    tasks,
		state:    state,
		settings: settings,
		gate:     gate,
		notifier: notifier,
		clk:      clk,
	}
}

func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	if input.Content == "" {
		return nil, fmt.Errorf("content is required")
	}

	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, fmt.Errorf("unknown priority %q", priority)
	}

	now := s.clk.Now()
	task := model.Task{
		ID:        ulid.Make().String(),
		Content:   input.Content,
		Priority:  priority,
		DueDate:   input.DueDate,
		IsPinned:  input.IsPinned,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if input.IsRecurring {
		recurringType := input.RecurringType
		if recurringType == "" {
			recurringType = model.RecurDaily
		}
		if !model.ValidRecurringType(recurringType) {
			return nil, fmt.Errorf("unknown recurring type %q", recurringType)
		}
		task.IsRecurring = true
		task.RecurringType = recurringType
		task.RecurringDays = input.RecurringDays
		task.RecurringMonthDays = input.RecurringMonthDays
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies a partial edit. Completing a task stamps completedAt;
// reopening clears it. Setting a due date triggers a reminder notification
// when the user's settings allow it.
func (s *TaskService) UpdateTask(ctx context.Context, taskID string, update TaskUpdate) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	dueDateSet := false

	if update.Content != nil {
		task.Content = *update.Content
	}
	if update.Priority != nil {
		if !model.ValidPriority(*update.Priority) {
			return nil, fmt.Errorf("unknown priority %q", *update.Priority)
		}
		task.Priority = *update.Priority
	}
	if update.IsPinned != nil {
		task.IsPinned = *update.IsPinned
	}
	if update.ClearDue {
		task.DueDate = nil
	} else if update.DueDate != nil {
		task.DueDate = update.DueDate
		dueDateSet = true
	}
	if update.Completed != nil {
		switch {
		case *update.Completed && !task.Completed:
			task.Completed = true
			completedAt := now
			task.CompletedAt = &completedAt
		case !*update.Completed && task.Completed:
			task.Completed = false
			task.CompletedAt = nil
		}
	}
	task.UpdatedAt = now

	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, err
	}

	if dueDateSet {
		s.notifyTask(ctx, *task, notify.EventReminder, now)
	}
	return task, nil
}

// ToggleComplete flips the completion state and emits a completed
// notification when the task just finished.
func (s *TaskService) ToggleComplete(ctx context.Context, taskID string) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	completed := !task.Completed
	updated, err := s.UpdateTask(ctx, taskID, TaskUpdate{Completed: &completed})
	if err != nil {
		return nil, err
	}
	if completed {
		s.notifyTask(ctx, *updated, notify.EventCompleted, s.clk.Now())
	}
	return updated, nil
}

// DeleteTask removes the task and its dedup records, so a recreated task
// starts with a clean notification history.
func (s *TaskService) DeleteTask(ctx context.Context, taskID string) error {
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return err
	}
	if err := s.state.DeleteTaskRecords(ctx, taskID); err != nil {
		slog.Warn("clear dedup records", "task", taskID, "error", err)
	}
	return nil
}

func (s *TaskService) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	return s.tasks.FindByID(ctx, taskID)
}

func (s *TaskService) ListTasks(ctx context.Context) []model.Task {
	return s.tasks.GetAll(ctx)
}

func (s *TaskService) notifyTask(ctx context.Context, task model.Task, typ notify.EventType, now time.Time) {
	settings := s.settings.Load(ctx)
	if !s.gate.ShouldNotify(ctx, task.ID, typ, now, settings) {
		return
	}
	if err := s.notifier.Send(ctx, notify.ForTask(task, typ)); err != nil {
		slog.Error("send notification", "task", task.ID, "type", typ, "error", err)
	}
}
