package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"task-tracker/internal/clock"
	"task-tracker/internal/notify"
	"task-tracker/internal/repository"
)

// systemRepeatWindow suppresses re-sending the same system notice.
const systemRepeatWindow = 24 * time.Hour

// SystemNotificationService emits system-level notices (updates,
// maintenance, announcements) with their own per-notice dedup window.
type SystemNotificationService struct {
	state    *repository.StateRepository
	settings *repository.SettingsRepository
	gate     *NotificationGate
	notifier notify.Notifier
	clk      clock.Clock
}

func NewSystemNotificationService(
	state *repository.StateRepository,
	settings *repository.SettingsRepository,
	gate *NotificationGate,
	notifier notify.Notifier,
	clk clock.Clock,
) *SystemNotificationService {
	return &SystemNotificationService{
		state:    state,
		settings: settings,
		gate:     gate,
		notifier: notifier,
		clk:      clk,
	}
}

// SendUpdate emits a system-update notice. An empty noticeID gets a
// timestamp-derived one, which effectively disables dedup for it. The same
// noticeID is silently skipped within 24 hours.
func (s *SystemNotificationService) SendUpdate(ctx context.Context, noticeID, message string) (bool, error) {
	now := s.clk.Now()
	if noticeID == "" {
		noticeID = fmt.Sprintf("system_update_%d", now.UnixMilli())
	}

	last, ok, err := s.state.LastSent(ctx, repository.SystemKey(noticeID))
	if err != nil {
		return false, err
	}
	if ok && now.Sub(last) < systemRepeatWindow {
		slog.Debug("system notice sent recently, skipping", "notice", noticeID)
		return false, nil
	}

	settings := s.settings.Load(ctx)
	if !s.gate.ShouldNotify(ctx, "", notify.EventSystem, now, settings) {
		return false, nil
	}

	if err := s.notifier.Send(ctx, notify.ForSystem("System update", message)); err != nil {
		return false, fmt.Errorf("send system notice: %w", err)
	}
	// Recorded only after delivery, so a failed attempt can be retried
	// inside the window.
	if err := s.state.MarkSent(ctx, repository.SystemKey(noticeID), now); err != nil {
		slog.Error("write system dedup record", "notice", noticeID, "error", err)
	}
	return true, nil
}

// SendMaintenance announces a maintenance window under a fixed notice ID.
func (s *SystemNotificationService) SendMaintenance(ctx context.Context, start, end, message string) (bool, error) {
	if message == "" {
		message = "Scheduled maintenance ahead"
	}
	return s.SendUpdate(ctx, "maintenance_notification",
		fmt.Sprintf("%s\nMaintenance window: %s - %s", message, start, end))
}

// SendAnnouncement emits a one-off notice without dedup; only the settings
// gate applies.
func (s *SystemNotificationService) SendAnnouncement(ctx context.Context, title, message string) (bool, error) {
	now := s.clk.Now()
	settings := s.settings.Load(ctx)
	if !s.gate.ShouldNotify(ctx, "", notify.EventSystem, now, settings) {
		return false, nil
	}
	if err := s.notifier.Send(ctx, notify.ForSystem(title, message)); err != nil {
		return false, fmt.Errorf("send announcement: %w", err)
	}
	return true, nil
}
