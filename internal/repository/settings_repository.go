package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"task-tracker/internal/model"
)

const settingsKey = "notificationSettings"

// SettingsRepository persists the notification settings snapshot in the
// shared state tier.
type SettingsRepository struct {
	state *StateRepository
}

func NewSettingsRepository(state *StateRepository) *SettingsRepository {
	return &SettingsRepository{state: state}
}

// Load returns the stored snapshot. A missing or unreadable snapshot yields
// the zero value (everything off), logged but never an error: the monitor
// then simply skips notification work for the cycle.
func (r *SettingsRepository) Load(ctx context.Context) model.NotificationSettings {
	var settings model.NotificationSettings
	raw, ok, err := r.state.Get(ctx, settingsKey)
	if err != nil {
		slog.Error("load notification settings", "error", err)
		return settings
	}
	if !ok {
		return settings
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		slog.Error("decode notification settings", "error", err)
		return model.NotificationSettings{}
	}
	return settings
}

func (r *SettingsRepository) Save(ctx context.Context, settings model.NotificationSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode notification settings: %w", err)
	}
	return r.state.Set(ctx, settingsKey, string(raw))
}
