package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-tracker/internal/clock"
	"task-tracker/internal/model"
	"task-tracker/internal/notify"
	"task-tracker/internal/repository"
)

func newSystemFixture(t *testing.T) (*SystemNotificationService, *repository.SettingsRepository, *captureNotifier, *clock.Fake) {
	t.Helper()
	db := newTestDB(t)
	state := repository.NewStateRepository(db)
	settings := repository.NewSettingsRepository(state)
	notifier := &captureNotifier{}
	clk := clock.NewFake(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))
	gate := NewNotificationGate(state)

	require.NoError(t, settings.Save(context.Background(), allOnSettings()))
	return NewSystemNotificationService(state, settings, gate, notifier, clk), settings, notifier, clk
}

func TestSystemUpdateDedupWindow(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier, clk := newSystemFixture(t)

	sent, err := svc.SendUpdate(ctx, "release-2.1", "Version 2.1 is available")
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Len(t, notifier.Sent(), 1)

	// Same notice within 24 hours is skipped.
	clk.Advance(12 * time.Hour)
	sent, err = svc.SendUpdate(ctx, "release-2.1", "Version 2.1 is available")
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Len(t, notifier.Sent(), 1)

	// A different notice goes through.
	sent, err = svc.SendUpdate(ctx, "release-2.2", "Version 2.2 is available")
	require.NoError(t, err)
	assert.True(t, sent)

	// And the first one re-arms after the window.
	clk.Advance(13 * time.Hour)
	sent, err = svc.SendUpdate(ctx, "release-2.1", "Version 2.1 is available")
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestSystemUpdateFailedDeliveryDoesNotSuppressRetry(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier, _ := newSystemFixture(t)

	notifier.err = errors.New("endpoint unreachable")
	sent, err := svc.SendUpdate(ctx, "release-2.1", "Version 2.1 is available")
	require.Error(t, err)
	assert.False(t, sent)

	// No dedup record was written, so the next attempt goes straight out.
	notifier.err = nil
	sent, err = svc.SendUpdate(ctx, "release-2.1", "Version 2.1 is available")
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Len(t, notifier.Sent(), 1)
}

func TestSystemUpdateRespectsToggle(t *testing.T) {
	ctx := context.Background()
	svc, settings, notifier, _ := newSystemFixture(t)

	s := allOnSettings()
	s.SystemUpdates = false
	require.NoError(t, settings.Save(ctx, s))

	sent, err := svc.SendUpdate(ctx, "release-2.1", "Version 2.1 is available")
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, notifier.Sent())
}

func TestMaintenanceNoticeUsesFixedID(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier, _ := newSystemFixture(t)

	sent, err := svc.SendMaintenance(ctx, "02:00", "04:00", "")
	require.NoError(t, err)
	assert.True(t, sent)

	// Immediately repeated maintenance notices collapse onto the same ID.
	sent, err = svc.SendMaintenance(ctx, "02:00", "04:00", "")
	require.NoError(t, err)
	assert.False(t, sent)

	require.Len(t, notifier.Sent(), 1)
	assert.Contains(t, notifier.Sent()[0].Body, "02:00 - 04:00")
}

func TestAnnouncementHasNoDedup(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier, _ := newSystemFixture(t)

	for i := 0; i < 3; i++ {
		sent, err := svc.SendAnnouncement(ctx, "Heads up", "Backups run tonight")
		require.NoError(t, err)
		assert.True(t, sent)
	}
	sent := notifier.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, notify.EventSystem, sent[0].Type)
}

func TestAnnouncementSuppressedInQuietHours(t *testing.T) {
	ctx := context.Background()
	svc, settings, notifier, clk := newSystemFixture(t)

	s := allOnSettings()
	s.QuietHours = model.QuietHours{Enabled: true, Start: "22:00", End: "08:00"}
	require.NoError(t, settings.Save(ctx, s))

	clk.Set(time.Date(2026, time.March, 10, 23, 30, 0, 0, time.UTC))
	sent, err := svc.SendAnnouncement(ctx, "Heads up", "Backups run tonight")
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, notifier.Sent())
}
