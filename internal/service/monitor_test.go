package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"task-tracker/internal/clock"
	"task-tracker/internal/model"
	"task-tracker/internal/notify"
	"task-tracker/internal/repository"
)

type monitorFixture struct {
	monitor  *Monitor
	db       *gorm.DB
	tasks    *repository.TaskRepository
	state    *repository.StateRepository
	settings *repository.SettingsRepository
	notifier *captureNotifier
	clk      *clock.Fake
}

func newMonitorFixture(t *testing.T, now time.Time) *monitorFixture {
	t.Helper()
	db := newTestDB(t)
	tasks := repository.NewTaskRepository(db)
	state := repository.NewStateRepository(db)
	settings := repository.NewSettingsRepository(state)
	notifier := &captureNotifier{}
	clk := clock.NewFake(now)

	syncer := NewOccurrenceSynchronizer(tasks, clk)
	scanner := NewDueDateScanner()
	gate := NewNotificationGate(state)
	monitor := NewMonitor(tasks, settings, state, syncer, scanner, gate, notifier, clk)

	require.NoError(t, settings.Save(context.Background(), allOnSettings()))
	return &monitorFixture{
		monitor:  monitor,
		db:       db,
		tasks:    tasks,
		state:    state,
		settings: settings,
		notifier: notifier,
		clk:      clk,
	}
}

func TestCycleNotifiesOverdueWithDedup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)
	f := newMonitorFixture(t, now)

	task := model.Task{
		ID:      "t1",
		Content: "pay rent",
		DueDate: ptrDate(date(2026, time.March, 8)),
	}
	require.NoError(t, f.tasks.Create(ctx, &task))

	f.monitor.RunCycle()
	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.EventOverdue, sent[0].Type)
	assert.Equal(t, "t1", sent[0].TaskID)

	// 30 minutes later: still inside the dedup window.
	f.clk.Advance(30 * time.Minute)
	f.monitor.RunCycle()
	assert.Len(t, f.notifier.Sent(), 1)

	// 70 minutes after the first send: fires again.
	f.clk.Advance(40 * time.Minute)
	f.monitor.RunCycle()
	assert.Len(t, f.notifier.Sent(), 2)
}

func TestCycleSendsDueSoonOnlyOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 9, 23, 30, 0, 0, time.Local)
	f := newMonitorFixture(t, now)

	task := model.Task{
		ID:      "t1",
		Content: "submit report",
		DueDate: ptrDate(date(2026, time.March, 10)),
	}
	require.NoError(t, f.tasks.Create(ctx, &task))

	f.monitor.RunCycle()
	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.EventDueSoon, sent[0].Type)

	// Repeated ticks while still inside the window.
	f.clk.Advance(10 * time.Minute)
	f.monitor.RunCycle()
	assert.Len(t, f.notifier.Sent(), 1)

	// Even after the due moment passes, dueSoon never re-fires; the task is
	// now overdue instead.
	f.clk.Advance(2 * time.Hour)
	f.monitor.RunCycle()
	sent = f.notifier.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, notify.EventOverdue, sent[1].Type)
}

func TestCycleReopensRecurringThenScansFreshCollection(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.Local)
	f := newMonitorFixture(t, now)

	completedAt := time.Date(2026, time.March, 9, 20, 0, 0, 0, time.Local)
	task := model.Task{
		ID:            "habit",
		Content:       "morning run",
		IsRecurring:   true,
		RecurringType: model.RecurDaily,
		Completed:     true,
		CompletedAt:   &completedAt,
		DueDate:       ptrDate(date(2026, time.March, 9)),
	}
	require.NoError(t, f.tasks.Create(ctx, &task))

	f.monitor.RunCycle()

	stored := f.tasks.GetAll(ctx)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].Completed)
	assert.Nil(t, stored[0].CompletedAt)
	assert.Equal(t, date(2026, time.March, 10), *stored[0].DueDate)

	// The reopened task is due today, whose midnight already passed, so the
	// refreshed collection yields an overdue notification.
	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.EventOverdue, sent[0].Type)
}

func TestNavigateSkipsNotificationPipeline(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)
	f := newMonitorFixture(t, now)

	task := model.Task{
		ID:            "habit",
		IsRecurring:   true,
		RecurringType: model.RecurDaily,
		DueDate:       ptrDate(date(2026, time.March, 9)),
	}
	require.NoError(t, f.tasks.Create(ctx, &task))

	changed := f.monitor.Navigate(ctx, date(2026, time.March, 12))
	assert.True(t, changed)
	assert.Empty(t, f.notifier.Sent())

	stored := f.tasks.GetAll(ctx)
	assert.Equal(t, date(2026, time.March, 12), *stored[0].DueDate)
}

func TestCycleRespectsDisabledSettings(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)
	f := newMonitorFixture(t, now)

	// Everything off.
	require.NoError(t, f.settings.Save(ctx, model.NotificationSettings{}))

	task := model.Task{ID: "t1", DueDate: ptrDate(date(2026, time.March, 8))}
	require.NoError(t, f.tasks.Create(ctx, &task))

	f.monitor.RunCycle()
	assert.Empty(t, f.notifier.Sent())
}

func TestCycleAgesOutStaleDedupRecords(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)
	f := newMonitorFixture(t, now)

	// A record for a long-gone task, backdated past the retention window.
	ghostKey := repository.OverdueKey("ghost")
	require.NoError(t, f.state.MarkSent(ctx, ghostKey, now.Add(-8*24*time.Hour)))
	require.NoError(t, f.db.Model(&model.StateEntry{}).
		Where("key = ?", ghostKey).
		UpdateColumn("updated_at", now.Add(-8*24*time.Hour)).Error)

	f.monitor.RunCycle()

	_, ok, err := f.state.LastSent(ctx, ghostKey)
	require.NoError(t, err)
	assert.False(t, ok)

	// The settings snapshot shares the table but is never swept.
	settings := f.settings.Load(ctx)
	assert.True(t, settings.TaskOverdue)
}

func TestMonitorStartStop(t *testing.T) {
	now := time.Now()
	f := newMonitorFixture(t, now)
	f.monitor.SetCheckInterval(time.Second)

	require.NoError(t, f.monitor.Start())
	assert.True(t, f.monitor.Running())

	// Second start is a logged no-op.
	require.NoError(t, f.monitor.Start())
	assert.True(t, f.monitor.Running())

	f.monitor.Stop()
	assert.False(t, f.monitor.Running())

	// Stopping again is a no-op.
	f.monitor.Stop()
	assert.False(t, f.monitor.Running())
}

func TestMonitorStartRunsImmediateCycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)
	f := newMonitorFixture(t, now)
	f.monitor.SetCheckInterval(time.Hour)

	task := model.Task{ID: "t1", Content: "pay rent", DueDate: ptrDate(date(2026, time.March, 8))}
	require.NoError(t, f.tasks.Create(ctx, &task))

	require.NoError(t, f.monitor.Start())
	defer f.monitor.Stop()

	// No timer tick can have fired yet with a 1h interval; the send came
	// from the immediate first cycle.
	assert.Len(t, f.notifier.Sent(), 1)
}

func TestSetCheckIntervalRestartsRunningMonitor(t *testing.T) {
	f := newMonitorFixture(t, time.Now())
	f.monitor.SetCheckInterval(time.Hour)

	require.NoError(t, f.monitor.Start())
	defer f.monitor.Stop()

	f.monitor.SetCheckInterval(30 * time.Minute)
	assert.True(t, f.monitor.Running())

	// Ignored, monitor keeps running.
	f.monitor.SetCheckInterval(0)
	assert.True(t, f.monitor.Running())
}

func TestSetDueSoonThresholdAppliesNextScan(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 9, 21, 30, 0, 0, time.Local)
	f := newMonitorFixture(t, now)

	task := model.Task{ID: "t1", Content: "book tickets", DueDate: ptrDate(date(2026, time.March, 10))}
	require.NoError(t, f.tasks.Create(ctx, &task))

	// 2.5 hours out: outside the default 1h window.
	f.monitor.RunCycle()
	assert.Empty(t, f.notifier.Sent())

	f.monitor.SetDueSoonThreshold(3 * time.Hour)
	f.monitor.RunCycle()
	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.EventDueSoon, sent[0].Type)
}

// slowNotifier holds every Send for a while and tracks how many are in
// flight at once.
type slowNotifier struct {
	delay   time.Duration
	started chan struct{}

	mu        sync.Mutex
	active    int
	maxActive int
	total     int
}

func (s *slowNotifier) Send(context.Context, notify.Notification) error {
	s.mu.Lock()
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	s.mu.Unlock()

	if s.started != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
	}
	time.Sleep(s.delay)

	s.mu.Lock()
	s.active--
	s.total++
	s.mu.Unlock()
	return nil
}

func (s *slowNotifier) stats() (maxActive, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxActive, s.total
}

func newSlowMonitor(t *testing.T, now time.Time, notifier notify.Notifier) (*Monitor, *repository.TaskRepository) {
	t.Helper()
	db := newTestDB(t)
	tasks := repository.NewTaskRepository(db)
	state := repository.NewStateRepository(db)
	settings := repository.NewSettingsRepository(state)
	clk := clock.NewFake(now)
	monitor := NewMonitor(tasks, settings, state,
		NewOccurrenceSynchronizer(tasks, clk), NewDueDateScanner(),
		NewNotificationGate(state), notifier, clk)
	require.NoError(t, settings.Save(context.Background(), allOnSettings()))
	return monitor, tasks
}

func TestConcurrentCyclesNeverOverlap(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)
	notifier := &slowNotifier{delay: 50 * time.Millisecond}
	monitor, tasks := newSlowMonitor(t, now, notifier)

	task := model.Task{ID: "t1", Content: "pay rent", DueDate: ptrDate(date(2026, time.March, 8))}
	require.NoError(t, tasks.Create(ctx, &task))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			monitor.RunCycle()
		}()
	}
	wg.Wait()

	// The cycles ran one after another, so only the first one got past the
	// overdue dedup window.
	maxActive, total := notifier.stats()
	assert.Equal(t, 1, maxActive)
	assert.Equal(t, 1, total)
}

func TestNavigateWaitsForRunningCycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)
	notifier := &slowNotifier{delay: 200 * time.Millisecond, started: make(chan struct{}, 1)}
	monitor, tasks := newSlowMonitor(t, now, notifier)

	task := model.Task{
		ID:            "habit",
		IsRecurring:   true,
		RecurringType: model.RecurDaily,
		DueDate:       ptrDate(date(2026, time.March, 9)),
	}
	require.NoError(t, tasks.Create(ctx, &task))

	cycleDone := make(chan struct{})
	go func() {
		defer close(cycleDone)
		monitor.RunCycle()
	}()
	<-notifier.started

	navDone := make(chan struct{})
	go func() {
		defer close(navDone)
		monitor.Navigate(ctx, date(2026, time.March, 12))
	}()

	// While the cycle is still inside Send, navigation must not have touched
	// the store.
	select {
	case <-navDone:
		t.Fatal("navigation finished while a cycle was still running")
	case <-time.After(50 * time.Millisecond):
	}

	<-cycleDone
	<-navDone

	stored := tasks.GetAll(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, date(2026, time.March, 12), *stored[0].DueDate)
}
