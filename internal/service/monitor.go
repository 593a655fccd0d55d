package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"task-tracker/internal/clock"
	"task-tracker/internal/model"
	"task-tracker/internal/notify"
	"task-tracker/internal/repository"
)

const (
	// DefaultCheckInterval is the scheduled cycle period.
	DefaultCheckInterval = 5 * time.Minute

	// dedupRetention bounds how long an unused dedup record survives the
	// periodic age-out sweep.
	dedupRetention = 7 * 24 * time.Hour

	cycleTimeout = 30 * time.Second
)

// Monitor owns the repeating check timer. Each scheduled cycle aligns
// recurring tasks with today, scans due dates and pushes surviving events to
// the notifier. Manual date navigation runs the synchronizer only.
type Monitor struct {
	tasks    *repository.TaskRepository
	settings *repository.SettingsRepository
	state    *repository.StateRepository
	syncer   *OccurrenceSynchronizer
	scanner  *DueDateScanner
	gate     *NotificationGate
	notifier notify.Notifier
	clk      clock.Clock

	mu            sync.Mutex
	sched         *SchedulerService
	checkInterval time.Duration

	// cycleMu serializes whole-collection read-modify-write: at most one
	// scheduled cycle or manual navigation runs at a time.
	cycleMu sync.Mutex
}

func NewMonitor(
	tasks *repository.TaskRepository,
	settings *repository.SettingsRepository,
	state *repository.StateRepository,
	syncer *OccurrenceSynchronizer,
	scanner *DueDateScanner,
	gate *NotificationGate,
	notifier notify.Notifier,
	clk clock.Clock,
) *Monitor {
	return &Monitor{
		tasks:         tasks,
		settings:      settings,
		state:         state,
		syncer:        syncer,
		scanner:       scanner,
		gate:          gate,
		notifier:      notifier,
		clk:           clk,
		checkInterval: DefaultCheckInterval,
	}
}

// Start runs one immediate cycle and arms the repeating timer. Starting an
// already running monitor is a logged no-op.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.sched != nil {
		m.mu.Unlock()
		slog.Warn("task monitor already running")
		return nil
	}
	sched := NewSchedulerService(time.Local)
	if _, err := sched.ScheduleInterval(m.checkInterval, m.RunCycle); err != nil {
		m.mu.Unlock()
		return err
	}
	m.sched = sched
	interval := m.checkInterval
	m.mu.Unlock()

	m.RunCycle()
	sched.Start()
	slog.Info("task monitor started", "interval", interval)
	return nil
}

// Stop cancels future ticks. A cycle already in progress finishes. No-op
// when not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	sched := m.sched
	m.sched = nil
	m.mu.Unlock()
	if sched == nil {
		return
	}
	sched.Stop()
	slog.Info("task monitor stopped")
}

// Running reports whether the timer is armed.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sched != nil
}

// SetCheckInterval changes the cycle period. A running monitor is restarted
// so no partial tick carries over.
func (m *Monitor) SetCheckInterval(interval time.Duration) {
	if interval <= 0 {
		slog.Warn("ignoring non-positive check interval", "interval", interval)
		return
	}
	m.mu.Lock()
	m.checkInterval = interval
	running := m.sched != nil
	m.mu.Unlock()

	if running {
		m.Stop()
		if err := m.Start(); err != nil {
			slog.Error("restart after interval change", "error", err)
		}
	}
}

// SetDueSoonThreshold takes effect on the next scan. Already-written dedup
// records are not re-evaluated.
func (m *Monitor) SetDueSoonThreshold(threshold time.Duration) {
	m.scanner.SetThreshold(threshold)
}

// Navigate aligns recurring tasks with a user-chosen date (today, previous
// or next day, or an explicit pick). It intentionally skips the scan, gate
// and notify steps. Reports whether any task was rewritten.
func (m *Monitor) Navigate(ctx context.Context, date model.Date) bool {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	tasks := m.tasks.GetAll(ctx)
	_, changed := m.syncer.Synchronize(ctx, tasks, date, SyncManual)
	return changed
}

// RunCycle executes one scheduled check immediately. Every failure inside
// the cycle is logged and absorbed so the timer is never cancelled.
func (m *Monitor) RunCycle() {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("monitor cycle panicked", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	now := m.clk.Now()
	today := model.NewDate(now)

	// Settings are a fresh snapshot every cycle, never cached across ticks.
	settings := m.settings.Load(ctx)

	tasks := m.tasks.GetAll(ctx)
	updated, changed := m.syncer.Synchronize(ctx, tasks, today, SyncAuto)
	if changed {
		tasks = m.tasks.GetAll(ctx)
	} else {
		tasks = updated
	}

	for _, result := range m.scanner.Scan(tasks, now) {
		if !m.gate.ShouldNotify(ctx, result.Task.ID, result.Type, now, settings) {
			continue
		}
		if err := m.notifier.Send(ctx, notify.ForTask(result.Task, result.Type)); err != nil {
			slog.Error("send notification", "task", result.Task.ID, "type", result.Type, "error", err)
		}
	}

	if err := m.state.DeleteDedupOlderThan(ctx, now.Add(-dedupRetention)); err != nil {
		slog.Error("dedup age-out sweep", "error", err)
	}
}
