package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"task-tracker/internal/clock"
	"task-tracker/internal/config"
	"task-tracker/internal/notify"
	"task-tracker/internal/repository"
	"task-tracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("db", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	taskRepo := repository.NewTaskRepository(db)
	stateRepo := repository.NewStateRepository(db)
	settingsRepo := repository.NewSettingsRepository(stateRepo)
	subRepo := repository.NewSubscriptionRepository(db)

	var targets []notify.Notifier
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		targets = append(targets, notify.NewWebPush(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDContact, subRepo))
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		telegram, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			slog.Error("telegram", "error", err)
			os.Exit(1)
		}
		targets = append(targets, telegram)
	}
	if len(targets) == 0 {
		slog.Warn("no delivery channels configured, notifications will be dropped")
	}
	notifier := notify.NewMulti(targets...)

	clk := clock.System{}
	syncer := service.NewOccurrenceSynchronizer(taskRepo, clk)
	scanner := service.NewDueDateScanner()
	scanner.SetThreshold(cfg.DueSoonThreshold)
	gate := service.NewNotificationGate(stateRepo)

	monitor := service.NewMonitor(taskRepo, settingsRepo, stateRepo, syncer, scanner, gate, notifier, clk)
	monitor.SetCheckInterval(cfg.CheckInterval)
	if err := monitor.Start(); err != nil {
		slog.Error("start monitor", "error", err)
		os.Exit(1)
	}
	defer monitor.Stop()

	slog.Info("task tracker started", "interval", cfg.CheckInterval, "threshold", cfg.DueSoonThreshold)
	<-ctx.Done()
	slog.Info("shutdown complete")
}
