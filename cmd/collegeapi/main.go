package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/college-admin/internal/application"
	"github.com/example/college-admin/internal/config"
	httptransport "github.com/example/college-admin/internal/http"
	"github.com/example/college-admin/internal/jobs"
	"github.com/example/college-admin/internal/logging"
	"github.com/example/college-admin/internal/persistence"
	"github.com/example/college-admin/internal/persistence/memory"
	"github.com/example/college-admin/internal/persistence/sqldb"
	"github.com/example/college-admin/internal/push"
	"github.com/example/college-admin/internal/recurrence"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	app.runner.Start()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
		if err := app.runner.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop jobs", "error", err)
		}
	}()

	logger.Info("college API listening", "addr", server.Addr, "store", cfg.StoreDriver, "push_mode", cfg.Push.Mode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// app holds everything main owns for the lifetime of the process.
type app struct {
	store         persistence.Store
	notifications *application.NotificationService
	runner        *jobs.Runner
	handler       http.Handler
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	store, health, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	sender, err := newSender(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	idGenerator := uuid.NewString
	now := time.Now

	userDirectory := newUserDirectoryAdapter(store)
	courseCatalog := newCourseCatalogAdapter(store)
	enrollments := newEnrollmentAdapter(store)
	personalEvents := newPersonalEventAdapter(store)
	tasks := newTaskReaderAdapter(store)
	notificationRepo := newNotificationAdapter(store)

	scheduleService := application.NewScheduleServiceWithLogger(
		courseCatalog,
		enrollments,
		personalEvents,
		tasks,
		recurrence.NewEngine(loc),
		application.NewSlotCache(cfg.SlotCacheSize, cfg.SlotCacheTTL),
		idGenerator,
		now,
		application.ScheduleConfig{
			LookBehind: cfg.Schedule.LookBehind,
			LookAhead:  cfg.Schedule.LookAhead,
			MaxSpan:    cfg.Schedule.MaxSpan,
			TaskLimit:  cfg.Schedule.TaskLimit,
			BoundTasks: cfg.Schedule.BoundTasks,
		},
		logger,
	)
	notificationService := application.NewNotificationServiceWithLogger(
		notificationRepo,
		store,
		sender,
		courseCatalog,
		application.NewAudienceResolverWithLogger(enrollments, logger),
		idGenerator,
		now,
		application.NotificationConfig{
			Concurrency: cfg.FanoutConcurrency,
			PushTimeout: cfg.Push.Timeout,
			Async:       cfg.Push.Async,
			Location:    loc,
		},
		logger,
	)
	enrollmentService := application.NewEnrollmentServiceWithLogger(courseCatalog, enrollments, idGenerator, now, logger)
	pushTokenService := application.NewPushTokenServiceWithLogger(store, now, logger)
	authService := application.NewAuthServiceWithLogger(userDirectory, logger)

	runner := jobs.NewRunner(loc, logger)
	if cfg.NotificationPurgeCron != "" {
		if _, err := runner.AddNotificationPurge(cfg.NotificationPurgeCron, notificationService, cfg.NotificationRetention); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("schedule notification purge: %w", err)
		}
	}

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Schedules:     httptransport.NewScheduleHandler(scheduleService, logger),
		Notifications: httptransport.NewNotificationHandler(notificationService, logger),
		Courses:       httptransport.NewCourseHandler(enrollmentService, logger),
		PushTokens:    httptransport.NewPushTokenHandler(pushTokenService, logger),
		Authenticate:  httptransport.RequirePrincipal(authService, logger),
		Health:        health,
		Middleware:    []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	return &app{
		store:         store,
		notifications: notificationService,
		runner:        runner,
		handler:       handler,
	}, nil
}

// close waits for deferred pushes before releasing the store they write to.
func (a *app) close(logger *slog.Logger) {
	a.notifications.Wait()
	if err := a.store.Close(); err != nil {
		logger.Error("failed to close storage", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, func(context.Context) error, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on exit")
		return memory.New(), nil, nil
	}

	dialect, err := sqldb.ParseDialect(cfg.StoreDriver)
	if err != nil {
		return nil, nil, err
	}
	db, err := sqldb.Open(ctx, sqldb.Options{Dialect: dialect, DSN: cfg.DatabaseURL, Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}
	return db, db.Ping, nil
}

func newSender(ctx context.Context, cfg config.Config, logger *slog.Logger) (push.Sender, error) {
	switch cfg.Push.Mode {
	case config.PushModeFCM:
		sender, err := push.NewFCMSender(ctx, push.FCMConfig{
			ProjectID:       cfg.Push.FCMProjectID,
			CredentialsFile: cfg.Push.CredentialsFile,
			BatchSize:       cfg.Push.BatchSize,
			MaxRetries:      uint64(cfg.Push.Retries),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("configure fcm: %w", err)
		}
		return sender, nil
	case config.PushModeLog:
		return push.NewLogSender(logger, cfg.Push.BatchSize), nil
	default:
		return push.Disabled{}, nil
	}
}
