package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Application Layer
	"medreminder/internal/application/dto"
	appService "medreminder/internal/application/service"
	"medreminder/internal/config"
	"medreminder/internal/domain/gateway"

	// Infrastructure Layer
	"medreminder/internal/infrastructure/channel"
	"medreminder/internal/infrastructure/database/sqlite"
	lineClient "medreminder/internal/infrastructure/line"
	"medreminder/internal/infrastructure/notify"
	"medreminder/internal/infrastructure/scheduler"

	// Interfaces Layer
	"medreminder/internal/interfaces/api/handler"
	"medreminder/internal/interfaces/api/router"

	// Packages
	appLogger "medreminder/internal/pkg/logger"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

func gracefulShutdown(apiServer *http.Server, background appService.BackgroundScheduler, cronScheduler *scheduler.Scheduler, dbs []*gorm.DB, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	// Stop the schedulers first
	log.Println("Stopping background scheduler...")
	background.Stop()
	cronScheduler.Stop()
	log.Println("Background scheduler stopped.")

	// Shutdown HTTP server
	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	// Close database connections
	log.Println("Closing database connections...")
	for _, db := range dbs {
		if err := sqlite.CloseDB(db); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
	log.Println("Database connections closed.")

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	// --- Initialization ---
	appLog := appLogger.New()
	appLog.Info("Logger initialized.")

	cfg, err := config.LoadServer()
	if err != nil {
		appLog.Error("Invalid configuration", err)
		os.Exit(1)
	}

	// --- Infrastructure ---
	storeDB, err := sqlite.NewStoreDB(cfg.StoreDBPath, cfg.DBVerbose)
	if err != nil {
		appLog.Error("Failed to open reminder store", err)
		os.Exit(1)
	}
	cacheDB, err := sqlite.NewCacheDB(cfg.CacheDBPath, cfg.DBVerbose)
	if err != nil {
		appLog.Error("Failed to open background cache", err)
		os.Exit(1)
	}
	reminderRepo := sqlite.NewReminderRepository(storeDB)
	cacheRepo := sqlite.NewCacheRepository(cacheDB)
	appLog.Info("Databases and repositories initialized.")

	clock := clockwork.NewRealClock()
	cronScheduler := scheduler.NewScheduler(appLog)
	hub := channel.NewHub(appLog)

	var (
		notifier gateway.Gateway
		line     *lineClient.Client
	)
	if cfg.LineEnabled() {
		line, err = lineClient.NewClient(cfg.ChannelSecret, cfg.ChannelAccessToken, appLog)
		if err != nil {
			appLog.Error("Failed to create LINE client", err)
			os.Exit(1)
		}
		notifier = line
		appLog.Info("Delivering notifications through LINE.")
	} else {
		notifier = notify.NewConsole(os.Stdout, notify.ParsePermission(cfg.NotificationPermission))
		appLog.Warn("LINE credentials not set, delivering notifications to the console")
	}

	// --- Application Services ---
	snoozeSvc := appService.NewSnoozeCoordinator(cacheRepo, hub, appLog)
	reminderSvc := appService.NewReminderService(reminderRepo, clock, appLog)

	opts := appService.DefaultBackgroundOptions()
	opts.RearmSpec = cfg.RearmSpec()
	opts.PollSpec = cfg.PollSpec
	opts.DueGrace = cfg.DueGrace
	opts.DeliveredHold = cfg.DeliveredHold
	opts.StaleSyncAfter = cfg.StaleSyncAfter
	opts.ForegroundLease = cfg.ForegroundLease()
	opts.DefaultSnoozeMinutes = cfg.DefaultSnoozeMinutes
	background := appService.NewBackgroundScheduler(cacheRepo, snoozeSvc, notifier, hub, reminderSvc, cronScheduler, clock, appLog, opts)

	hub.SetHandler(background.HandleMessage)
	hub.OnDetach(background.ForegroundDetached)
	reminderSvc.Subscribe(func(ctx context.Context, evt appService.ChangeEvent) {
		background.ApplyChange(ctx, evt)
		changed := dto.MustEnvelope(dto.TypeRemindersChanged, dto.RemindersChangedPayload{
			ID:   evt.Reminder.ID,
			Kind: string(evt.Kind),
		})
		// No foreground connected is the normal case.
		_ = hub.Send(ctx, changed)
	})
	appLog.Info("Application services initialized.")

	// --- Initialize Schedules ---
	appLog.Info("Starting background scheduler...")
	if err := background.Start(context.Background()); err != nil {
		// Log the error but continue starting the server
		appLog.Error("Failed to start background scheduler", err)
	} else {
		appLog.Info("Background scheduler started.")
	}

	// --- API Handlers ---
	routerCfg := &router.Config{
		ReminderHandler: handler.NewReminderHandler(reminderSvc, background, appLog),
		Channel:         hub,
		Logger:          appLog,
	}
	if line != nil {
		routerCfg.LineHandler = handler.NewLineHandler(line, background, reminderSvc, appLog)
	}
	appLog.Info("API handlers initialized.")

	// --- Router ---
	echoRouter := router.NewRouter(routerCfg)

	// --- HTTP Server ---
	// Read and write timeouts would carry over to hijacked websocket connections.
	apiServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           echoRouter,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Start Server & Shutdown Handling ---
	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, background, cronScheduler, []*gorm.DB{storeDB, cacheDB}, done)

	appLog.Info(fmt.Sprintf("Server starting on %s", cfg.Addr()))
	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		appLog.Error("HTTP server ListenAndServe error", err)
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for graceful shutdown signal
	<-done
	appLog.Info("Graceful shutdown complete.")
}
