package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	appService "medreminder/internal/application/service"
	"medreminder/internal/config"
	"medreminder/internal/infrastructure/channel"
	"medreminder/internal/infrastructure/database/sqlite"
	"medreminder/internal/infrastructure/notify"
	"medreminder/internal/infrastructure/preference"
	"medreminder/internal/infrastructure/scheduler"
	"medreminder/internal/infrastructure/sound"
	"medreminder/internal/infrastructure/storeclient"
	"medreminder/internal/interfaces/console"
	appLogger "medreminder/internal/pkg/logger"

	"github.com/chzyer/readline"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// bellInterval is how often a ringing alarm repeats.
const bellInterval = 2 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadForeground()
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "reminders> ",
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
		AutoComplete:      console.Completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to setup readline: %w", err)
	}
	defer rl.Close()

	// Log lines go to stderr so they do not garble the prompt.
	appLog := appLogger.NewWithWriter(rl.Stderr(), os.Getenv("LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---
	cacheDB, err := sqlite.NewCacheDB(cfg.CacheDBPath, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlite.CloseDB(cacheDB); err != nil {
			appLog.Error("Error closing database", err)
		}
	}()
	alarms := sqlite.NewCacheRepository(cacheDB)

	clock := clockwork.NewRealClock()
	store := storeclient.New(cfg.ServerURL, cfg.RequestTimeout)
	peer := channel.NewClient(cfg.WebsocketURL(), appLog)
	prefs := preference.NewFileStore(afero.NewOsFs(), cfg.PrefsPath)
	bell := sound.NewBell(rl.Stdout(), clock, bellInterval, cfg.AlarmTimeout)
	screen := notify.NewConsole(rl.Stdout(), notify.ParsePermission(cfg.NotificationPermission))
	cronScheduler := scheduler.NewScheduler(appLog)
	defer cronScheduler.Stop()

	// --- Application Services ---
	opts := appService.DefaultForegroundOptions()
	opts.OwnerID = cfg.OwnerID
	opts.PollSpec = cfg.PollSpec()
	opts.KeepaliveSpec = cfg.KeepaliveSpec()
	opts.AlarmTimeout = cfg.AlarmTimeout
	opts.UpcomingWindow = cfg.UpcomingWindow
	opts.DueSoonWindow = cfg.DueSoonWindow

	fg := appService.NewForegroundScheduler(appService.ForegroundDeps{
		Source:      store,
		Peer:        peer,
		Snooze:      appService.NewSnoozeCoordinator(alarms, peer, appLog),
		Gateway:     screen,
		Player:      bell,
		Toaster:     screen,
		Preferences: prefs,
		Cron:        cronScheduler,
		Clock:       clock,
		Log:         appLog,
	}, opts)

	// The channel outlives the signal context so the exit handoff can still be sent.
	peerCtx, cancelPeer := context.WithCancel(context.Background())
	defer cancelPeer()
	peer.SetHandler(fg.HandleMessage)
	peer.OnConnect(fg.Keepalive)
	go func() {
		if err := peer.Run(peerCtx); err != nil && peerCtx.Err() == nil {
			appLog.Error("Channel client stopped", err)
		}
	}()

	if err := fg.Start(ctx); err != nil {
		// The last known set is empty, so alarms start after the next successful refresh.
		appLog.Error("Failed to load reminders", err)
	}
	defer fg.Stop()

	// Hand off to the server when the console exits so reminders keep arriving.
	defer func() {
		handoffCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fg.OnHidden(handoffCtx); err != nil {
			appLog.Warn(fmt.Sprintf("Handoff to the server failed: %v", err))
		}
	}()

	done := make(chan error, 1)
	go func() { done <- console.New(fg, clock, rl.Stdout()).Run(ctx, rl) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}
