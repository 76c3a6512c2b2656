package handler

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"medreminder/internal/application/service"
	"medreminder/internal/domain/gateway"
	"medreminder/internal/infrastructure/database/sqlite"
	"medreminder/internal/infrastructure/notify"
	"medreminder/internal/infrastructure/scheduler"
	"medreminder/internal/pkg/logger"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type services struct {
	reminders  service.ReminderService
	background service.BackgroundScheduler
}

func newServices(t *testing.T) services {
	t.Helper()
	dir := t.TempDir()
	storeDB, err := sqlite.NewStoreDB(filepath.Join(dir, "store.db"), false)
	require.NoError(t, err)
	cacheDB, err := sqlite.NewCacheDB(filepath.Join(dir, "cache.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlite.CloseDB(storeDB)
		_ = sqlite.CloseDB(cacheDB)
	})

	log := logger.Nop()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 7, 0, 0, 0, time.Local))
	cache := sqlite.NewCacheRepository(cacheDB)
	cron := scheduler.NewScheduler(log)
	t.Cleanup(cron.Stop)

	reminders := service.NewReminderService(sqlite.NewReminderRepository(storeDB), clock, log)
	background := service.NewBackgroundScheduler(
		cache,
		service.NewSnoozeCoordinator(cache, nil, log),
		notify.NewConsole(io.Discard, gateway.PermissionGranted),
		nil,
		reminders,
		cron,
		clock,
		log,
		service.DefaultBackgroundOptions(),
	)
	t.Cleanup(background.Stop)
	return services{reminders: reminders, background: background}
}
