package sqlite

import (
	"fmt"
	"log"
	"medreminder/internal/domain/entity"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a GORM connection to the SQLite file at path and migrates the given models.
// The Reminder Store and the background cache use separate files, so each caller
// passes the models it owns.
func NewDB(path string, verbose bool, models ...interface{}) (*gorm.DB, error) {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	// Configure GORM logger
	newLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		gormlogger.Config{
			SlowThreshold:             0,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true, // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,
		},
	)

	// WAL lets the foreground process read snooze rows while the host writes them.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}

	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("schema migration failed for %s: %w", path, err)
	}
	return db, nil
}

// NewStoreDB opens the Reminder Store database.
func NewStoreDB(path string, verbose bool) (*gorm.DB, error) {
	return NewDB(path, verbose, &entity.Reminder{})
}

// NewCacheDB opens the background scheduler's durable cache.
func NewCacheDB(path string, verbose bool) (*gorm.DB, error) {
	return NewDB(path, verbose, &entity.CachedReminder{}, &entity.AlarmEntry{})
}

// CloseDB closes the database connection if it's open.
func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	return sqlDB.Close()
}
