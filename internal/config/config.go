// Package config loads process configuration from the environment. A .env
// file in the working directory is read first.
package config

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file
	"github.com/kelseyhightower/envconfig"
)

// Server configures the host process: the Reminder Store API, the LINE
// webhook and the background scheduler.
type Server struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	StoreDBPath string `envconfig:"BLUEPRINT_DB_URL" default:"reminders.db"`
	CacheDBPath string `envconfig:"CACHE_DB_PATH" default:"reminder-cache.db"`
	DBVerbose   bool   `envconfig:"DB_VERBOSE" default:"false"`

	// LINE delivery is enabled when both are set.
	ChannelSecret      string `envconfig:"CHANNEL_SECRET"`
	ChannelAccessToken string `envconfig:"CHANNEL_ACCESS_TOKEN"`

	// NotificationPermission is reported by the console gateway: granted, denied or default.
	NotificationPermission string `envconfig:"NOTIFICATION_PERMISSION" default:"granted"`

	RearmInterval        time.Duration `envconfig:"REARM_INTERVAL" default:"10m"`
	PollSpec             string        `envconfig:"BACKGROUND_POLL_SPEC" default:"*/5 * * * * *"`
	DueGrace             time.Duration `envconfig:"DUE_GRACE" default:"10s"`
	DeliveredHold        time.Duration `envconfig:"DELIVERED_HOLD" default:"60s"`
	StaleSyncAfter       time.Duration `envconfig:"STALE_SYNC_AFTER" default:"15m"`
	KeepaliveInterval    time.Duration `envconfig:"KEEPALIVE_INTERVAL" default:"1m"`
	DefaultSnoozeMinutes int           `envconfig:"DEFAULT_SNOOZE_MINUTES" default:"5"`
}

// Foreground configures the interactive console.
type Foreground struct {
	ServerURL   string `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	OwnerID     string `envconfig:"OWNER_ID" required:"true"`
	CacheDBPath string `envconfig:"CACHE_DB_PATH" default:"reminder-cache.db"`
	PrefsPath   string `envconfig:"PREFS_PATH" default:"preferences.json"`

	NotificationPermission string `envconfig:"NOTIFICATION_PERMISSION" default:"granted"`

	PollInterval      time.Duration `envconfig:"POLL_INTERVAL" default:"15s"`
	KeepaliveInterval time.Duration `envconfig:"KEEPALIVE_INTERVAL" default:"1m"`
	AlarmTimeout      time.Duration `envconfig:"ALARM_TIMEOUT" default:"5s"`
	UpcomingWindow    time.Duration `envconfig:"UPCOMING_WINDOW" default:"60m"`
	DueSoonWindow     time.Duration `envconfig:"DUE_SOON_WINDOW" default:"30m"`
	RequestTimeout    time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
}

// LoadServer reads the host configuration.
func LoadServer() (*Server, error) {
	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Server) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}
	if c.RearmInterval <= 0 {
		return fmt.Errorf("REARM_INTERVAL must be positive")
	}
	if c.KeepaliveInterval <= 0 {
		return fmt.Errorf("KEEPALIVE_INTERVAL must be positive")
	}
	if c.DefaultSnoozeMinutes <= 0 {
		return fmt.Errorf("DEFAULT_SNOOZE_MINUTES must be positive")
	}
	return nil
}

// LineEnabled reports whether LINE credentials are configured.
func (c *Server) LineEnabled() bool {
	return c.ChannelSecret != "" && c.ChannelAccessToken != ""
}

// Addr returns the HTTP listen address.
func (c *Server) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// RearmSpec returns the cron spec of the re-arm pass.
func (c *Server) RearmSpec() string {
	return "@every " + c.RearmInterval.String()
}

// ForegroundLease is how long one keepalive marks a foreground as visible.
func (c *Server) ForegroundLease() time.Duration {
	return 2 * c.KeepaliveInterval
}

// LoadForeground reads the console configuration.
func LoadForeground() (*Foreground, error) {
	var cfg Foreground
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if strings.TrimSpace(cfg.OwnerID) == "" {
		return nil, fmt.Errorf("OWNER_ID is required")
	}
	if cfg.PollInterval <= 0 || cfg.KeepaliveInterval <= 0 || cfg.AlarmTimeout <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL, KEEPALIVE_INTERVAL and ALARM_TIMEOUT must be positive")
	}
	return &cfg, nil
}

// PollSpec returns the cron spec of the due-check poll.
func (c *Foreground) PollSpec() string {
	return "@every " + c.PollInterval.String()
}

// KeepaliveSpec returns the cron spec of the keepalive.
func (c *Foreground) KeepaliveSpec() string {
	return "@every " + c.KeepaliveInterval.String()
}

// WebsocketURL derives the channel endpoint from ServerURL.
func (c *Foreground) WebsocketURL() string {
	base := strings.TrimSuffix(c.ServerURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	default:
		return base + "/ws"
	}
}
