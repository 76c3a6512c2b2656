package router

import (
	"fmt"
	"medreminder/internal/interfaces/api/handler"
	"medreminder/internal/pkg/logger"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Config holds the dependencies for the router.
type Config struct {
	ReminderHandler *handler.ReminderHandler
	// LineHandler is nil when LINE delivery is disabled.
	LineHandler *handler.LineHandler
	// Channel serves the foreground websocket.
	Channel http.Handler
	Logger  logger.Logger
}

// NewRouter creates and configures a new Echo router.
func NewRouter(cfg *Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogHost:      true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			cfg.Logger.Info(fmt.Sprintf("REQUEST: method=%s, uri=%s, status=%d, latency=%s, req_id=%s",
				v.Method, v.URI, v.Status, v.Latency, v.RequestID,
			))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Line-Signature"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "medicine reminders")
	})

	api := e.Group("/api")
	api.GET("/reminders", cfg.ReminderHandler.List)
	api.POST("/reminders", cfg.ReminderHandler.Create)
	api.GET("/reminders/:id", cfg.ReminderHandler.Get)
	api.PUT("/reminders/:id", cfg.ReminderHandler.Update)
	api.DELETE("/reminders/:id", cfg.ReminderHandler.Delete)
	api.GET("/alarms", cfg.ReminderHandler.Alarms)

	if cfg.Channel != nil {
		e.GET("/ws", echo.WrapHandler(cfg.Channel))
	}

	// LINE Webhook Endpoint
	if cfg.LineHandler != nil {
		e.POST("/callback", cfg.LineHandler.HandleWebhook)
	}

	cfg.Logger.Info("Router initialized with routes.")
	return e
}
