package router

import (
	"fmt"
	"net/http"
	"remindme/internal/interfaces/api/handler"
	"remindme/internal/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds the dependencies for the router.
type Config struct {
	ReminderHandler *handler.ReminderHandler
	SlackHandler    *handler.SlackHandler
	// LineHandler is optional; the LINE webhook is only mounted when it is set.
	LineHandler *handler.LineHandler
	// OperatorUserIDs may call the admin endpoints.
	OperatorUserIDs []string
	Gatherer        prometheus.Gatherer
	Logger          logger.Logger
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
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, handler.HeaderUserID},
		MaxAge:       300,
	}))

	// Routes
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	reminders := e.Group("/reminders", handler.RequireCaller)
	reminders.GET("", cfg.ReminderHandler.ListReminders)
	reminders.POST("", cfg.ReminderHandler.CreateReminder)
	reminders.GET("/:id", cfg.ReminderHandler.GetReminder)
	reminders.PATCH("/:id", cfg.ReminderHandler.RetargetReminder)
	reminders.DELETE("/:id", cfg.ReminderHandler.CancelReminder)

	e.POST("/admin/sweep", cfg.ReminderHandler.SweepExpired, handler.RequireCaller, handler.RequireOperator(cfg.OperatorUserIDs))

	// Slack signs interaction requests; the handler verifies them.
	e.POST("/slack/interactions", cfg.SlackHandler.HandleInteraction)

	if cfg.LineHandler != nil {
		e.POST("/line/callback", cfg.LineHandler.HandleWebhook)
	}

	cfg.Logger.Info("Router initialized with routes.")
	return e
}
