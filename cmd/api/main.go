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
	appService "remindme/internal/application/service"
	"remindme/internal/config"
	"remindme/internal/domain/gateway"

	// Infrastructure Layer
	"remindme/internal/infrastructure/database/sqlite"
	lineClient "remindme/internal/infrastructure/line"
	"remindme/internal/infrastructure/scheduler"
	slackClient "remindme/internal/infrastructure/slack"

	// Interfaces Layer
	"remindme/internal/interfaces/api/handler"
	"remindme/internal/interfaces/api/router"

	// Packages
	appLogger "remindme/internal/pkg/logger"
	"remindme/internal/pkg/metrics"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

func gracefulShutdown(apiServer *http.Server, schedulerService appService.SchedulerService, db *gorm.DB, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	// Drain requests before the scheduler and store go away
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Stopping scheduler...")
	schedulerService.Stop()
	log.Println("Scheduler stopped.")

	log.Println("Closing database connection...")
	if err := sqlite.CloseDB(db); err != nil {
		log.Printf("Error closing database: %v", err)
	} else {
		log.Println("Database connection closed.")
	}

	log.Println("Server exiting")

	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// --- Initialization ---
	appLog := appLogger.New(cfg.LogLevel)
	appLog.Info("Logger initialized.")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New("remindme")
	if err := appMetrics.Register(registry); err != nil {
		appLog.Error("Failed to register metrics", err)
		os.Exit(1)
	}

	// --- Infrastructure ---
	db, err := sqlite.Open(cfg.DBURL, cfg.DBLogLevel)
	if err != nil {
		appLog.Error(fmt.Sprintf("Failed to open database %s", cfg.DBURL), err)
		os.Exit(1)
	}
	reminderRepo := sqlite.NewReminderRepository(db)
	appLog.Info("Database and repositories initialized.")

	slack, err := slackClient.NewClient(cfg.Slack.OAuthToken, cfg.Slack.CallTimeout, appLog)
	if err != nil {
		appLog.Error("Failed to create Slack client", err)
		os.Exit(1)
	}

	var notifier gateway.OperatorNotifier = gateway.NopNotifier{}
	var line *lineClient.Client
	if cfg.Line.Enabled() {
		line, err = lineClient.NewClient(cfg.Line.ChannelSecret, cfg.Line.ChannelAccessToken, cfg.Line.OperatorUserID, appLog)
		if err != nil {
			appLog.Error("Failed to create LINE Bot client", err)
			os.Exit(1)
		}
		notifier = line
	} else {
		appLog.Warn("LINE is not configured. Operator alerts will only be logged.")
	}

	cronScheduler := scheduler.NewScheduler(appLog)

	// --- Application Services ---
	reminderSvc := appService.NewReminderService(reminderRepo, slack, slack, appLog,
		appService.WithNotifier(notifier),
		appService.WithMetrics(appMetrics),
	)
	schedulerSvc := appService.NewSchedulerService(cronScheduler, reminderSvc, cfg.SweepSchedule, appLog)
	appLog.Info("Application services initialized.")

	// --- Initialize Schedules ---
	appLog.Info("Initializing sweep schedule...")
	if err := schedulerSvc.InitializeSchedules(context.Background()); err != nil {
		// Log the error but continue starting the server
		appLog.Error("Failed to initialize schedules on startup", err)
	} else {
		appLog.Info("Sweep schedule initialized.")
	}

	// --- API Handlers ---
	routerCfg := &router.Config{
		ReminderHandler: handler.NewReminderHandler(reminderSvc, appLog),
		SlackHandler:    handler.NewSlackHandler(slack, reminderSvc, cfg.Slack.SigningSecret, appLog),
		OperatorUserIDs: cfg.OperatorUserIDs,
		Gatherer:        registry,
		Logger:          appLog,
	}
	if line != nil {
		routerCfg.LineHandler = handler.NewLineHandler(line, reminderSvc, appLog)
	}
	appLog.Info("API handlers initialized.")

	if len(cfg.OperatorUserIDs) == 0 {
		appLog.Warn("OPERATOR_USER_IDS is empty. POST /admin/sweep will reject every caller.")
	}
	echoRouter := router.NewRouter(routerCfg)

	// --- HTTP Server ---
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      echoRouter,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// --- Start Server & Shutdown Handling ---
	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, schedulerSvc, db, done)

	appLog.Info(fmt.Sprintf("Server starting on port %d", cfg.Port))
	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		appLog.Error("HTTP server ListenAndServe error", err)
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for graceful shutdown signal
	<-done
	appLog.Info("Graceful shutdown complete.")
}
