package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/config"
	deliveryHttp "github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/delivery/http"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/delivery/http/handler"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/delivery/telegram"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/infrastructure/calendar"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/infrastructure/database"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/infrastructure/database/migration"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/repository"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/scheduler"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/service"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/usecase"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Server    *http.Server
	Bot       *telegram.Bot
	Scheduler *scheduler.Scheduler
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	setupLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	logrus.Info("Configuration loaded successfully")

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.App.Timezone, err)
	}

	db, err := database.NewSQLiteConnection(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	app.DB = db

	if err := applyMigrations(db); err != nil {
		return nil, err
	}
	logrus.Info("Store migrations applied")

	log := logrus.StandardLogger()

	// Repositories
	bookingRepo := repository.NewBookingRepository()
	historyRepo := repository.NewBookingHistoryRepository()
	tokenRepo := repository.NewAuthTokenRepository()

	// Infrastructure and services
	calendarClient := calendar.NewClient(cfg.Google, log)
	bookingStore := service.NewBookingStore(db, log, bookingRepo, historyRepo)
	tokenService := service.NewTokenService(db, log, tokenRepo, calendarClient)
	backupService := service.NewBackupService(db, log, cfg.Backup.Dir)
	slotService := service.NewSlotService(cfg.Booking.WorkingHours, cfg.Booking.RestDay, loc)

	// The bot doubles as the operator notifier; it is created first
	// without the usecase, then handed one, to break the cycle.
	bot, err := telegram.NewBot(cfg.Telegram.BotToken, log, nil, cfg.Telegram.AdminChatID)
	if err != nil {
		return nil, err
	}

	bookingUsecase := usecase.NewBookingUsecase(
		log,
		bookingStore,
		slotService,
		tokenService,
		calendarClient,
		bot,
		cfg.Google.CalendarID,
		cfg.App.Timezone,
		loc,
		cfg.Booking.SessionDuration,
		cfg.Booking.LookaheadDays,
	)
	bot.SetBookingUsecase(bookingUsecase)
	app.Bot = bot

	app.Scheduler = scheduler.New(
		log,
		bookingStore,
		backupService,
		db,
		cfg.DB.Path,
		cfg.Backup.AutoBackup,
		cfg.Backup.Interval,
		time.Duration(cfg.Backup.RetentionDays)*24*time.Hour,
		cfg.App.HealthInterval,
	)

	// HTTP surface: status page + calendar authorization flow
	authHandler := handler.NewAuthHandler(tokenService, calendarClient)
	statusHandler := handler.NewStatusHandler(bookingUsecase, tokenService, cfg.App.Env)
	router := deliveryHttp.NewRouter(authHandler, statusHandler)

	app.Server = &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.App.Port),
		Handler: router.Setup(),
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
}

func applyMigrations(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	engine, err := migration.NewEngine(sqlDB, logrus.StandardLogger(), migration.Registry())
	if err != nil {
		return err
	}
	return engine.Apply(context.Background())
}

// Run starts the scheduler, the bot and the HTTP server, then blocks until
// shutdown.
func (app *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.Scheduler.Start(ctx)

	go app.Bot.Run(ctx)

	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	app.waitForShutdown(cancel)
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown(cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")

	// Stop the bot and the background timers
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	app.Close()

	logrus.Info("Shutdown complete")
}

// Close closes all connections
func (app *App) Close() {
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
