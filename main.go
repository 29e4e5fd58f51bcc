// Package main provides the main entry point for the Hermes greeting agent
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hermes-crm/hermes/app/handlers"
	"github.com/hermes-crm/hermes/app/middleware"
	"github.com/hermes-crm/hermes/app/router"
	"github.com/hermes-crm/hermes/app/scheduler"
	"github.com/hermes-crm/hermes/app/services"
	businessflow "github.com/hermes-crm/hermes/business_flow"
	"github.com/hermes-crm/hermes/config"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/repository"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.Config
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Hermes greeting agent...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := initializeLogger(cfg.Logging)

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	logger.Println("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Printf("Error during shutdown: %v", err)
	}

	logger.Println("Server stopped")
}

// initializeLogger builds the application logger. File output rotates via
// lumberjack so long-lived installations do not fill the disk.
func initializeLogger(cfg config.Logging) *log.Logger {
	var writers []io.Writer

	switch cfg.Output {
	case "file":
		writers = append(writers, rotatingWriter(cfg))
	case "both":
		writers = append(writers, os.Stdout, rotatingWriter(cfg))
	default:
		writers = append(writers, os.Stdout)
	}

	return log.New(io.MultiWriter(writers...), "", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

func rotatingWriter(cfg config.Logging) io.Writer {
	path := cfg.FilePath
	if path == "" {
		path = "data/hermes.log"
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.Database) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// runMigrations creates or updates the schema for all domain tables
func runMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Client{},
		&models.Holiday{},
		&models.Event{},
		&models.Greeting{},
		&models.Delivery{},
		&models.AgentRun{},
		&models.Feedback{},
	)
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.Cache) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// initializeContentService wires the template generator, with the LLM layered
// on top when enabled. The template path always remains the fallback.
func initializeContentService(cfg *config.Config, logger *log.Logger) services.ContentService {
	templates := services.NewTemplateContentService()
	if !cfg.LLM.Enabled {
		return templates
	}
	return services.NewLLMContentService(cfg.LLM, templates, logger)
}

// initializeSenders builds the channel registry. The file sender is always
// registered because the safety gate can redirect email to it.
func initializeSenders(cfg *config.Config) *services.SenderRegistry {
	return services.NewSenderRegistry(
		services.NewFileSender(cfg.Delivery.OutboxDir),
		services.NewSMTPSender(cfg.SMTP),
		services.NewNoopSender(),
	)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.Config, logger *log.Logger) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		// A broken cache only weakens the duplicate-send lock, the DB
		// unique index still holds. Run without it.
		logger.Printf("Cache unavailable, continuing without send locks: %v", err)
		rc = nil
	}

	// Repositories
	clientRepo := repository.NewClientRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	eventRepo := repository.NewEventRepository(db)
	greetingRepo := repository.NewGreetingRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	agentRunRepo := repository.NewAgentRunRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	// Services
	tokenService, err := services.NewTokenService(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	contentService := initializeContentService(cfg, logger)
	cardService := services.NewCardService(cfg.Image)
	senders := initializeSenders(cfg)

	// Flows
	deliveryFlow := businessflow.NewDeliveryFlow(
		deliveryRepo,
		senders,
		cfg.Delivery,
		cfg.SMTP,
		rc,
		cfg.Cache.RedisPrefix,
		logger,
	)
	materializeFlow := businessflow.NewMaterializeFlow(
		clientRepo,
		holidayRepo,
		eventRepo,
		cfg.Agent,
		logger,
	)
	dueFlow := businessflow.NewDueFlow(greetingRepo, deliveryFlow, logger)
	agentFlow := businessflow.NewAgentFlow(
		materializeFlow,
		dueFlow,
		eventRepo,
		greetingRepo,
		clientRepo,
		agentRunRepo,
		contentService,
		cardService,
		cfg.Agent,
		cfg.LLM,
		cfg.Image,
		logger,
	)
	approvalFlow := businessflow.NewApprovalFlow(greetingRepo, eventRepo, clientRepo, deliveryFlow, logger)
	loginFlow := businessflow.NewLoginFlow(cfg.Admin, tokenService, logger)
	clientFlow := businessflow.NewClientFlow(clientRepo, logger)
	eventFlow := businessflow.NewEventFlow(eventRepo, clientRepo, logger)
	feedbackFlow := businessflow.NewFeedbackFlow(feedbackRepo, greetingRepo, logger)
	resetFlow := businessflow.NewResetFlow(db, cfg.Delivery, cfg.Image, logger)

	// Handlers
	routerHandlers := router.Handlers{
		Auth:     handlers.NewAuthHandler(loginFlow),
		Client:   handlers.NewClientHandler(clientFlow),
		Event:    handlers.NewEventHandler(eventFlow),
		Greeting: handlers.NewGreetingHandler(approvalFlow),
		Delivery: handlers.NewDeliveryHandler(deliveryFlow),
		Agent:    handlers.NewAgentHandler(agentFlow),
		Feedback: handlers.NewFeedbackHandler(feedbackFlow),
		Admin:    handlers.NewAdminHandler(resetFlow),
	}

	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	appRouter := router.NewFiberRouter(routerHandlers, authMiddleware, cfg)

	if cfg.Agent.Enabled {
		sched := scheduler.NewAgentScheduler(agentFlow, cfg.Agent)
		stopScheduler := sched.Start(context.Background())
		stopFuncs = append(stopFuncs, stopScheduler)
	}

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
