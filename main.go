// Package main provides the main entry point for the Casaflow backoffice API
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

	"github.com/casaflow/casaflow/app/handlers"
	"github.com/casaflow/casaflow/app/middleware"
	"github.com/casaflow/casaflow/app/router"
	"github.com/casaflow/casaflow/app/services"
	businessflow "github.com/casaflow/casaflow/business_flow"
	"github.com/casaflow/casaflow/config"
	"github.com/casaflow/casaflow/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Casaflow application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging routes the standard logger to stdout, a rotated file, or both
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output == "stdout" || cfg.Output == "" {
		return
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	switch cfg.Output {
	case "file":
		log.SetOutput(fileWriter)
	case "both":
		log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeImageService selects the image provider. Placeholder rendering
// must be requested explicitly; a missing Gemini key never degrades silently.
func initializeImageService(cfg config.AIConfig) (services.ImageGenService, error) {
	if cfg.ImagePlaceholderEnabled {
		log.Println("Image generation running with local placeholder renderer")
		return services.NewPlaceholderImageService(0, 0), nil
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("no image provider configured: set AI_GEMINI_API_KEY or enable AI_IMAGE_PLACEHOLDER_ENABLED")
	}
	return services.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiImageModel, cfg.GeminiTimeout), nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	memberRepo := repository.NewTenantMemberRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	interactionRepo := repository.NewLeadInteractionRepository(db)
	followUpRepo := repository.NewLeadFollowUpRepository(db)
	ledgerRepo := repository.NewAIRequestRepository(db)
	calendarRepo := repository.NewContentCalendarRepository(db)
	itemRepo := repository.NewContentItemRepository(db)
	variantRepo := repository.NewContentVariantRepository(db)
	campaignRepo := repository.NewAdsCampaignRepository(db)
	metricRepo := repository.NewAdsMetricRepository(db)
	insightRepo := repository.NewAdsInsightRepository(db)

	// Initialize services
	llmService := services.NewClaudeClient(cfg.AI.ClaudeBaseURL, cfg.AI.ClaudeAPIKey, cfg.AI.ClaudeModel, cfg.AI.ClaudeTimeout)

	imageService, err := initializeImageService(cfg.AI)
	if err != nil {
		return nil, err
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer storageCancel()
	storageService, err := services.NewMinIOStorageService(
		storageCtx,
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.Bucket,
		cfg.Storage.PublicURL,
		cfg.Storage.UseSSL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}

	// Captcha service for the public lead form
	captchaSvc, err := services.NewCaptchaServiceRotate(2*time.Minute, 15, 300)
	if err != nil {
		return nil, err
	}

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Log that services are initialized
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	loginFlow := businessflow.NewLoginFlow(
		userRepo,
		tenantRepo,
		memberRepo,
		auditRepo,
		tokenService,
		db,
	)

	leadFlow := businessflow.NewLeadFlow(
		leadRepo,
		interactionRepo,
		followUpRepo,
		tenantRepo,
		memberRepo,
		auditRepo,
		captchaSvc,
		db,
	)

	qualificationFlow := businessflow.NewLeadQualificationFlow(
		leadRepo,
		interactionRepo,
		followUpRepo,
		ledgerRepo,
		tenantRepo,
		memberRepo,
		auditRepo,
		llmService,
		db,
	)

	contentFlow := businessflow.NewContentFlow(
		calendarRepo,
		itemRepo,
		variantRepo,
		ledgerRepo,
		tenantRepo,
		memberRepo,
		auditRepo,
		llmService,
		db,
	)

	imageFlow := businessflow.NewImageFlow(
		itemRepo,
		ledgerRepo,
		tenantRepo,
		memberRepo,
		auditRepo,
		llmService,
		imageService,
		storageService,
		db,
	)

	campaignFlow := businessflow.NewCampaignFlow(
		campaignRepo,
		metricRepo,
		insightRepo,
		ledgerRepo,
		tenantRepo,
		memberRepo,
		auditRepo,
		llmService,
		rc,
		db,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(loginFlow)
	leadHandler := handlers.NewLeadHandler(leadFlow, captchaSvc)
	campaignHandler := handlers.NewCampaignHandler(campaignFlow)
	aiHandler := handlers.NewAIHandler(qualificationFlow, contentFlow, imageFlow, campaignFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		authHandler,
		leadHandler,
		campaignHandler,
		aiHandler,
		authMiddleware,
	)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
