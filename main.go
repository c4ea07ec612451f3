package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careloop/healthpulse/internal/audit"
	"github.com/careloop/healthpulse/internal/azure"
	"github.com/careloop/healthpulse/internal/config"
	"github.com/careloop/healthpulse/internal/handler"
	"github.com/careloop/healthpulse/internal/middleware"
	"github.com/careloop/healthpulse/internal/pdf"
	"github.com/careloop/healthpulse/internal/repository"
	"github.com/careloop/healthpulse/internal/scheduler"
	"github.com/careloop/healthpulse/internal/security"
	"github.com/careloop/healthpulse/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	logger *zap.Logger
	pool   *pgxpool.Pool
	cfg    *config.Config
)

func main() {
	// Load configuration
	var err error
	cfg, err = config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize Zap logger
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize database connection pool with pgx
	pool, err = pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// Test database connection
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	// Initialize blob storage for report exports
	blobClient, err := azure.NewBlobStorageClient(
		cfg.Storage.AccountName,
		cfg.Storage.AccountKey,
		cfg.Storage.ReportContainer,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize Azure Blob Storage client", zap.Error(err))
	}

	// Initialize encryption for feedback comments
	encryptor, err := security.NewEncryptor([]byte(cfg.Security.EncryptionKey))
	if err != nil {
		logger.Fatal("Failed to initialize encryptor", zap.Error(err))
	}

	// Initialize repositories
	signalRepo := repository.NewSignalRepository(pool, logger)
	scoreRepo := repository.NewHealthScoreRepository(pool, logger)
	alertRepo := repository.NewAlertRepository(pool, logger)
	reportRepo := repository.NewReportRepository(pool, logger)

	// Initialize audit trail
	auditLogger := audit.NewLogger(pool, logger)

	// Initialize services
	scoreService := service.NewHealthScoreService(signalRepo, scoreRepo, logger)
	signalService := service.NewSignalService(signalRepo, scoreService, logger)
	analysisService := service.NewAnalysisService(signalRepo, scoreRepo, alertRepo, auditLogger, logger)
	alertService := service.NewAlertService(alertRepo, encryptor, auditLogger, logger)

	// Initialize PDF generator and report service
	pdfGenerator := pdf.NewPDFGenerator(logger)
	reportService := service.NewReportService(
		analysisService,
		scoreService,
		reportRepo,
		blobClient,
		pdfGenerator,
		auditLogger,
		logger,
	)

	// Initialize handlers
	handlers := &handler.Handlers{
		Signals:  handler.NewSignalHandler(signalService, logger),
		Analysis: handler.NewAnalysisHandler(analysisService, logger),
		Alerts:   handler.NewAlertHandler(alertService, logger),
		Score:    handler.NewScoreHandler(scoreService, logger),
		Reports:  handler.NewReportHandler(reportService, logger),
		Pool:     pool,
		Logger:   logger,
	}

	// Initialize background analysis scheduler
	var analysisScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		analysisScheduler = scheduler.New(analysisService, signalRepo, cfg.Scheduler.Lookback, logger)
		if err := analysisScheduler.Register(cfg.Scheduler.CronSpec); err != nil {
			logger.Fatal("Failed to register analysis scheduler", zap.Error(err))
		}
		analysisScheduler.Start()
	}

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Configure appropriately for production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Patient-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add request ID middleware
	r.Use(middleware.RequestIDMiddleware())

	// Add request logging middleware
	r.Use(middleware.RequestLoggingMiddleware(logger))

	// Add error logging middleware
	r.Use(middleware.ErrorLoggingMiddleware(logger))

	// Register routes
	handlers.Register(r)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the scheduler before the server so no sweep is cut off
	if analysisScheduler != nil {
		analysisScheduler.Stop()
	}

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close database connections
	pool.Close()

	logger.Info("Server exited")
}
