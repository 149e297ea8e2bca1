package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solace/internal/config"
	"solace/internal/database"
	"solace/internal/handlers"
	"solace/internal/jobs"
	"solace/internal/logging"
	"solace/internal/middleware"
	"solace/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Solace Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	// MongoDB holds all user records; the server cannot run without it
	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI environment variable is required")
	}
	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())

	if err := mongoDB.Initialize(context.Background()); err != nil {
		log.Fatalf("❌ Failed to initialize MongoDB: %v", err)
	}
	log.Println("✅ MongoDB connected successfully")

	// Redis is optional: without it therapist alerts are log-only
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (therapist alerts will be log-only)", err)
			redisService = nil
		} else {
			defer redisService.Close()
			log.Println("✅ Redis connected successfully")
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - therapist alert publishing disabled")
	}

	// Model provider config, hot-reloaded on file change
	providerConfig, err := services.LoadProviderConfig(cfg.ProviderConfigPath)
	if err != nil {
		log.Printf("⚠️ Failed to load provider config: %v (running in offline mode)", err)
	}
	providerService := services.NewProviderService(providerConfig)
	go providerService.WatchConfig(cfg.ProviderConfigPath)
	if providerService.Available() {
		log.Println("✅ Model provider configured")
	} else {
		log.Println("⚠️ Model provider offline - keyword fallback and template responses only")
	}

	// Optional YAML overrides for the policy word lists
	var crisisPhrases, triggerTopics []string
	if cfg.PolicyConfigPath != "" {
		overrides, err := config.LoadPolicyOverrides(cfg.PolicyConfigPath)
		if err != nil {
			log.Printf("⚠️ Failed to load policy overrides: %v (using built-in lists)", err)
		} else {
			crisisPhrases = overrides.CrisisPhrases
			triggerTopics = overrides.TriggerTopics
			log.Println("✅ Policy word-list overrides loaded")
		}
	}

	metrics := services.InitMetrics()

	// Core services
	recordStore := services.NewRecordStore(mongoDB)
	aggregator := services.NewContextAggregator(recordStore, metrics)
	retrievalService := services.NewRetrievalService(providerService, recordStore, metrics)
	notifier := services.NewNotifier(redisService)
	policyService := services.NewCrisisPolicyService(
		recordStore,
		notifier,
		services.NewKeywordCrisisDetector(crisisPhrases),
		triggerTopics,
		metrics,
	)
	companionService := services.NewCompanionService(
		aggregator,
		retrievalService,
		policyService,
		providerService,
		recordStore,
		metrics,
		services.RetrievalTuning{
			MatchCount:          cfg.MatchCount,
			SimilarityThreshold: cfg.SimilarityThreshold,
		},
	)

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.SummaryRefreshEnabled {
		scheduler, err = jobs.NewScheduler()
		if err != nil {
			log.Fatalf("❌ Failed to create scheduler: %v", err)
		}
		refreshJob := jobs.NewSummaryRefreshJob(recordStore, aggregator, providerService)
		if err := scheduler.Register(cfg.SummaryRefreshCron, refreshJob); err != nil {
			log.Fatalf("❌ Failed to register summary refresh job: %v", err)
		}
		scheduler.Start()
	} else {
		log.Println("⚠️ Summary refresh job disabled")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Solace v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second, // companion queries can take a while on local models
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("solace")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// CORS configuration with environment-based origins
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))

	// Rate limiting: global per-IP plus a tighter per-user companion limit
	rateLimitConfig := middleware.DefaultRateLimitConfig(cfg.CompanionRateMax)
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	log.Printf("🛡️  [RATE-LIMIT] Global=%d/min, Companion=%d/min", rateLimitConfig.GlobalAPIMax, rateLimitConfig.CompanionMax)

	// Handlers
	healthHandler := handlers.NewHealthHandler(mongoDB, redisService)
	companionHandler := handlers.NewCompanionHandler(companionService)
	contextHandler := handlers.NewContextHandler(aggregator)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Post("/companion/query", middleware.CompanionRateLimiter(rateLimitConfig), companionHandler.Query)
	api.Get("/users/:id/context", contextHandler.GetSignals)

	log.Printf("🌐 Server starting on port %s", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if scheduler != nil {
			scheduler.Stop()
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
