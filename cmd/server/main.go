package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/printworks/api/internal/client"
	"github.com/printworks/api/internal/config"
	"github.com/printworks/api/internal/handler"
	"github.com/printworks/api/internal/middleware"
	"github.com/printworks/api/internal/repository"
	"github.com/printworks/api/internal/service"
	"github.com/printworks/api/internal/worker"
	ws "github.com/printworks/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize webhook client (optional - continues if not configured)
	var webhookClient *client.WebhookClient
	if cfg.Webhook.URL != "" {
		webhookClient = client.NewWebhookClient(&cfg.Webhook)
	} else {
		log.Println("Info: webhook receiver not configured, events go to WebSocket only")
	}

	// Initialize repositories
	jobRepo := repository.NewRedisJobRepository(redisClient)
	stageRepo := repository.NewRedisStageRepository(redisClient)

	// Initialize services
	notifier := service.NewAsynqNotifier(asynqClient)
	tracker := service.NewCompletionTracker(jobRepo, stageRepo, notifier)
	workflowService := service.NewWorkflowService(jobRepo, stageRepo, tracker, notifier)

	// Initialize handlers
	productionHandler := handler.NewProductionHandler(workflowService, validate)

	// Initialize middleware
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind Traefik: auth is handled by ForwardAuth, read X-User-* headers
		log.Println("Info: Gateway mode enabled — using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		apiAuthMiddleware = middleware.NewAuthMiddleware(cfg.JWT.Secret).Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		redisOK := redisClient.Ping(c.Context()).Err() == nil
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":   redisOK,
				"webhook": webhookClient != nil,
				"auth":    cfg.JWT.Secret != "" || cfg.Gateway.Enabled,
			},
		})
	})

	// API routes
	api := app.Group("/api", apiAuthMiddleware)

	// Production job routes
	jobs := api.Group("/production/jobs")
	jobs.Post("/", rateLimiter.JobLimit(cfg.RateLimit.JobsPerHour), productionHandler.CreateJob)
	jobs.Get("/:jobId", productionHandler.GetJob)
	jobs.Get("/:jobId/stages", productionHandler.ListStages)
	jobs.Get("/:jobId/queue", productionHandler.Queue)
	jobs.Post("/:jobId/start", rateLimiter.TransitionLimit(cfg.RateLimit.TransitionsPerMin), productionHandler.StartProduction)

	// Stage transition routes
	stages := api.Group("/production/stages", rateLimiter.TransitionLimit(cfg.RateLimit.TransitionsPerMin))
	stages.Post("/:stageId/start", productionHandler.StartStage)
	stages.Post("/:stageId/complete", productionHandler.CompleteStage)
	stages.Post("/:stageId/approve", productionHandler.ApproveStage)
	stages.Post("/:stageId/reject", productionHandler.RejectStage)
	stages.Post("/:stageId/hold", productionHandler.HoldStage)
	stages.Post("/:stageId/resume", productionHandler.ResumeStage)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, jobRepo, stageRepo, hub, webhookClient)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	jobRepo repository.JobRepository,
	stageRepo repository.StageRepository,
	hub *ws.Hub,
	webhookClient *client.WebhookClient,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"notify": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	var sender client.EventSender
	if webhookClient != nil {
		sender = webhookClient
	}
	notifyWorker := worker.NewNotifyWorker(jobRepo, stageRepo, hub, sender)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeStageChanged, notifyWorker.ProcessStageChanged)
	mux.HandleFunc(service.TaskTypeJobCompleted, notifyWorker.ProcessJobCompleted)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
