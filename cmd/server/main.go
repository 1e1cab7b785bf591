package main

import (
	"context"
	"log"
	"os"
	"os/signal"
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

	"github.com/myadbox/thumbnailer/internal/client"
	"github.com/myadbox/thumbnailer/internal/config"
	"github.com/myadbox/thumbnailer/internal/handler"
	"github.com/myadbox/thumbnailer/internal/imaging"
	"github.com/myadbox/thumbnailer/internal/middleware"
	"github.com/myadbox/thumbnailer/internal/pipeline"
	"github.com/myadbox/thumbnailer/internal/service"
	"github.com/myadbox/thumbnailer/internal/worker"
	ws "github.com/myadbox/thumbnailer/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Clear out leftovers from a previous run
	if err := pipeline.CleanTempRoot(cfg.Imaging.TempDir); err != nil {
		log.Printf("Warning: failed to clean temp dir: %v", err)
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

	// Initialize AWS clients
	s3Client, err := client.NewS3Client(&cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to initialize S3 client: %v", err)
	}
	sqsClient, err := client.NewSQSClient(&cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to initialize SQS client: %v", err)
	}

	// Initialize conversion pipeline
	magickClient := client.NewMagickClient(&cfg.Imaging, &client.ExecRunner{})
	catalog := imaging.DefaultCatalog()
	previewPipeline := pipeline.New(s3Client, sqsClient, magickClient, catalog, &cfg.Imaging)

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize services
	previewService := service.NewPreviewService(redisClient, asynqClient)

	// Initialize handlers
	previewHandler := handler.NewPreviewHandler(previewService, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	previews := api.Group("/previews")
	previews.Post("/", rateLimiter.PreviewLimit(cfg.RateLimit.PreviewsPerMin), previewHandler.Start)
	previews.Get("/status/:jobId", previewHandler.Status)
	previews.Get("/result/:jobId", previewHandler.Result)
	previews.Post("/cancel/:jobId", previewHandler.Cancel)

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
	go startWorkerServer(cfg, previewService, previewPipeline, hub)

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

func startWorkerServer(cfg *config.Config, previewService *service.PreviewService, p *pipeline.Pipeline, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				service.QueuePreviews: 10,
			},
		},
	)

	previewWorker := worker.NewPreviewWorker(previewService, p, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypePreview, previewWorker.ProcessTask)

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
