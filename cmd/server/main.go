package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/feedqueue-api/configs"
	"github.com/maheshrc27/feedqueue-api/internal/api/handlers"
	"github.com/maheshrc27/feedqueue-api/internal/api/middleware"
	"github.com/maheshrc27/feedqueue-api/internal/codec"
	"github.com/maheshrc27/feedqueue-api/internal/etag"
	job "github.com/maheshrc27/feedqueue-api/internal/jobs"
	"github.com/maheshrc27/feedqueue-api/internal/queue"
	"github.com/maheshrc27/feedqueue-api/internal/repository"
	"github.com/maheshrc27/feedqueue-api/internal/service"
	"github.com/maheshrc27/feedqueue-api/internal/validation"
	"github.com/maheshrc27/feedqueue-api/pkg/utils"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	if cfg.SecretKey == "" {
		log.Fatal("SECRET_KEY must be set")
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	store, err := service.NewR2Store(context.Background(), cfg.R2)
	if err != nil {
		log.Fatalf("Failed to configure object storage: %v", err)
	}

	validator, err := validation.NewValidator()
	if err != nil {
		log.Fatalf("Failed to compile response schemas: %v", err)
	}
	jsonCodec := codec.New()

	audit := service.NewAppLogService(slog.Default())

	app := fiber.New(handlers.NewFiberConfig(jsonCodec, audit))

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match, " + middleware.ApiKeyHeader + ", " + middleware.ApiSecretHeader,
		ExposeHeaders:    "ETag",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	postRepo := repository.NewStagingPostRepository(db)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepo, utils.SealingKey(cfg.SecretKey))
	queueService := service.NewQueueDefinitionService(queueRepo, postRepo)
	postService := service.NewStagingPostService(postRepo)
	publisher := service.NewPostPublisher(queueService, postService, store, cfg.FeedBaseURL)

	collaborators := &handlers.Collaborators{
		Queues:     queueService,
		Posts:      postService,
		Publisher:  publisher,
		ETagger:    etag.New(),
		Validator:  validator,
		Codec:      jsonCodec,
		Negotiator: handlers.NewNegotiator(jsonCodec),
		Audit:      audit,
	}

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	handlers.RegisterRoutes(app, handlers.Handlers{
		Auth:   handlers.NewAuthHandler(*cfg, authService),
		User:   handlers.NewUserHandler(userService),
		Keys:   handlers.NewApiKeyHandler(apiKeyService, audit),
		Queues: handlers.NewQueueHandler(collaborators),
		Posts:  handlers.NewPostHandler(collaborators),
	}, authMiddleware.AuthMiddleware(), middleware.Transaction(db))

	// cron jobs
	expirationJob := job.NewExpirationJob(postService, client)

	// queue
	deployWorker := queue.NewQueue(postService, queueService, publisher)

	c := cron.New()
	if err := c.AddFunc(cfg.ExpirationSchedule, expirationJob.ExpirePosts); err != nil {
		log.Fatalf("Invalid EXPIRATION_SCHEDULE %q: %v", cfg.ExpirationSchedule, err)
	}
	c.Start()
	defer c.Stop()

	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
	})
	go func() {
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeDeployQueue, deployWorker.HandleDeployQueueTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, server)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}
	server.Shutdown()

	log.Println("Server shutdown complete.")
}
