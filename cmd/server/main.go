package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"

	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/database"
	"github.com/taskpilot/taskpilot/internal/handlers"
	"github.com/taskpilot/taskpilot/internal/logging"
	"github.com/taskpilot/taskpilot/internal/middleware"
	"github.com/taskpilot/taskpilot/internal/services"
	"github.com/taskpilot/taskpilot/internal/store"

	_ "github.com/taskpilot/taskpilot/docs/api" // Swagger docs
)

// @title TaskPilot API
// @version 1.0.0
// @description Project management service with users, projects, tickets, comments, and an assistant pass-through
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/taskpilot/taskpilot

// @host localhost:8080
// @BasePath /api
// @schemes http https

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg)

	// Connect to database
	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	documents := store.New(db)

	// Entity services share the document store
	userService := &services.UserService{
		Store:  documents,
		Hasher: services.NewPasswordHasher(cfg.BcryptCost),
		Log:    logger,
	}
	projectService := &services.ProjectService{Store: documents, Log: logger}
	ticketService := &services.TicketService{Store: documents, Log: logger}
	commentService := &services.CommentService{Store: documents, Log: logger}
	chatService := services.NewChatService(cfg, logger)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logging.RequestLogger(logger))
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("taskpilot")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health endpoint
	healthHandler := &handlers.HealthHandler{Cfg: cfg, DB: db, Log: logger}
	app.Get("/health", healthHandler.Health)

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.Version())

	// Mount the API route table
	h := &handlers.Handlers{
		Users:    &handlers.UserHandler{Users: userService},
		Projects: &handlers.ProjectHandler{Projects: projectService, Tickets: ticketService},
		Tickets:  &handlers.TicketHandler{Tickets: ticketService, Comments: commentService},
		Comments: &handlers.CommentHandler{Comments: commentService},
		Chat:     &handlers.ChatHandler{Chat: chatService},
	}
	h.Register(api)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Resource not found",
			"code":    fiber.StatusNotFound,
			"result":  false,
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("gracefully shutting down")
		_ = app.Shutdown()
	}()

	logger.Info("starting server", "port", cfg.Port, "database", cfg.DBType)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// customErrorHandler shapes errors raised outside the handlers, such as
// routing failures, into the standard response envelope.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"message": message,
		"code":    code,
		"result":  false,
	})
}
