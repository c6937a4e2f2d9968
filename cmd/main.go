package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"classroom-quiz-service/internal/config"
	"classroom-quiz-service/internal/database/mongo"
	"classroom-quiz-service/internal/database/redis"
	"classroom-quiz-service/internal/event"
	"classroom-quiz-service/internal/handlers"
	"classroom-quiz-service/internal/repository"
	"classroom-quiz-service/internal/services"
	"classroom-quiz-service/pkg/discovery"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupLogging(logDir string) (*os.File, error) {
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	cfg := config.ServiceConfig

	logFile, err := setupLogging(cfg.Server.LogDir)
	if err != nil {
		log.Printf("Logging to stderr: %v", err)
	} else {
		defer logFile.Close()
	}

	mongoClient, db, err := mongo.Connect(cfg.MongoDB)
	if err != nil {
		log.Fatalf("Fatal error connecting to MongoDB: %s", err)
	}
	redisClient := redis.NewClient(cfg.Redis)

	// Initialize repositories
	linkRepo := repository.NewModuleQuizRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	stores := services.Stores{
		Questions:   repository.NewQuestionRepository(db),
		Quizzes:     repository.NewQuizRepository(db),
		Links:       linkRepo,
		Modules:     repository.NewModuleRepository(db),
		Groups:      repository.NewGroupRepository(db),
		Submissions: submissionRepo,
	}

	indexCtx, indexCancel := context.WithTimeout(context.Background(), cfg.MongoDB.Timeout)
	if err := linkRepo.EnsureIndexes(indexCtx); err != nil {
		log.Printf("Warning: Failed to create modulequiz indexes: %v", err)
	}
	if err := submissionRepo.EnsureIndexes(indexCtx); err != nil {
		log.Printf("Warning: Failed to create submission indexes: %v", err)
	}
	indexCancel()

	var tx services.Transactor = repository.NoopTransactor{}
	if cfg.Quiz.AuthoringTransactions {
		tx = repository.NewMongoTransactor(mongoClient)
	}
	cache := repository.NewQuizCache(redisClient, cfg.Quiz.CacheTTL)

	// Initialize event publisher
	eventPublisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
		eventPublisher = event.NewDisabledPublisher()
	}

	authoringService := services.NewQuizAuthoringService(stores, tx, cache, eventPublisher)
	quizService := services.NewQuizService(stores, cache, eventPublisher)
	submissionService := services.NewSubmissionService(stores, eventPublisher)

	// Module deletions in the course service drop their quiz links
	eventConsumer, err := event.NewEventConsumer(cfg.RabbitMQ.URI, cfg.RabbitMQ.CourseExchange, cfg.RabbitMQ.QueueName, quizService)
	if err != nil {
		log.Printf("Warning: Failed to initialize event consumer: %v", err)
	} else if err := eventConsumer.Start(); err != nil {
		log.Printf("Warning: Failed to start event consumer: %v", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Quiz Service is healthy")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.NewQuizHandler(authoringService, quizService).RegisterRoutes(app)
	handlers.NewSubmissionHandler(submissionService).RegisterRoutes(app)

	var registry *discovery.ServiceRegistry
	if cfg.Consul.Enabled {
		registry, err = discovery.NewServiceRegistry(cfg.Consul, cfg.Server)
		if err != nil {
			log.Printf("Warning: Service discovery init failed: %v", err)
		} else if err := registry.Register(); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if eventConsumer != nil {
		if err := eventConsumer.Close(); err != nil {
			log.Printf("Error closing event consumer: %v", err)
		}
	}

	if err := eventPublisher.Close(); err != nil {
		log.Printf("Error closing event publisher: %v", err)
	}

	redis.Close(redisClient)
	mongo.Disconnect(mongoClient)

	if registry != nil {
		if err := registry.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	<-doneChan
	log.Println("Server shutdown complete")
}
