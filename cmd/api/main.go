package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/wecan-app/wecan-api/internal/config"
	"github.com/wecan-app/wecan-api/internal/database"
	"github.com/wecan-app/wecan-api/internal/handler"
	"github.com/wecan-app/wecan-api/internal/middleware"
	"github.com/wecan-app/wecan-api/internal/models"
	"github.com/wecan-app/wecan-api/internal/repository"
	"github.com/wecan-app/wecan-api/internal/router"
	"github.com/wecan-app/wecan-api/internal/service"
	"github.com/wecan-app/wecan-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserBlock{},
		&models.ViolationRecord{},
		&models.ChatMessage{},
		&models.Report{},
		&models.ModerationLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	if cfg.AIProvider != "openai" {
		log.Fatalf("unsupported ai provider: %q", cfg.AIProvider)
	}
	assistant, err := ai.NewOpenAIAssistant(ai.OpenAIConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("failed to create ai assistant: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewModerationLogRepository(db)

	roomService := service.NewRoomService(userRepo)
	authService := service.NewAuthService(userRepo, validate, cfg.JWTSecret, cfg.TokenTTL, logger)
	chatService := service.NewChatService(messageRepo, userRepo, roomService, redisClient, cfg.ChannelBase, natsConn, validate, logger)
	userService := service.NewUserService(userRepo, validate, logger)
	reportService := service.NewReportService(reportRepo, userRepo, auditRepo, redisClient, cfg.ChannelBase, validate, logger)
	moderationService := service.NewModerationService(userRepo, auditRepo, validate, logger)
	assistantService := service.NewAssistantService(assistant, validate, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	chatHandler := handler.NewChatHandler(chatService, logger)
	userHandler := handler.NewUserHandler(userService, logger)
	reportHandler := handler.NewReportHandler(reportService, logger)
	assistantHandler := handler.NewAssistantHandler(assistantService, logger)
	adminHandler := handler.NewAdminHandler(moderationService, reportService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:      authHandler,
		ChatHandler:      chatHandler,
		UserHandler:      userHandler,
		ReportHandler:    reportHandler,
		AssistantHandler: assistantHandler,
		AdminHandler:     adminHandler,
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
	})

	serviceCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()
	chatService.Start(serviceCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
