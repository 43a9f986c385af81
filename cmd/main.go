package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/davrbek/coursehub-backend/internal/db"
	"github.com/davrbek/coursehub-backend/internal/handlers"
	"github.com/davrbek/coursehub-backend/internal/middleware"
	"github.com/davrbek/coursehub-backend/internal/observability"
	"github.com/davrbek/coursehub-backend/internal/platform/cache"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/repos"
	"github.com/davrbek/coursehub-backend/internal/server"
	"github.com/davrbek/coursehub-backend/internal/services"
	"github.com/davrbek/coursehub-backend/internal/utils"
	"github.com/davrbek/coursehub-backend/internal/ws"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing (no-op unless OTEL_ENABLED is set)
	if shutdown := observability.InitTracing(context.Background(), log, "coursehub-backend"); shutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Warn("Otel shutdown failed", "error", err)
			}
		}()
	}

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	oidcDiscoveryURL := utils.GetEnv("OIDC_DISCOVERY_URL", "", log)
	oidcAudience := utils.GetEnv("OIDC_AUDIENCE", "", log)
	oidcIssuers := utils.GetEnv("OIDC_ISSUERS", "", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	if err = postgresService.SeedRoles(); err != nil {
		log.Warn("Role seeding failed", "error", err)
	}
	if err = postgresService.SeedAdminUser(); err != nil {
		log.Warn("Admin user seeding failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis
	purchaseCache, err := cache.NewPurchaseCache(log)
	if err != nil {
		log.Warn("Purchase cache init failed, continuing without it", "error", err)
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	courseRepo := repos.NewCourseRepo(thePG, log)
	lessonRepo := repos.NewLessonRepo(thePG, log)
	purchaseRepo := repos.NewPurchaseRepo(thePG, log)
	messageRepo := repos.NewLessonMessageRepo(thePG, log)
	notificationRepo := repos.NewNotificationRepo(thePG, log)
	chatRepo := repos.NewPrivateChatRepo(thePG, log)
	assignmentRepo := repos.NewAssignmentRepo(thePG, log)
	ratingRepo := repos.NewRatingRepo(thePG, log)

	// Hubs
	log.Info("Setting up push hubs now...")
	assignmentHub := ws.NewHub("assignments", log)
	threadHub := ws.NewHub("threads", log)
	chatHub := ws.NewHub("chats", log)

	// Auth
	verifiers := []services.TokenVerifier{
		services.NewLocalTokenVerifier(log, userRepo, jwtSecretKey),
	}
	if oidcDiscoveryURL != "" {
		oidcVerifier, err := services.NewOIDCTokenVerifier(log, userRepo, nil, oidcDiscoveryURL, oidcAudience, strings.Split(oidcIssuers, ","))
		if err != nil {
			log.Warn("OIDC verifier init failed, continuing with local tokens only", "error", err)
		} else {
			verifiers = append(verifiers, oidcVerifier)
		}
	}
	authService := services.NewAuthService(log, verifiers...)

	// Services
	log.Info("Setting up Services from main...")
	accessService := services.NewAccessService(thePG, log, purchaseRepo, purchaseCache)
	storage, err := services.NewLocalAttachmentStorage(log)
	if err != nil {
		log.Error("Could not init AttachmentStorage", "error", err)
		os.Exit(1)
	}
	notificationService := services.NewNotificationService(log, userRepo, notificationRepo)
	messageService := services.NewMessageService(thePG, log, lessonRepo, messageRepo, accessService, notificationService)
	chatService := services.NewChatService(thePG, log, userRepo, lessonRepo, chatRepo, accessService, chatHub, threadHub)
	assignmentService := services.NewAssignmentService(thePG, log, lessonRepo, assignmentRepo, accessService, assignmentHub)
	courseService := services.NewCourseService(log, courseRepo, accessService)
	lessonService := services.NewLessonService(log, lessonRepo, messageRepo, accessService)
	ratingService := services.NewRatingService(log, courseRepo, ratingRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	healthcheckHandler := handlers.NewHealthcheckHandler()
	courseHandler := handlers.NewCourseHandler(log, courseService)
	lessonHandler := handlers.NewLessonHandler(log, lessonService)
	messageHandler := handlers.NewMessageHandler(log, messageService, storage)
	chatHandler := handlers.NewChatHandler(log, chatService)
	assignmentHandler := handlers.NewAssignmentHandler(log, assignmentService)
	notificationHandler := handlers.NewNotificationHandler(log, notificationService)
	ratingHandler := handlers.NewRatingHandler(log, ratingService)
	wsHandler := handlers.NewWSHandler(log, authService, accessService, chatService, lessonRepo, assignmentHub, threadHub, chatHub)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		Log:                 log,
		HealthcheckHandler:  healthcheckHandler,
		CourseHandler:       courseHandler,
		LessonHandler:       lessonHandler,
		MessageHandler:      messageHandler,
		ChatHandler:         chatHandler,
		AssignmentHandler:   assignmentHandler,
		NotificationHandler: notificationHandler,
		RatingHandler:       ratingHandler,
		WSHandler:           wsHandler,
		OptionalAuth:        middleware.OptionalAuth(log, authService),
		RequireAuth:         middleware.RequireAuth(log, authService),
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
