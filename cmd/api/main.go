package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"swapmart/internal/adapter/api"
	"swapmart/internal/adapter/api/handler"
	apimiddleware "swapmart/internal/adapter/api/middleware"
	"swapmart/internal/adapter/api/router"
	"swapmart/internal/adapter/repository"
	"swapmart/internal/domain/entity"
	"swapmart/internal/infrastructure/firebase"
	"swapmart/internal/infrastructure/livefeed"
	"swapmart/internal/infrastructure/websocket"
	"swapmart/internal/usecase"
	"swapmart/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption

	// Service account from the environment in production, file path for local
	// development, ambient credentials otherwise.
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
		if _, err := os.Stat(serviceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", serviceAccountPath)
		}
		opts = append(opts, option.WithCredentialsFile(serviceAccountPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	fbAuth, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}
	authClient := firebase.NewAuthClient(fbAuth)

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	conversationRepo := repository.NewFirestoreConversationRepository(firestoreClient)
	notificationRepo := repository.NewFirestoreNotificationRepository(firestoreClient)
	userRepo := repository.NewFirestoreUserRepository(firestoreClient)

	feed := livefeed.NewPublisher(
		func(ctx context.Context, conversationID string) ([]*entity.Message, error) {
			return conversationRepo.ListMessages(ctx, conversationID, cfg.MessagePageSize)
		},
		func(ctx context.Context, userID string) ([]*entity.Notification, error) {
			notifications, _, err := notificationRepo.ListByUserID(ctx, userID, cfg.MessagePageSize, 0)
			return notifications, err
		},
	)

	notificationUseCase := usecase.NewNotificationUseCase(notificationRepo, userRepo, feed)
	conversationUseCase := usecase.NewConversationUseCase(conversationRepo, userRepo, feed)
	messageUseCase := usecase.NewMessageUseCase(conversationRepo, notificationUseCase, feed)

	wsManager := websocket.NewManager(messageUseCase.Subscribe, notificationUseCase.Subscribe)
	wsManager.Start(ctx)

	notificationUseCase.StartCleanupJob(ctx, cfg.NotificationCleanupInterval)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)

	conversationHandler := handler.NewConversationHandler(conversationUseCase, messageUseCase)
	notificationHandler := handler.NewNotificationHandler(notificationUseCase)
	wsHandler := handler.NewWebSocketHandler(wsManager, authClient)

	router.SetupHealthRouter(e)
	router.SetupConversationRouter(e, conversationHandler, authMiddleware)
	router.SetupNotificationRouter(e, notificationHandler, authMiddleware)
	router.SetupWebSocketRouter(e, wsHandler)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
