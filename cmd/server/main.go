package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nexaneuron-backend-go/internal/api"
	"nexaneuron-backend-go/internal/config"
	"nexaneuron-backend-go/internal/core"
	"nexaneuron-backend-go/internal/db"
	"nexaneuron-backend-go/internal/gateway"
	"nexaneuron-backend-go/internal/middleware"
)

func main() {
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded successfully.")

	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	if err := db.InitFirebase(initCtx, appConfig); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize the Firebase Admin SDK", zap.Error(err))
	}

	firestoreClient := db.GetFirestoreClient()
	firebaseAuthClient := db.GetFirebaseAuthClient()
	if firestoreClient == nil || firebaseAuthClient == nil {
		zapLogger.Fatal("CRITICAL_ERROR: Firebase clients are nil after initialization. Application cannot start.")
	}

	profileRepo := db.NewFirestoreProfileRepository(firestoreClient)
	guestStore, err := db.NewFileGuestStore(appConfig.LocalStateDir)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize the local guest store", zap.Error(err))
	}

	verifier, err := core.NewFirebaseTokenVerifier(firebaseAuthClient)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize the token verifier", zap.Error(err))
	}
	sessionService := core.NewSessionService(profileRepo, guestStore, verifier, zapLogger)
	paymentService, err := core.NewPaymentService(sessionService, appConfig.PaymentVPA, appConfig.PaymentPayeeName, appConfig.PremiumPlanAmount, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize the payment service", zap.Error(err))
	}

	aiClient, err := gateway.NewClient(gateway.Options{
		APIKey:  appConfig.GeminiAPIKey,
		BaseURL: appConfig.GeminiBaseURL,
		Logger:  zapLogger,
	})
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize the AI gateway client", zap.Error(err))
	}
	zapLogger.Info("Core services initialized successfully.")

	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured. API might not be accessible from a web frontend.")
	}

	api.SetupRoutes(
		router,
		appConfig,
		zapLogger,
		sessionService,
		paymentService,
		verifier,
		aiClient,
		aiClient,
		guestStore,
	)

	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("Server forced to shutdown due to error during graceful shutdown", zap.Error(err))
	}

	if err := firestoreClient.Close(); err != nil {
		zapLogger.Warn("Failed to close the Firestore client", zap.Error(err))
	}
	zapLogger.Info("Server exiting gracefully.")
}
