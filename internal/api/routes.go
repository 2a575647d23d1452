package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nexaneuron-backend-go/internal/config"
	"nexaneuron-backend-go/internal/core"
	"nexaneuron-backend-go/internal/db"
	"nexaneuron-backend-go/internal/middleware"
)

// SetupRoutes wires every handler under /api/v1 plus the public /health
// probe. Global middleware (logging, recovery, CORS) is expected to already
// be on the engine; the session middleware is attached here because it needs
// the session service.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	sessionService core.SessionService,
	paymentService core.PaymentService,
	verifier core.TokenVerifier,
	ai AIGateway,
	dialer LiveDialer,
	guests db.GuestStore,
) {
	sessionMW := middleware.NewSessionMiddleware(sessionService, verifier, logger)

	sessionHandler := NewSessionHandler(sessionService)
	chatHandler := NewChatHandler(ai, guests)
	imageHandler := NewImageHandler(ai, sessionService)
	videoHandler := NewVideoHandler(ai, sessionService, logger)
	speechHandler := NewSpeechHandler(ai)
	searchHandler := NewSearchHandler(ai)
	liveHandler := NewLiveHandler(dialer, appConfig.GeminiLiveURL, logger)
	paymentHandler := NewPaymentHandler(paymentService)
	preferencesHandler := NewPreferencesHandler(guests)

	apiV1 := router.Group("/api/v1", sessionMW.Resolve())
	{
		sessionGroup := apiV1.Group("/session")
		{
			sessionGroup.GET("/me", sessionHandler.Me)
			sessionGroup.POST("/resolve", sessionHandler.SignIn)
			sessionGroup.POST("/signout", sessionHandler.SignOut)
		}

		chatGroup := apiV1.Group("/chat")
		{
			chatGroup.POST("", chatHandler.Chat)
			chatGroup.POST("/generate", chatHandler.Generate)
			chatGroup.GET("/:conversationId/history", chatHandler.History)
		}

		imagesGroup := apiV1.Group("/images")
		{
			imagesGroup.POST("/generate", imageHandler.Generate)
			imagesGroup.POST("/analyze", imageHandler.Analyze)
		}

		videosGroup := apiV1.Group("/videos")
		{
			videosGroup.POST("/generate", videoHandler.Generate)
			videosGroup.POST("/analyze", videoHandler.Analyze)
			videosGroup.POST("/style-frames", videoHandler.StyleFrames)
		}

		apiV1.GET("/preferences", preferencesHandler.Get)
		apiV1.PUT("/preferences", preferencesHandler.Put)

		apiV1.POST("/speech", speechHandler.Synthesize)
		apiV1.POST("/search", searchHandler.Search)
		apiV1.GET("/live", liveHandler.Connect)

		paymentGroup := apiV1.Group("/payment")
		{
			paymentGroup.POST("/order", paymentHandler.CreateOrder)
			paymentGroup.POST("/confirm", paymentHandler.Confirm)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "UP"}
		if db.GetFirestoreClient() == nil {
			status["firestore"] = "unavailable"
		}
		c.JSON(http.StatusOK, status)
	})

	logger.Info("API routes configured under /api/v1 and /health")
}
