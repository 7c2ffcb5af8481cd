// appmissao/internal/routes/api_routes.go
package routes

import (
	"appmissao/internal/handlers"
	"appmissao/internal/middleware"
	"appmissao/internal/ratelimit"
	"appmissao/models"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registra todas as rotas do backend. O webhook do Mercado
// Pago e o cadastro/login ficam fora do AuthMiddleware.
func RegisterRoutes(r *gin.Engine, limiter *ratelimit.Limiter) {
	api := r.Group("/api")

	// --- PÚBLICAS ---
	auth := api.Group("/auth")
	auth.Use(limiter.Middleware("auth"))
	{
		auth.POST("/register", handlers.RegisterHandler)
		auth.POST("/login", handlers.LoginHandler)
		auth.GET("/check-unique", handlers.CheckUniqueHandler)
	}
	api.POST("/payments/webhook", handlers.MPWebhookHandler)
	api.GET("/payments/mp/public-key", handlers.MPPublicKeyHandler)
	api.GET("/payments/mp/status", handlers.MPStatusHandler)

	// --- AUTENTICADAS ---
	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware())
	{
		authed.GET("/auth/me", handlers.MeHandler)
		authed.PATCH("/auth/me", handlers.UpdateMeHandler)
		authed.GET("/ws", handlers.Hub.ServeWS)

		// --- MISSÕES ---
		missions := authed.Group("/missions")
		{
			missions.POST("", handlers.CreateMissionHandler)
			missions.GET("", handlers.ListMissionsHandler)
			missions.GET("/mine", handlers.MyMissionsHandler)
			missions.GET("/assigned", handlers.AssignedMissionsHandler)
			missions.GET("/:id", handlers.GetMissionHandler)
			missions.PATCH("/:id", handlers.UpdateMissionHandler)
			missions.POST("/:id/accept", handlers.AcceptMissionHandler)
			missions.PATCH("/:id/provider-status", handlers.ProviderStatusHandler)

			missions.GET("/:id/proposals", handlers.ListMissionProposalsHandler)

			missions.POST("/:id/payments/preference", handlers.CreatePreferenceHandler)
			missions.POST("/:id/payments/card", handlers.ChargeCardHandler)
			missions.GET("/:id/payments", handlers.ListMissionPaymentsHandler)

			missions.GET("/:id/messages", handlers.ListMessagesHandler)
			missions.POST("/:id/messages", handlers.SendMessageHandler)

			missions.POST("/:id/reviews", handlers.CreateReviewHandler)
		}

		// --- PROPOSTAS ---
		proposals := authed.Group("/proposals")
		{
			proposals.POST("", handlers.CreateProposalHandler)
			proposals.PATCH("/:id", handlers.DecideProposalHandler)
			proposals.GET("/stats", handlers.ProposalStatsHandler)
		}

		// --- PAGAMENTOS ---
		payments := authed.Group("/payments")
		{
			payments.GET("/export", handlers.ExportPaymentsHandler)
			payments.GET("/:id", handlers.GetPaymentHandler)
			payments.POST("/:id/refund", handlers.RefundPaymentHandler)
		}

		// --- PRESTADORES ---
		providers := authed.Group("/providers")
		{
			providers.GET("/featured", handlers.FeaturedProvidersHandler)
			providers.GET("/me", middleware.RequireRole(models.RolePrestador), handlers.GetMyProviderHandler)
			providers.PATCH("/me", middleware.RequireRole(models.RolePrestador), handlers.UpdateMyProviderHandler)
			providers.GET("/:id/reviews", handlers.ProviderReviewsHandler)
			providers.GET("/:id/rating", handlers.ProviderRatingHandler)
		}

		// --- CHAT ---
		authed.GET("/chats", handlers.ListChatsHandler)
		authed.POST("/media/presign", handlers.PresignUploadHandler)
		authed.GET("/media/presign", handlers.PresignDownloadHandler)

		// --- NOTIFICAÇÕES ---
		notifications := authed.Group("/notifications")
		{
			notifications.POST("/devices", handlers.RegisterDeviceHandler)
			notifications.GET("/prefs", handlers.GetPrefsHandler)
			notifications.PATCH("/prefs", handlers.UpdatePrefsHandler)
			notifications.POST("/test", handlers.TestPushHandler)
		}
	}
}
