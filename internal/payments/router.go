package payments

import (
	"trekka/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupPaymentRoutes configures payment and webhook routes
func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller, webhook *WebhookController) {
	payments := rg.Group("/payments")

	// The gateway calls this; authentication is the signature check
	payments.POST("/webhook", webhook.HandleWebhook) // POST /api/v1/payments/webhook

	authed := payments.Group("")
	authed.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin))
	{
		authed.POST("/initialize", controller.InitializePayment)    // POST /api/v1/payments/initialize
		authed.GET("/verify/:reference", controller.VerifyPayment)  // GET /api/v1/payments/verify/:reference
		authed.POST("/:id/refund", controller.RefundPayment)        // POST /api/v1/payments/:id/refund
		authed.GET("", controller.GetUserPayments)                  // GET /api/v1/payments?limit=10&offset=0
	}
}
