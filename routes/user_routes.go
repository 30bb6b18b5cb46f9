package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/upgradeforless/UpgradeForLess/middleware"
)

// initPaymentRoutes initializes the signed-in user's payment routes
func initPaymentRoutes(router *gin.RouterGroup, deps Dependencies) {
	payments := router.Group("/payments")
	payments.Use(middleware.AuthMiddleware(deps.JWTSecret))
	{
		payments.POST("/orders", deps.Payments.CreateOrder)
		payments.GET("", deps.Payments.ListPayments)
		payments.GET("/:payment_id/receipt", deps.Payments.DownloadReceipt)
	}
}
