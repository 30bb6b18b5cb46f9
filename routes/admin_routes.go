package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/upgradeforless/UpgradeForLess/middleware"
)

// initAdminRoutes initializes all admin-related routes
func initAdminRoutes(router *gin.RouterGroup, deps Dependencies) {
	admin := router.Group("/admin")
	admin.Use(middleware.AuthMiddleware(deps.JWTSecret), middleware.ServiceRoleMiddleware())
	{
		admin.POST("/payments/:payment_id/refund", deps.Payments.InitiateRefund)
		admin.GET("/payments/export", deps.Payments.ExportPayments)
	}
}
