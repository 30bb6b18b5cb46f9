package routes

import (
	"github.com/gin-gonic/gin"
)

// initWebhookRoutes registers provider callbacks. They carry no JWT; the
// provider signature is the authentication. Every method is routed so that
// non-POST requests get 405 with an Allow header.
func initWebhookRoutes(router *gin.Engine, deps Dependencies) {
	router.Any("/webhooks/:provider", deps.Webhooks.HandleWebhook)
}

func initDevRoutes(router *gin.RouterGroup, deps Dependencies) {
	dev := router.Group("/dev")
	{
		dev.POST("/webhooks/:provider/sign", deps.Dev.SignWebhook)
	}
}
