package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/upgradeforless/UpgradeForLess/controllers"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

// Dependencies are the handlers and settings the router is built from
type Dependencies struct {
	Env             string
	JWTSecret       string
	CORSAllowOrigin string

	Webhooks *controllers.WebhookController
	Payments *controllers.PaymentController
	Health   *controllers.HealthController
	// Dev is registered only outside production
	Dev *controllers.DevWebhookController
}

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(deps Dependencies) *gin.Engine {
	if deps.Env == utils.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())

	router.GET("/health", deps.Health.Health)

	initWebhookRoutes(router, deps)

	// API version group
	api := router.Group("/" + utils.APIVersion)
	api.Use(utils.CORSMiddleware(deps.CORSAllowOrigin))
	{
		// preflight; answered by the CORS middleware
		api.OPTIONS("/*path", func(c *gin.Context) {})

		initPaymentRoutes(api, deps)
		initAdminRoutes(api, deps)
		if deps.Dev != nil && deps.Env != utils.EnvProduction {
			initDevRoutes(api, deps)
		}
	}

	return router
}
