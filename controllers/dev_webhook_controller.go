package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/upgradeforless/UpgradeForLess/gateway"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

// DevWebhookController signs payloads so a webhook can be replayed locally.
// Registered only outside production.
type DevWebhookController struct {
	gateways *gateway.Registry
}

// NewDevWebhookController creates a new DevWebhookController
func NewDevWebhookController(gateways *gateway.Registry) *DevWebhookController {
	return &DevWebhookController{gateways: gateways}
}

// SignWebhook returns the headers the provider would send for the raw body.
// POST /v1/dev/webhooks/:provider/sign
func (d *DevWebhookController) SignWebhook(c *gin.Context) {
	utils.LogInfo("SignWebhook called")

	g, ok := d.gateways.Get(c.Param("provider"))
	if !ok {
		utils.NotFound(c, "Unknown payment provider")
		return
	}
	signer, ok := g.(gateway.Signer)
	if !ok {
		utils.BadRequest(c, "Provider does not support signing", nil)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, utils.MaxWebhookBodySize)
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil || len(rawBody) == 0 {
		utils.BadRequest(c, "Request body is required", nil)
		return
	}

	headers, err := signer.Sign(rawBody)
	if err != nil {
		utils.AbortWithAppError(c, verificationError(err))
		return
	}

	signed := make(map[string]string, len(headers))
	for name := range headers {
		signed[name] = headers.Get(name)
	}
	utils.Success(c, "Payload signed", gin.H{
		"provider": g.Name(),
		"headers":  signed,
	})
}
