package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/upgradeforless/UpgradeForLess/gateway"
	"github.com/upgradeforless/UpgradeForLess/models"
	"github.com/upgradeforless/UpgradeForLess/services"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

// EventReconciler applies one normalized event
type EventReconciler interface {
	Reconcile(ctx context.Context, event *models.NormalizedEvent) (services.Outcome, error)
}

// WebhookController receives provider callbacks
type WebhookController struct {
	gateways   *gateway.Registry
	reconciler EventReconciler
	deduper    services.Deduper
	notifier   services.Notifier
	verifyMode string
}

// NewWebhookController creates a new WebhookController
func NewWebhookController(gateways *gateway.Registry, reconciler EventReconciler, deduper services.Deduper, notifier services.Notifier, verifyMode string) *WebhookController {
	if deduper == nil {
		deduper = services.NopDeduper{}
	}
	if notifier == nil {
		notifier = services.NopNotifier{}
	}
	return &WebhookController{
		gateways:   gateways,
		reconciler: reconciler,
		deduper:    deduper,
		notifier:   notifier,
		verifyMode: verifyMode,
	}
}

// HandleWebhook verifies, normalizes and reconciles one delivery.
// ANY /webhooks/:provider
func (w *WebhookController) HandleWebhook(c *gin.Context) {
	provider := c.Param("provider")
	requestID := utils.RequestID(c)

	if c.Request.Method != http.MethodPost {
		utils.LogWarn("Webhook %s called with method %s", provider, c.Request.Method)
		utils.MethodNotAllowed(c, http.MethodPost)
		return
	}

	g, ok := w.gateways.Get(provider)
	if !ok {
		utils.LogWarn("Webhook for unknown provider %q from %s", provider, c.ClientIP())
		utils.NotFound(c, "Unknown payment provider")
		return
	}

	// The signature covers the exact bytes received, so nothing may parse the body first.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, utils.MaxWebhookBodySize)
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.LogWarn("Failed to read %s webhook body [%s]: %v", g.Name(), requestID, err)
		utils.AbortWithAppError(c, utils.MalformedRequestError("Unable to read request body", err))
		return
	}

	if err := g.VerifySignature(rawBody, c.Request.Header); err != nil {
		appErr := verificationError(err)
		if appErr.Code == http.StatusInternalServerError {
			utils.LogError("%s webhook rejected [%s]: %v", g.Name(), requestID, err)
			w.notifier.Notify(
				fmt.Sprintf("%s webhook misconfigured", g.Name()),
				fmt.Sprintf("Webhook verification cannot run: %v\nRequest: %s\n", err, requestID),
			)
			utils.AbortWithAppError(c, appErr)
			return
		}
		if w.verifyMode == utils.VerifyModeLogOnly && !errors.Is(err, gateway.ErrEmptyBody) {
			utils.LogWarn("%s webhook failed verification [%s] from %s: %v (accepted, log_only mode)",
				g.Name(), requestID, c.ClientIP(), err)
		} else {
			utils.LogWarn("%s webhook failed verification [%s] from %s: %v", g.Name(), requestID, c.ClientIP(), err)
			utils.AbortWithAppError(c, appErr)
			return
		}
	}

	event, err := g.NormalizeEvent(rawBody)
	if err != nil {
		utils.LogWarn("Malformed %s webhook payload [%s]: %v", g.Name(), requestID, err)
		utils.AbortWithAppError(c, utils.MalformedRequestError("Malformed payload", err))
		return
	}

	key := services.DeliveryKey(g.Name(), g.DeliveryID(c.Request.Header), rawBody)
	seen, err := w.deduper.Seen(c.Request.Context(), key)
	if err != nil {
		utils.LogWarn("Dedupe lookup failed for %s [%s]: %v", key, requestID, err)
	}
	if seen {
		utils.LogInfo("Duplicate %s delivery %s [%s]", g.Name(), key, requestID)
		utils.Acknowledge(c, string(services.OutcomeDuplicate), "Event already processed")
		return
	}

	outcome, err := w.reconciler.Reconcile(c.Request.Context(), event)
	if err != nil {
		utils.LogError("Failed to reconcile %s %s [%s]: %v", g.Name(), event.ProviderEvent, requestID, err)
		utils.AbortWithAppError(c, err)
		return
	}

	if err := w.deduper.Mark(c.Request.Context(), key); err != nil {
		utils.LogWarn("Failed to mark delivery %s [%s]: %v", key, requestID, err)
	}

	utils.LogInfo("Webhook %s %s outcome=%s [%s]", g.Name(), event.ProviderEvent, outcome, requestID)
	utils.Acknowledge(c, string(outcome), outcomeMessage(outcome))
}

func verificationError(err error) *utils.AppError {
	switch {
	case errors.Is(err, gateway.ErrMissingSecret):
		return utils.ConfigurationError("Webhook secret not configured", err)
	case errors.Is(err, gateway.ErrMissingSignature), errors.Is(err, gateway.ErrEmptyBody):
		return utils.MalformedRequestError("Missing signature or body", err)
	case errors.Is(err, gateway.ErrSignatureMismatch):
		return utils.AuthenticationError("Invalid signature", err)
	case errors.Is(err, gateway.ErrStaleTimestamp):
		return utils.AuthenticationError("Webhook timestamp outside tolerance", err)
	default:
		return utils.MalformedRequestError("Signature verification failed", err)
	}
}

func outcomeMessage(outcome services.Outcome) string {
	switch outcome {
	case services.OutcomeProcessed:
		return "Event processed"
	case services.OutcomeIgnored:
		return "Unknown event, ignored"
	case services.OutcomeNotFound:
		return "No matching payment record"
	case services.OutcomeRejected:
		return "Event does not apply to the current payment state"
	}
	return ""
}
