package controllers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/upgradeforless/UpgradeForLess/gateway"
	"github.com/upgradeforless/UpgradeForLess/middleware"
	"github.com/upgradeforless/UpgradeForLess/models"
	"github.com/upgradeforless/UpgradeForLess/services"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

// PaymentOperations is what the payment routes need from services.PaymentService
type PaymentOperations interface {
	CreateOrder(ctx context.Context, in services.CreateOrderInput) (*models.PaymentRecord, *gateway.Order, error)
	ListForUser(ctx context.Context, userID string, offset, limit int) ([]models.PaymentRecord, int64, error)
	GetForUser(ctx context.Context, userID, paymentID string) (*models.PaymentRecord, error)
	InitiateRefund(ctx context.Context, paymentID string, amount int64) (*models.PaymentRecord, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]models.PaymentRecord, error)
}

// PaymentController serves the authenticated payment routes
type PaymentController struct {
	payments PaymentOperations
}

// NewPaymentController creates a new PaymentController
func NewPaymentController(payments PaymentOperations) *PaymentController {
	return &PaymentController{payments: payments}
}

// CreateOrderRequest is the checkout body. Amount is in major units ("499.00").
type CreateOrderRequest struct {
	Provider string            `json:"provider" binding:"required"`
	Amount   decimal.Decimal   `json:"amount"`
	Currency string            `json:"currency" binding:"omitempty,len=3"`
	Notes    map[string]string `json:"notes"`
}

// CreateOrder creates a provider order for the current user.
// POST /v1/payments/orders
func (p *PaymentController) CreateOrder(c *gin.Context) {
	utils.LogInfo("CreateOrder called")
	userID := middleware.UserID(c)

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogWarn("Invalid order request for user %s: %v", userID, err)
		utils.BadRequest(c, "Invalid request. provider and amount are required", utils.FieldErrors(err))
		return
	}
	if !req.Amount.IsPositive() {
		utils.BadRequest(c, "Amount must be positive", nil)
		return
	}
	amount, err := utils.ToMinorUnits(req.Amount)
	if err != nil {
		utils.BadRequest(c, "Amount has too many decimal places", err.Error())
		return
	}

	record, order, err := p.payments.CreateOrder(c.Request.Context(), services.CreateOrderInput{
		Provider: req.Provider,
		UserID:   userID,
		Amount:   amount,
		Currency: req.Currency,
		Notes:    req.Notes,
	})
	if err != nil {
		utils.AbortWithAppError(c, err)
		return
	}

	utils.Created(c, "Order created", gin.H{
		"order":   order,
		"payment": record,
	})
}

// ListPayments lists the current user's payments, newest first.
// GET /v1/payments?page=&limit=
func (p *PaymentController) ListPayments(c *gin.Context) {
	userID := middleware.UserID(c)
	pagination := utils.NewPagination(c)

	records, total, err := p.payments.ListForUser(c.Request.Context(), userID, pagination.Offset, pagination.Limit)
	if err != nil {
		utils.LogError("Failed to list payments for user %s: %v", userID, err)
		utils.AbortWithAppError(c, err)
		return
	}
	pagination.SetTotal(total)
	utils.SendPaginatedResponse(c, "Payments retrieved", records, pagination)
}
