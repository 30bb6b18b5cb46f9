package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upgradeforless/UpgradeForLess/gateway"
	"github.com/upgradeforless/UpgradeForLess/models"
	"github.com/upgradeforless/UpgradeForLess/repository"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

// CreateOrderInput is a checkout request from an authenticated user
type CreateOrderInput struct {
	Provider string
	UserID   string
	Amount   int64
	Currency string
	Notes    map[string]string
}

// PaymentService covers the non-webhook payment operations
type PaymentService struct {
	store    PaymentStore
	gateways *gateway.Registry
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(store PaymentStore, gateways *gateway.Registry) *PaymentService {
	return &PaymentService{store: store, gateways: gateways, now: time.Now}
}

// CreateOrder creates a provider order and the matching created record
func (s *PaymentService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.PaymentRecord, *gateway.Order, error) {
	g, ok := s.gateways.Get(in.Provider)
	if !ok {
		return nil, nil, utils.NotFoundError(fmt.Sprintf("Unknown payment provider %q", in.Provider), nil)
	}
	if in.Amount <= 0 {
		return nil, nil, utils.BadRequestError("Amount must be positive", nil)
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = "INR"
	}

	notes := map[string]string{}
	for k, v := range in.Notes {
		notes[k] = v
	}
	notes["user_id"] = in.UserID

	receipt := "rcpt_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	order, err := g.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   in.Amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		utils.LogError("Failed to create %s order for user %s: %v", g.Name(), in.UserID, err)
		if errors.Is(err, gateway.ErrMissingCredentials) {
			return nil, nil, utils.ConfigurationError(fmt.Sprintf("%s is not configured", g.Name()), err)
		}
		return nil, nil, utils.NewAppError(http.StatusBadGateway, "Payment provider rejected the order", err)
	}

	amount := order.Amount
	if amount == 0 {
		amount = in.Amount
	}
	record := &models.PaymentRecord{
		Provider: g.Name(),
		OrderID:  order.ID,
		Amount:   amount,
		Currency: currency,
		Status:   models.StatusCreated,
		UserID:   in.UserID,
	}
	if err := s.store.Create(ctx, record); err != nil {
		utils.LogError("Failed to persist order %s: %v", order.ID, err)
		return nil, nil, utils.PersistenceError("Failed to save payment record", err)
	}

	utils.LogInfo("Created %s order %s for user %s (%s)", g.Name(), order.ID, in.UserID, utils.FormatAmount(amount, currency))
	return record, order, nil
}

// ListForUser returns one page of the user's payment records, newest first
func (s *PaymentService) ListForUser(ctx context.Context, userID string, offset, limit int) ([]models.PaymentRecord, int64, error) {
	records, total, err := s.store.FindByUserID(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, utils.PersistenceError("Failed to load payments", err)
	}
	return records, total, nil
}

// GetForUser returns one record owned by userID
func (s *PaymentService) GetForUser(ctx context.Context, userID, paymentID string) (*models.PaymentRecord, error) {
	record, err := s.store.FindByPaymentID(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && record.UserID != userID) {
		return nil, utils.NotFoundError("Payment not found", nil)
	}
	if err != nil {
		return nil, utils.PersistenceError("Failed to load payment", err)
	}
	return record, nil
}

// InitiateRefund asks the provider to refund amount (0 means the full amount)
// and moves the record to refund_pending. The final state arrives by webhook.
func (s *PaymentService) InitiateRefund(ctx context.Context, paymentID string, amount int64) (*models.PaymentRecord, error) {
	record, err := s.store.FindByPaymentID(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NotFoundError("Payment not found", nil)
	}
	if err != nil {
		return nil, utils.PersistenceError("Failed to load payment", err)
	}
	if record.Status != models.StatusCaptured && record.Status != models.StatusRefundFailed {
		return nil, utils.BadRequestError(fmt.Sprintf("Payment in status %s cannot be refunded", record.Status), nil)
	}
	if amount == 0 {
		amount = record.Amount
	}
	if amount < 0 || amount > record.Amount {
		return nil, utils.BadRequestError("Refund amount exceeds the captured amount", nil)
	}

	g, ok := s.gateways.Get(record.Provider)
	if !ok {
		return nil, utils.ConfigurationError(fmt.Sprintf("Provider %s is not registered", record.Provider), nil)
	}
	refunder, ok := g.(gateway.Refunder)
	if !ok {
		return nil, utils.BadRequestError(gateway.ErrRefundUnsupported.Error(), gateway.ErrRefundUnsupported)
	}

	refund, err := refunder.Refund(ctx, paymentID, amount, map[string]string{"user_id": record.UserID})
	if err != nil {
		utils.LogError("Refund request for %s failed: %v", paymentID, err)
		if errors.Is(err, gateway.ErrMissingCredentials) {
			return nil, utils.ConfigurationError(fmt.Sprintf("%s is not configured", g.Name()), err)
		}
		return nil, utils.NewAppError(http.StatusBadGateway, "Payment provider rejected the refund", err)
	}

	status := models.StatusRefundPending
	refundStatus := refund.Status
	if refundStatus == "" {
		refundStatus = "pending"
	}
	update := models.PaymentUpdate{
		Status:       &status,
		RefundID:     &refund.ID,
		RefundAmount: &amount,
		RefundStatus: &refundStatus,
		UpdatedAt:    s.now().UTC(),
	}
	applied, err := s.store.ApplyUpdate(ctx, models.RecordKey{PaymentID: paymentID},
		[]models.PaymentStatus{models.StatusCaptured, models.StatusRefundFailed}, update)
	if err != nil {
		return nil, utils.PersistenceError("Failed to update payment record", err)
	}
	if !applied {
		// The refund webhook won the race; keep whatever it wrote.
		utils.LogWarn("Refund %s for %s accepted but record already moved on", refund.ID, paymentID)
	}

	utils.LogInfo("Refund %s requested for %s (%s)", refund.ID, paymentID, utils.FormatAmount(amount, record.Currency))
	updated, err := s.store.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, utils.PersistenceError("Failed to reload payment", err)
	}
	return updated, nil
}

// ListBetween returns records created in [from, to) for export
func (s *PaymentService) ListBetween(ctx context.Context, from, to time.Time) ([]models.PaymentRecord, error) {
	if !to.After(from) {
		return nil, utils.BadRequestError("'to' must be after 'from'", nil)
	}
	records, err := s.store.ListBetween(ctx, from, to)
	if err != nil {
		return nil, utils.PersistenceError("Failed to load payments", err)
	}
	return records, nil
}
