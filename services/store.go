package services

import (
	"context"
	"time"

	"github.com/upgradeforless/UpgradeForLess/models"
)

// PaymentStore is the persisted payment table. ApplyUpdate must be a single
// atomic row-level statement; see repository.PaymentRepository.
type PaymentStore interface {
	Create(ctx context.Context, record *models.PaymentRecord) error
	ApplyUpdate(ctx context.Context, key models.RecordKey, allowedFrom []models.PaymentStatus, update models.PaymentUpdate) (bool, error)
	FindByKey(ctx context.Context, key models.RecordKey) (*models.PaymentRecord, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	FindByUserID(ctx context.Context, userID string, offset, limit int) ([]models.PaymentRecord, int64, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]models.PaymentRecord, error)
}
