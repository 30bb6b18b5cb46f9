package repository

import (
	"context"
	"errors"
	"time"

	"github.com/upgradeforless/UpgradeForLess/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by the Find methods when no row matches
var ErrNotFound = errors.New("payment record not found")

// PaymentRepository persists payment records in Postgres
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts an order-time record
func (r *PaymentRepository) Create(ctx context.Context, record *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ApplyUpdate writes update to the row identified by key in a single UPDATE.
// The row must currently be in one of allowedFrom and must not have seen a newer
// event. It reports whether a row was changed.
//
// A record created at order time has no payment id; it matches on order id and
// gets the payment id bound in the same statement. A record left failed by an
// earlier attempt on the same order is rebound the same way.
func (r *PaymentRepository) ApplyUpdate(ctx context.Context, key models.RecordKey, allowedFrom []models.PaymentStatus, update models.PaymentUpdate) (bool, error) {
	fields := map[string]interface{}{
		"updated_at": update.UpdatedAt,
		"payment_id": key.PaymentID,
	}
	if update.Status != nil {
		fields["status"] = string(*update.Status)
	}
	if update.Promote != nil {
		fields["status"] = gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END",
			string(update.Promote.From), string(update.Promote.To))
	}
	if update.PaymentMethod != nil {
		fields["payment_method"] = *update.PaymentMethod
	}
	if update.ErrorCode != nil {
		fields["error_code"] = *update.ErrorCode
	}
	if update.ErrorDescription != nil {
		fields["error_description"] = *update.ErrorDescription
	}
	if update.RefundID != nil {
		fields["refund_id"] = *update.RefundID
	}
	if update.RefundAmount != nil {
		fields["refund_amount"] = *update.RefundAmount
	}
	if update.RefundStatus != nil {
		fields["refund_status"] = *update.RefundStatus
	}
	if update.RefundedAt != nil {
		fields["refunded_at"] = *update.RefundedAt
	} else if update.RefundedAtDefault != nil {
		fields["refunded_at"] = gorm.Expr("COALESCE(refunded_at, ?)", *update.RefundedAtDefault)
	}
	if update.Metadata != nil {
		fields["metadata"] = update.Metadata
	}
	if update.UserID != "" {
		fields["user_id"] = gorm.Expr("COALESCE(NULLIF(user_id, ''), ?)", update.UserID)
	}
	if !update.EventAt.IsZero() {
		fields["last_event_at"] = update.EventAt
	}

	q := r.db.WithContext(ctx).Model(&models.PaymentRecord{})
	if key.OrderID != "" {
		// Exactly one row: the payment id's own row when it exists, otherwise the
		// newest bindable row on the order.
		target := r.db.Model(&models.PaymentRecord{}).Select("id").
			Where("payment_id = ? OR (order_id = ? AND (payment_id IS NULL OR status = ?))",
				key.PaymentID, key.OrderID, string(models.StatusFailed)).
			Clauses(clause.OrderBy{Expression: clause.Expr{
				SQL:                "CASE WHEN payment_id = ? THEN 0 ELSE 1 END, created_at DESC, id DESC",
				Vars:               []interface{}{key.PaymentID},
				WithoutParentheses: true,
			}}).
			Limit(1)
		q = q.Where("id = (?)", target)
	} else {
		q = q.Where("payment_id = ?", key.PaymentID)
	}
	if len(allowedFrom) > 0 {
		q = q.Where("status IN ?", statusStrings(allowedFrom))
	}
	if !update.EventAt.IsZero() {
		q = q.Where("(last_event_at IS NULL OR last_event_at <= ?)", update.EventAt)
	}

	res := q.Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindByKey returns the row ApplyUpdate would target, ignoring status guards
func (r *PaymentRepository) FindByKey(ctx context.Context, key models.RecordKey) (*models.PaymentRecord, error) {
	record, err := r.FindByPaymentID(ctx, key.PaymentID)
	if err == nil || !errors.Is(err, ErrNotFound) || key.OrderID == "" {
		return record, err
	}
	return r.FindByOrderID(ctx, key.OrderID)
}

// FindByPaymentID returns the record for a provider payment id
func (r *PaymentRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&record).Error
	return wrapFind(&record, err)
}

// FindByOrderID returns the most recent record for a provider order id
func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at DESC").First(&record).Error
	return wrapFind(&record, err)
}

// FindByUserID returns one page of a user's records, newest first, and the total count
func (r *PaymentRepository) FindByUserID(ctx context.Context, userID string, offset, limit int) ([]models.PaymentRecord, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&models.PaymentRecord{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.PaymentRecord
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&records).Error
	return records, total, err
}

// ListBetween lists records created in [from, to)
func (r *PaymentRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

func wrapFind(record *models.PaymentRecord, err error) (*models.PaymentRecord, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func statusStrings(statuses []models.PaymentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
