package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upgradeforless/UpgradeForLess/models"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	t0  = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	now = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
)

func newTestRepository(t *testing.T) *PaymentRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	// every connection to :memory: is its own database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.PaymentRecord{}))
	return NewPaymentRepository(db)
}

func seed(t *testing.T, repo *PaymentRepository, record models.PaymentRecord) *models.PaymentRecord {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &record))
	return &record
}

func strPtr(s string) *string { return &s }

func statusPtr(s models.PaymentStatus) *models.PaymentStatus { return &s }

func captureUpdate(at time.Time) models.PaymentUpdate {
	return models.PaymentUpdate{
		Status:        statusPtr(models.StatusCaptured),
		PaymentMethod: strPtr("upi"),
		Metadata:      datatypes.JSON(`{"id":"pay_123"}`),
		EventAt:       at,
		UpdatedAt:     now,
	}
}

var captureFrom = []models.PaymentStatus{models.StatusCreated, models.StatusAuthorized, models.StatusFailed, models.StatusCaptured}

func TestApplyUpdate_ByPaymentID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seed(t, repo, models.PaymentRecord{Provider: models.ProviderRazorpay, PaymentID: strPtr("pay_123"), Status: models.StatusCreated, Amount: 49900})

	applied, err := repo.ApplyUpdate(ctx, models.RecordKey{PaymentID: "pay_123"}, captureFrom, captureUpdate(t0))
	require.NoError(t, err)
	assert.True(t, applied)

	record, err := repo.FindByPaymentID(ctx, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCaptured, record.Status)
	assert.Equal(t, "upi", record.PaymentMethod)
	assert.JSONEq(t, `{"id":"pay_123"}`, string(record.Metadata))
	require.NotNil(t, record.LastEventAt)
	assert.True(t, t0.Equal(*record.LastEventAt))

	// redelivery rewrites the same values
	applied, err = repo.ApplyUpdate(ctx, models.RecordKey{PaymentID: "pay_123"}, captureFrom, captureUpdate(t0))
	require.NoError(t, err)
	assert.True(t, applied)

	_, err = repo.FindByPaymentID(ctx, "pay_missing")
	assert.ErrorIs(t, err, ErrNotFound)
	applied, err = repo.ApplyUpdate(ctx, models.RecordKey{PaymentID: "pay_missing"}, captureFrom, captureUpdate(t0))
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestApplyUpdate_BindsOrderTimeRecord(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seed(t, repo, models.PaymentRecord{OrderID: "order_9", Status: models.StatusCreated, UserID: "user-1"})

	update := captureUpdate(t0)
	update.UserID = "user-2"
	applied, err := repo.ApplyUpdate(ctx, models.RecordKey{PaymentID: "pay_123", OrderID: "order_9"}, captureFrom, update)
	require.NoError(t, err)
	assert.True(t, applied)

	record, err := repo.FindByPaymentID(ctx, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, "order_9", record.OrderID)
	assert.Equal(t, models.StatusCaptured, record.Status)
	assert.Equal(t, "user-1", record.UserID)
}

func TestApplyUpdate_FillsMissingUserID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seed(t, repo, models.PaymentRecord{PaymentID: strPtr("pay_123"), Status: models.StatusCreated})

	update := captureUpdate(t0)
	update.UserID = "user-2"
	_, err := repo.ApplyUpdate(ctx, models.RecordKey{PaymentID: "pay_123"}, captureFrom, update)
	require.NoError(t, err)

	record, err := repo.FindByPaymentID(ctx, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, "user-2", record.UserID)
}

func TestApplyUpdate_TouchesOneRowPerOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	// the first attempt is already bound and a fresh order-time row exists too
	seed(t, repo, models.PaymentRecord{PaymentID: strPtr("pay_1"), OrderID: "order_9", Status: models.StatusFailed, ErrorCode: "DECLINED"})
	seed(t, repo, models.PaymentRecord{OrderID: "order_9", Status: models.StatusCreated})

	failed := models.PaymentUpdate{
		Status:    statusPtr(models.StatusFailed),
		ErrorCode: strPtr("DECLINED"),
		EventAt:   t0,
		UpdatedAt: now,
	}
	applied, err := repo.ApplyUpdate(ctx, models.RecordKey{PaymentID: "pay_1", OrderID: "order_9"},
		[]models.PaymentStatus{models.StatusCreated, models.StatusAuthorized, models.StatusFailed}, failed)
	require.NoError(t, err)
	assert.True(t, applied)

	var unbound int64
	require.NoError(t, repo.db.Model(&models.PaymentRecord{}).Where("payment_id IS NULL").Count(&unbound).Error)
	assert.Equal(t, int64(1), unbound, "the order-time row is left for the next attempt")

	// a retry on the same order binds the newest bindable row
	applied, err = repo.ApplyUpdate(ctx, models.RecordKey{PaymentID: "pay_2", OrderID: "order_9"}, captureFrom, captureUpdate(t0.Add(time.Minute)))
	require.NoError(t, err)
	assert.True(t, applied)

	first, err := repo.FindByPaymentID(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, first.Status)
	second, err := repo.FindByPaymentID(ctx, "pay_2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCaptured, second.Status)
}

func TestApplyUpdate_Guards(t *testing.T) {
	later := t0.Add(time.Hour)
	tests := []struct {
		name    string
		record  models.PaymentRecord
		from    []models.PaymentStatus
		update  models.PaymentUpdate
		applied bool
	}{
		{
			name:   "status not allowed",
			record: models.PaymentRecord{PaymentID: strPtr("pay_123"), Status: models.StatusRefunded},
			from:   captureFrom,
			update: captureUpdate(t0),
		},
		{
			name:   "older than last applied event",
			record: models.PaymentRecord{PaymentID: strPtr("pay_123"), Status: models.StatusCaptured, LastEventAt: &later},
			from:   captureFrom,
			update: captureUpdate(t0),
		},
		{
			name:    "same instant as last applied event",
			record:  models.PaymentRecord{PaymentID: strPtr("pay_123"), Status: models.StatusCaptured, LastEventAt: &t0},
			from:    captureFrom,
			update:  captureUpdate(t0),
			applied: true,
		},
		{
			name:    "untimed event skips the time guard",
			record:  models.PaymentRecord{PaymentID: strPtr("pay_123"), Status: models.StatusCaptured, LastEventAt: &later},
			from:    captureFrom,
			update:  captureUpdate(time.Time{}),
			applied: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepository(t)
			seed(t, repo, tt.record)

			applied, err := repo.ApplyUpdate(context.Background(), models.RecordKey{PaymentID: "pay_123"}, tt.from, tt.update)
			require.NoError(t, err)
			assert.Equal(t, tt.applied, applied)

			record, err := repo.FindByPaymentID(context.Background(), "pay_123")
			require.NoError(t, err)
			if !tt.applied {
				assert.Equal(t, tt.record.Status, record.Status)
				assert.Empty(t, record.PaymentMethod)
			}
		})
	}
}

func TestApplyUpdate_RefundFailedPromotion(t *testing.T) {
	refundFailed := models.PaymentUpdate{
		Promote:      &models.StatusPromotion{From: models.StatusRefundPending, To: models.StatusRefundFailed},
		RefundStatus: strPtr("failed"),
		UpdatedAt:    now,
	}
	from := []models.PaymentStatus{models.StatusCaptured, models.StatusRefundPending, models.StatusRefundFailed}

	tests := []struct {
		start models.PaymentStatus
		want  models.PaymentStatus
	}{
		{start: models.StatusRefundPending, want: models.StatusRefundFailed},
		{start: models.StatusCaptured, want: models.StatusCaptured},
	}
	for _, tt := range tests {
		t.Run(string(tt.start), func(t *testing.T) {
			repo := newTestRepository(t)
			seed(t, repo, models.PaymentRecord{PaymentID: strPtr("pay_123"), Status: tt.start})

			applied, err := repo.ApplyUpdate(context.Background(), models.RecordKey{PaymentID: "pay_123"}, from, refundFailed)
			require.NoError(t, err)
			assert.True(t, applied)

			record, err := repo.FindByPaymentID(context.Background(), "pay_123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, record.Status)
			assert.Equal(t, "failed", record.RefundStatus)
		})
	}
}

func TestApplyUpdate_RefundedAtDefaultKeepsFirstValue(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seed(t, repo, models.PaymentRecord{PaymentID: strPtr("pay_123"), Status: models.StatusCaptured})
	from := []models.PaymentStatus{models.StatusCaptured, models.StatusRefunded}

	refund := func(arrived time.Time) models.PaymentUpdate {
		return models.PaymentUpdate{
			Status:            statusPtr(models.StatusRefunded),
			RefundID:          strPtr("rf_1"),
			RefundedAtDefault: &arrived,
			UpdatedAt:         arrived,
		}
	}

	_, err := repo.ApplyUpdate(ctx, models.RecordKey{PaymentID: "pay_123"}, from, refund(now))
	require.NoError(t, err)
	applied, err := repo.ApplyUpdate(ctx, models.RecordKey{PaymentID: "pay_123"}, from, refund(now.Add(time.Minute)))
	require.NoError(t, err)
	assert.True(t, applied)

	record, err := repo.FindByPaymentID(ctx, "pay_123")
	require.NoError(t, err)
	require.NotNil(t, record.RefundedAt)
	assert.True(t, now.Equal(*record.RefundedAt))
}

func TestFindByUserID_Paginates(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	for i, order := range []string{"o1", "o2", "o3"} {
		seed(t, repo, models.PaymentRecord{OrderID: order, UserID: "user-1", Status: models.StatusCreated, CreatedAt: t0.Add(time.Duration(i) * time.Minute)})
	}
	seed(t, repo, models.PaymentRecord{OrderID: "other", UserID: "user-2", Status: models.StatusCreated})

	records, total, err := repo.FindByUserID(ctx, "user-1", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, records, 2)
	assert.Equal(t, "o3", records[0].OrderID)

	records, _, err = repo.FindByUserID(ctx, "user-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "o1", records[0].OrderID)
}

func TestListBetween(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo, models.PaymentRecord{OrderID: "jan", Status: models.StatusCreated, CreatedAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)})
	seed(t, repo, models.PaymentRecord{OrderID: "feb", Status: models.StatusCreated, CreatedAt: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)})

	records, err := repo.ListBetween(context.Background(),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "feb", records[0].OrderID)
}
