package services

import (
	"context"
	"sync"
	"time"

	"github.com/upgradeforless/UpgradeForLess/models"
	"github.com/upgradeforless/UpgradeForLess/repository"
)

// memStore mirrors the conditional UPDATE of repository.PaymentRepository
type memStore struct {
	mu         sync.Mutex
	records    []*models.PaymentRecord
	nextID     uint
	applyCalls int
	createErr  error
	applyErr   error
}

func (m *memStore) Create(ctx context.Context, record *models.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	record.ID = m.nextID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Date(2024, 1, 1, 0, 0, int(m.nextID), 0, time.UTC)
	}
	stored := *record
	m.records = append(m.records, &stored)
	return nil
}

func (m *memStore) seed(record models.PaymentRecord) {
	_ = m.Create(context.Background(), &record)
}

func (m *memStore) target(key models.RecordKey) *models.PaymentRecord {
	for _, r := range m.records {
		if r.PaymentIDValue() == key.PaymentID {
			return r
		}
	}
	if key.OrderID == "" {
		return nil
	}
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.OrderID == key.OrderID && (r.PaymentID == nil || r.Status == models.StatusFailed) {
			return r
		}
	}
	return nil
}

func (m *memStore) ApplyUpdate(ctx context.Context, key models.RecordKey, allowedFrom []models.PaymentStatus, update models.PaymentUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyCalls++
	if m.applyErr != nil {
		return false, m.applyErr
	}

	r := m.target(key)
	if r == nil || !containsStatus(allowedFrom, r.Status) {
		return false, nil
	}
	if !update.EventAt.IsZero() && r.LastEventAt != nil && r.LastEventAt.After(update.EventAt) {
		return false, nil
	}

	paymentID := key.PaymentID
	r.PaymentID = &paymentID
	r.UpdatedAt = update.UpdatedAt
	if update.Status != nil {
		r.Status = *update.Status
	}
	if update.Promote != nil && r.Status == update.Promote.From {
		r.Status = update.Promote.To
	}
	if update.PaymentMethod != nil {
		r.PaymentMethod = *update.PaymentMethod
	}
	if update.ErrorCode != nil {
		r.ErrorCode = *update.ErrorCode
	}
	if update.ErrorDescription != nil {
		r.ErrorDescription = *update.ErrorDescription
	}
	if update.RefundID != nil {
		r.RefundID = *update.RefundID
	}
	if update.RefundAmount != nil {
		r.RefundAmount = *update.RefundAmount
	}
	if update.RefundStatus != nil {
		r.RefundStatus = *update.RefundStatus
	}
	if update.RefundedAt != nil {
		t := *update.RefundedAt
		r.RefundedAt = &t
	} else if update.RefundedAtDefault != nil && r.RefundedAt == nil {
		t := *update.RefundedAtDefault
		r.RefundedAt = &t
	}
	if update.Metadata != nil {
		r.Metadata = update.Metadata
	}
	if update.UserID != "" && r.UserID == "" {
		r.UserID = update.UserID
	}
	if !update.EventAt.IsZero() {
		t := update.EventAt
		r.LastEventAt = &t
	}
	return true, nil
}

func (m *memStore) FindByKey(ctx context.Context, key models.RecordKey) (*models.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.PaymentIDValue() == key.PaymentID {
			cp := *r
			return &cp, nil
		}
	}
	if key.OrderID != "" {
		for i := len(m.records) - 1; i >= 0; i-- {
			if m.records[i].OrderID == key.OrderID {
				cp := *m.records[i]
				return &cp, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) FindByPaymentID(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	return m.FindByKey(ctx, models.RecordKey{PaymentID: paymentID})
}

func (m *memStore) FindByUserID(ctx context.Context, userID string, offset, limit int) ([]models.PaymentRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.PaymentRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].UserID == userID {
			all = append(all, *m.records[i])
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *memStore) ListBetween(ctx context.Context, from, to time.Time) ([]models.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PaymentRecord
	for _, r := range m.records {
		if !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) get(paymentID string) models.PaymentRecord {
	r, err := m.FindByPaymentID(context.Background(), paymentID)
	if err != nil {
		return models.PaymentRecord{}
	}
	return *r
}

func ptr(s string) *string {
	return &s
}
