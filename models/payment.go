package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentStatus is the lifecycle state of a payment record
type PaymentStatus string

const (
	StatusCreated       PaymentStatus = "created"
	StatusAuthorized    PaymentStatus = "authorized"
	StatusCaptured      PaymentStatus = "captured"
	StatusFailed        PaymentStatus = "failed"
	StatusRefunded      PaymentStatus = "refunded"
	StatusRefundPending PaymentStatus = "refund_pending"
	StatusRefundFailed  PaymentStatus = "refund_failed"
)

// Valid reports whether s is one of the known statuses
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusAuthorized, StatusCaptured, StatusFailed,
		StatusRefunded, StatusRefundPending, StatusRefundFailed:
		return true
	}
	return false
}

// Provider names
const (
	ProviderRazorpay = "razorpay"
	ProviderCashfree = "cashfree"
)

// PaymentRecord is the durable row for one provider payment.
// PaymentID is nil until the first event for an order-time record arrives.
type PaymentRecord struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	Provider         string         `json:"provider" gorm:"size:32;not null"`
	PaymentID        *string        `json:"payment_id" gorm:"size:128;uniqueIndex"`
	OrderID          string         `json:"order_id" gorm:"size:128;index"`
	Amount           int64          `json:"amount"`
	Currency         string         `json:"currency" gorm:"size:8"`
	Status           PaymentStatus  `json:"status" gorm:"size:32;not null;index"`
	PaymentMethod    string         `json:"payment_method,omitempty" gorm:"size:64"`
	ErrorCode        string         `json:"error_code,omitempty" gorm:"size:128"`
	ErrorDescription string         `json:"error_description,omitempty"`
	RefundID         string         `json:"refund_id,omitempty" gorm:"size:128"`
	RefundAmount     int64          `json:"refund_amount,omitempty"`
	RefundStatus     string         `json:"refund_status,omitempty" gorm:"size:32"`
	RefundedAt       *time.Time     `json:"refunded_at,omitempty"`
	Metadata         datatypes.JSON `json:"metadata,omitempty"`
	LastEventAt      *time.Time     `json:"last_event_at,omitempty"`
	UserID           string         `json:"user_id,omitempty" gorm:"size:64;index"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TableName keeps the table name stable across struct renames
func (PaymentRecord) TableName() string {
	return "payment_records"
}

// PaymentIDValue returns the provider payment id or ""
func (r *PaymentRecord) PaymentIDValue() string {
	if r.PaymentID == nil {
		return ""
	}
	return *r.PaymentID
}

// RecordKey identifies the row an event applies to. OrderID is only used to bind
// an order-time record that has no payment id yet.
type RecordKey struct {
	PaymentID string
	OrderID   string
}

// StatusPromotion replaces the status only when the row is currently in From
type StatusPromotion struct {
	From PaymentStatus
	To   PaymentStatus
}

// PaymentUpdate is the set of absolute field values one event writes.
// Nil fields are left untouched.
type PaymentUpdate struct {
	Status           *PaymentStatus
	Promote          *StatusPromotion
	PaymentMethod    *string
	ErrorCode        *string
	ErrorDescription *string
	RefundID         *string
	RefundAmount     *int64
	RefundStatus     *string
	RefundedAt       *time.Time
	// RefundedAtDefault fills refunded_at only when the row has none
	RefundedAtDefault *time.Time
	// UserID fills user_id only when the row has none
	UserID    string
	Metadata  datatypes.JSON
	EventAt   time.Time
	UpdatedAt time.Time
}
