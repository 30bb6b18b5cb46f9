package models

import (
	"encoding/json"
	"time"
)

// EventKind is the provider-agnostic name of a webhook event
type EventKind string

const (
	EventPaymentCaptured EventKind = "payment.captured"
	EventPaymentFailed   EventKind = "payment.failed"
	EventRefundProcessed EventKind = "refund.processed"
	EventRefundFailed    EventKind = "refund.failed"
)

// Known reports whether the reconciler acts on k
func (k EventKind) Known() bool {
	switch k {
	case EventPaymentCaptured, EventPaymentFailed, EventRefundProcessed, EventRefundFailed:
		return true
	}
	return false
}

// NormalizedEvent is one provider notification mapped onto a single shape.
// For refund events PaymentID is the refunded payment, not the refund id.
type NormalizedEvent struct {
	Provider         string          `json:"provider"`
	Kind             EventKind       `json:"kind"`
	ProviderEvent    string          `json:"provider_event"`
	PaymentID        string          `json:"payment_id"`
	OrderID          string          `json:"order_id,omitempty"`
	RefundID         string          `json:"refund_id,omitempty"`
	Status           string          `json:"status,omitempty"`
	Method           string          `json:"method,omitempty"`
	Amount           int64           `json:"amount,omitempty"`
	Currency         string          `json:"currency,omitempty"`
	RefundStatus     string          `json:"refund_status,omitempty"`
	ErrorCode        string          `json:"error_code,omitempty"`
	ErrorDescription string          `json:"error_description,omitempty"`
	UserID           string          `json:"user_id,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	RawEntity        json.RawMessage `json:"raw_entity,omitempty"`
}
