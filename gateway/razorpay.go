package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/upgradeforless/UpgradeForLess/models"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

const (
	RazorpaySignatureHeader = "X-Razorpay-Signature"
	RazorpayEventIDHeader   = "X-Razorpay-Event-Id"
)

// razorpayOrders and razorpayPayments are the slices of the SDK client we call
type razorpayOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type razorpayPayments interface {
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay is the card-payment gateway
type Razorpay struct {
	keyID         string
	keySecret     string
	webhookSecret string
	orders        razorpayOrders
	payments      razorpayPayments
}

// NewRazorpay creates the Razorpay adapter
func NewRazorpay(keyID, keySecret, webhookSecret string) *Razorpay {
	client := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		orders:        client.Order,
		payments:      client.Payment,
	}
}

// Name implements PaymentGateway
func (r *Razorpay) Name() string {
	return models.ProviderRazorpay
}

// CreateOrder creates an auto-capture order
func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if r.keyID == "" || r.keySecret == "" {
		return nil, ErrMissingCredentials
	}

	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	orderData := map[string]interface{}{
		"amount":          req.Amount,
		"currency":        req.Currency,
		"receipt":         req.Receipt,
		"notes":           notes,
		"payment_capture": 1,
	}
	utils.LogDebug("Creating Razorpay order with receipt %s, amount %d %s", req.Receipt, req.Amount, req.Currency)

	rzOrder, err := r.orders.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create: %w", err)
	}

	order := &Order{
		ID:       stringField(rzOrder, "id"),
		Amount:   int64Field(rzOrder, "amount"),
		Currency: stringField(rzOrder, "currency"),
		Receipt:  stringField(rzOrder, "receipt"),
		Status:   stringField(rzOrder, "status"),
		KeyID:    r.keyID,
	}
	if order.ID == "" {
		return nil, fmt.Errorf("razorpay order create: response carried no id")
	}
	return order, nil
}

// Refund issues a refund through the payments API
func (r *Razorpay) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error) {
	if r.keyID == "" || r.keySecret == "" {
		return nil, ErrMissingCredentials
	}

	data := map[string]interface{}{}
	if len(notes) > 0 {
		n := make(map[string]interface{}, len(notes))
		for k, v := range notes {
			n[k] = v
		}
		data["notes"] = n
	}

	resp, err := r.payments.Refund(paymentID, int(amount), data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay refund: %w", err)
	}
	return &Refund{
		ID:        stringField(resp, "id"),
		PaymentID: stringField(resp, "payment_id"),
		Amount:    int64Field(resp, "amount"),
		Status:    stringField(resp, "status"),
	}, nil
}

// VerifySignature checks X-Razorpay-Signature = hex(HMAC-SHA256(secret, body))
func (r *Razorpay) VerifySignature(rawBody []byte, headers http.Header) error {
	if r.webhookSecret == "" {
		return ErrMissingSecret
	}
	if len(rawBody) == 0 {
		return ErrEmptyBody
	}
	signature := headers.Get(RazorpaySignatureHeader)
	if signature == "" {
		return ErrMissingSignature
	}
	if !signaturesEqual(SignHex(r.webhookSecret, rawBody), signature) {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign implements Signer
func (r *Razorpay) Sign(rawBody []byte) (http.Header, error) {
	if r.webhookSecret == "" {
		return nil, ErrMissingSecret
	}
	h := http.Header{}
	h.Set(RazorpaySignatureHeader, SignHex(r.webhookSecret, rawBody))
	return h, nil
}

// DeliveryID implements PaymentGateway
func (r *Razorpay) DeliveryID(headers http.Header) string {
	return headers.Get(RazorpayEventIDHeader)
}

type razorpayEnvelope struct {
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Payment *razorpayEntity `json:"payment"`
		Refund  *razorpayEntity `json:"refund"`
	} `json:"payload"`
}

type razorpayEntity struct {
	Entity json.RawMessage `json:"entity"`
}

type razorpayPayment struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	Method           string          `json:"method"`
	ErrorCode        string          `json:"error_code"`
	ErrorDescription string          `json:"error_description"`
	Notes            json.RawMessage `json:"notes"`
}

type razorpayRefund struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Notes     json.RawMessage `json:"notes"`
}

// NormalizeEvent implements PaymentGateway
func (r *Razorpay) NormalizeEvent(rawBody []byte) (*models.NormalizedEvent, error) {
	var env razorpayEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	event := &models.NormalizedEvent{
		Provider:      models.ProviderRazorpay,
		Kind:          models.EventKind(env.Event),
		ProviderEvent: env.Event,
	}
	if env.CreatedAt > 0 {
		event.OccurredAt = time.Unix(env.CreatedAt, 0).UTC()
	}

	switch event.Kind {
	case models.EventPaymentCaptured, models.EventPaymentFailed:
		payment, raw, err := decodeRazorpayPayment(env.Payload.Payment)
		if err != nil {
			return nil, err
		}
		event.PaymentID = payment.ID
		event.OrderID = payment.OrderID
		event.Status = payment.Status
		event.Method = payment.Method
		event.Amount = payment.Amount
		event.Currency = payment.Currency
		event.ErrorCode = payment.ErrorCode
		event.ErrorDescription = payment.ErrorDescription
		event.UserID = noteValue(payment.Notes, "user_id")
		event.RawEntity = raw

	case models.EventRefundProcessed, models.EventRefundFailed:
		if env.Payload.Refund == nil || len(env.Payload.Refund.Entity) == 0 {
			return nil, fmt.Errorf("%w: refund entity missing", ErrMalformedPayload)
		}
		var refund razorpayRefund
		if err := json.Unmarshal(env.Payload.Refund.Entity, &refund); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if refund.PaymentID == "" {
			return nil, fmt.Errorf("%w: refund entity has no payment_id", ErrMalformedPayload)
		}
		event.PaymentID = refund.PaymentID
		event.RefundID = refund.ID
		event.Amount = refund.Amount
		event.Currency = refund.Currency
		event.RefundStatus = refund.Status
		event.Status = refund.Status
		event.UserID = noteValue(refund.Notes, "user_id")
		event.RawEntity = env.Payload.Refund.Entity

		// refund.failed carries the payment entity with the reason
		if payment, _, err := decodeRazorpayPayment(env.Payload.Payment); err == nil {
			event.OrderID = payment.OrderID
			event.ErrorCode = payment.ErrorCode
			event.ErrorDescription = payment.ErrorDescription
			if event.UserID == "" {
				event.UserID = noteValue(payment.Notes, "user_id")
			}
		}
	}

	return event, nil
}

func decodeRazorpayPayment(e *razorpayEntity) (*razorpayPayment, json.RawMessage, error) {
	if e == nil || len(e.Entity) == 0 {
		return nil, nil, fmt.Errorf("%w: payment entity missing", ErrMalformedPayload)
	}
	var payment razorpayPayment
	if err := json.Unmarshal(e.Entity, &payment); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payment.ID == "" {
		return nil, nil, fmt.Errorf("%w: payment entity has no id", ErrMalformedPayload)
	}
	return &payment, e.Entity, nil
}

// noteValue reads a string note. Razorpay sends notes as [] when empty.
func noteValue(raw json.RawMessage, key string) string {
	if len(raw) == 0 {
		return ""
	}
	var notes map[string]interface{}
	if err := json.Unmarshal(raw, &notes); err != nil {
		return ""
	}
	if v, ok := notes[key].(string); ok {
		return v
	}
	return ""
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func int64Field(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}
