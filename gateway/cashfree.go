package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/upgradeforless/UpgradeForLess/models"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

const (
	CashfreeSignatureHeader = "x-webhook-signature"
	CashfreeTimestampHeader = "x-webhook-timestamp"

	cashfreeAPIVersion     = "2023-08-01"
	cashfreeSandboxURL     = "https://sandbox.cashfree.com"
	cashfreeProductionURL  = "https://api.cashfree.com"
	cashfreeDefaultPurpose = "UpgradeForLess subscription"
)

// Cashfree event types
const (
	cashfreePaymentSuccess = "PAYMENT_SUCCESS_WEBHOOK"
	cashfreePaymentFailed  = "PAYMENT_FAILED_WEBHOOK"
	cashfreeRefundStatus   = "REFUND_STATUS_WEBHOOK"
	cashfreePaymentLink    = "PAYMENT_LINK_EVENT"
)

// Cashfree is the payment-link gateway
type Cashfree struct {
	appID         string
	secret        string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
	now           func() time.Time
	tolerance     time.Duration
}

// CashfreeOption customizes the adapter
type CashfreeOption func(*Cashfree)

// WithCashfreeBaseURL points the adapter at another API host
func WithCashfreeBaseURL(baseURL string) CashfreeOption {
	return func(c *Cashfree) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithCashfreeClock overrides the clock used when signing
func WithCashfreeClock(now func() time.Time) CashfreeOption {
	return func(c *Cashfree) { c.now = now }
}

// WithCashfreeTolerance rejects webhooks whose signed timestamp is further than d
// from the clock. Zero disables the check.
func WithCashfreeTolerance(d time.Duration) CashfreeOption {
	return func(c *Cashfree) { c.tolerance = d }
}

// NewCashfree creates the Cashfree adapter. env is "sandbox" or "production".
func NewCashfree(appID, secret, webhookSecret, env string, opts ...CashfreeOption) *Cashfree {
	c := &Cashfree{
		appID:         appID,
		secret:        secret,
		webhookSecret: webhookSecret,
		baseURL:       cashfreeSandboxURL,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		now:           time.Now,
	}
	if env == "production" {
		c.baseURL = cashfreeProductionURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements PaymentGateway
func (c *Cashfree) Name() string {
	return models.ProviderCashfree
}

type cashfreeLinkRequest struct {
	LinkID          string                  `json:"link_id"`
	LinkAmount      float64                 `json:"link_amount"`
	LinkCurrency    string                  `json:"link_currency"`
	LinkPurpose     string                  `json:"link_purpose"`
	CustomerDetails cashfreeCustomerDetails `json:"customer_details"`
	LinkNotes       map[string]string       `json:"link_notes,omitempty"`
}

type cashfreeCustomerDetails struct {
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
}

type cashfreeLinkResponse struct {
	LinkID       string          `json:"link_id"`
	LinkStatus   string          `json:"link_status"`
	LinkAmount   decimal.Decimal `json:"link_amount"`
	LinkCurrency string          `json:"link_currency"`
	LinkURL      string          `json:"link_url"`
	Message      string          `json:"message"`
}

// CreateOrder creates a payment link. The receipt becomes the link id, which
// payment-link events echo back as the order id.
func (c *Cashfree) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if c.appID == "" || c.secret == "" {
		return nil, ErrMissingCredentials
	}

	notes := make(map[string]string, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	purpose := notes["purpose"]
	if purpose == "" {
		purpose = cashfreeDefaultPurpose
	}
	payload := cashfreeLinkRequest{
		LinkID:       req.Receipt,
		LinkAmount:   utils.FromMinorUnits(req.Amount).InexactFloat64(),
		LinkCurrency: req.Currency,
		LinkPurpose:  purpose,
		CustomerDetails: cashfreeCustomerDetails{
			CustomerPhone: notes["customer_phone"],
			CustomerEmail: notes["customer_email"],
			CustomerName:  notes["customer_name"],
		},
		LinkNotes: notes,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("cashfree link request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pg/links", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cashfree link request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.appID)
	httpReq.Header.Set("x-client-secret", c.secret)
	httpReq.Header.Set("x-api-version", cashfreeAPIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cashfree link request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, utils.MaxWebhookBodySize))
	if err != nil {
		return nil, fmt.Errorf("cashfree link response: %w", err)
	}

	var link cashfreeLinkResponse
	if err := json.Unmarshal(respBody, &link); err != nil {
		return nil, fmt.Errorf("cashfree link response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("cashfree link create failed with status %d: %s", resp.StatusCode, link.Message)
	}

	amount, err := utils.ToMinorUnits(link.LinkAmount)
	if err != nil {
		return nil, fmt.Errorf("cashfree link response: %w", err)
	}
	return &Order{
		ID:         link.LinkID,
		Amount:     amount,
		Currency:   link.LinkCurrency,
		Receipt:    req.Receipt,
		Status:     strings.ToLower(link.LinkStatus),
		PaymentURL: link.LinkURL,
	}, nil
}

// VerifySignature checks x-webhook-signature = base64(HMAC-SHA256(secret, timestamp || body))
func (c *Cashfree) VerifySignature(rawBody []byte, headers http.Header) error {
	if c.webhookSecret == "" {
		return ErrMissingSecret
	}
	if len(rawBody) == 0 {
		return ErrEmptyBody
	}
	signature := headers.Get(CashfreeSignatureHeader)
	timestamp := headers.Get(CashfreeTimestampHeader)
	if signature == "" || timestamp == "" {
		return ErrMissingSignature
	}
	if !signaturesEqual(SignBase64(c.webhookSecret, timestamp, rawBody), signature) {
		return ErrSignatureMismatch
	}
	return c.checkTimestamp(timestamp)
}

// checkTimestamp runs after the HMAC check so only signed timestamps are judged
func (c *Cashfree) checkTimestamp(timestamp string) error {
	if c.tolerance <= 0 {
		return nil
	}
	ms, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not epoch milliseconds", ErrStaleTimestamp, timestamp)
	}
	skew := c.now().Sub(time.UnixMilli(ms))
	if skew < 0 {
		skew = -skew
	}
	if skew > c.tolerance {
		return fmt.Errorf("%w: signed %s ago", ErrStaleTimestamp, skew.Round(time.Second))
	}
	return nil
}

// Sign implements Signer
func (c *Cashfree) Sign(rawBody []byte) (http.Header, error) {
	if c.webhookSecret == "" {
		return nil, ErrMissingSecret
	}
	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	h := http.Header{}
	h.Set(CashfreeTimestampHeader, timestamp)
	h.Set(CashfreeSignatureHeader, SignBase64(c.webhookSecret, timestamp, rawBody))
	return h, nil
}

// DeliveryID implements PaymentGateway. Cashfree sends no delivery id.
func (c *Cashfree) DeliveryID(headers http.Header) string {
	return ""
}

type cashfreeEnvelope struct {
	Type      string          `json:"type"`
	EventTime string          `json:"event_time"`
	Data      json.RawMessage `json:"data"`
}

// cashfreeID accepts ids sent either as JSON numbers or strings
type cashfreeID string

func (id *cashfreeID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = cashfreeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = cashfreeID(n.String())
	return nil
}

type cashfreePaymentData struct {
	Order struct {
		OrderID   string            `json:"order_id"`
		OrderTags map[string]string `json:"order_tags"`
	} `json:"order"`
	Payment struct {
		CFPaymentID     cashfreeID      `json:"cf_payment_id"`
		PaymentStatus   string          `json:"payment_status"`
		PaymentAmount   decimal.Decimal `json:"payment_amount"`
		PaymentCurrency string          `json:"payment_currency"`
		PaymentMessage  string          `json:"payment_message"`
		PaymentGroup    string          `json:"payment_group"`
	} `json:"payment"`
	ErrorDetails *struct {
		ErrorCode        string `json:"error_code"`
		ErrorDescription string `json:"error_description"`
	} `json:"error_details"`
}

type cashfreeRefundData struct {
	Refund struct {
		CFRefundID        cashfreeID      `json:"cf_refund_id"`
		CFPaymentID       cashfreeID      `json:"cf_payment_id"`
		RefundID          string          `json:"refund_id"`
		OrderID           string          `json:"order_id"`
		RefundAmount      decimal.Decimal `json:"refund_amount"`
		RefundCurrency    string          `json:"refund_currency"`
		RefundStatus      string          `json:"refund_status"`
		StatusDescription string          `json:"status_description"`
	} `json:"refund"`
}

type cashfreeLinkData struct {
	LinkID     string            `json:"link_id"`
	LinkStatus string            `json:"link_status"`
	LinkAmount decimal.Decimal   `json:"link_amount_paid"`
	Currency   string            `json:"link_currency"`
	LinkNotes  map[string]string `json:"link_notes"`
	Order      struct {
		OrderID           string     `json:"order_id"`
		TransactionID     cashfreeID `json:"transaction_id"`
		TransactionStatus string     `json:"transaction_status"`
	} `json:"order"`
}

// NormalizeEvent implements PaymentGateway
func (c *Cashfree) NormalizeEvent(rawBody []byte) (*models.NormalizedEvent, error) {
	var env cashfreeEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	event := &models.NormalizedEvent{
		Provider:      models.ProviderCashfree,
		Kind:          models.EventKind(strings.ToLower(env.Type)),
		ProviderEvent: env.Type,
		RawEntity:     env.Data,
	}
	if t, err := time.Parse(time.RFC3339, env.EventTime); err == nil {
		event.OccurredAt = t.UTC()
	}

	switch env.Type {
	case cashfreePaymentSuccess, cashfreePaymentFailed:
		var data cashfreePaymentData
		if err := decodeCashfreeData(env.Data, &data); err != nil {
			return nil, err
		}
		if data.Payment.CFPaymentID == "" {
			return nil, fmt.Errorf("%w: payment has no cf_payment_id", ErrMalformedPayload)
		}
		amount, err := utils.ToMinorUnits(data.Payment.PaymentAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		event.PaymentID = string(data.Payment.CFPaymentID)
		event.OrderID = data.Order.OrderID
		// links create their own orders; the tag points back at our link id
		if linkID := data.Order.OrderTags["link_id"]; linkID != "" {
			event.OrderID = linkID
		}
		event.UserID = data.Order.OrderTags["user_id"]
		event.Method = data.Payment.PaymentGroup
		event.Amount = amount
		event.Currency = data.Payment.PaymentCurrency

		if env.Type == cashfreePaymentSuccess {
			event.Kind = models.EventPaymentCaptured
			event.Status = string(models.StatusCaptured)
		} else {
			event.Kind = models.EventPaymentFailed
			event.Status = string(models.StatusFailed)
			event.ErrorDescription = data.Payment.PaymentMessage
			if data.ErrorDetails != nil {
				event.ErrorCode = data.ErrorDetails.ErrorCode
				if data.ErrorDetails.ErrorDescription != "" {
					event.ErrorDescription = data.ErrorDetails.ErrorDescription
				}
			}
		}

	case cashfreeRefundStatus:
		var data cashfreeRefundData
		if err := decodeCashfreeData(env.Data, &data); err != nil {
			return nil, err
		}
		if data.Refund.CFPaymentID == "" {
			return nil, fmt.Errorf("%w: refund has no cf_payment_id", ErrMalformedPayload)
		}
		amount, err := utils.ToMinorUnits(data.Refund.RefundAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		event.PaymentID = string(data.Refund.CFPaymentID)
		event.RefundID = data.Refund.RefundID
		if event.RefundID == "" {
			event.RefundID = string(data.Refund.CFRefundID)
		}
		event.Amount = amount
		event.Currency = data.Refund.RefundCurrency

		switch strings.ToUpper(data.Refund.RefundStatus) {
		case "SUCCESS":
			event.Kind = models.EventRefundProcessed
			event.RefundStatus = "processed"
		case "FAILED", "CANCELLED":
			event.Kind = models.EventRefundFailed
			event.RefundStatus = "failed"
			event.ErrorCode = strings.ToLower(data.Refund.RefundStatus)
			event.ErrorDescription = data.Refund.StatusDescription
		default:
			// pending and on-hold refunds carry nothing to reconcile yet
			event.Kind = models.EventKind("refund." + strings.ToLower(data.Refund.RefundStatus))
		}
		event.Status = event.RefundStatus

	case cashfreePaymentLink:
		var data cashfreeLinkData
		if err := decodeCashfreeData(env.Data, &data); err != nil {
			return nil, err
		}
		if strings.ToUpper(data.LinkStatus) != "PAID" {
			event.Kind = models.EventKind("payment_link." + strings.ToLower(data.LinkStatus))
			return event, nil
		}
		if data.Order.TransactionID == "" {
			return nil, fmt.Errorf("%w: paid link has no transaction_id", ErrMalformedPayload)
		}
		amount, err := utils.ToMinorUnits(data.LinkAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		event.Kind = models.EventPaymentCaptured
		event.Status = string(models.StatusCaptured)
		event.PaymentID = string(data.Order.TransactionID)
		event.OrderID = data.LinkID
		event.Amount = amount
		event.Currency = data.Currency
		event.UserID = data.LinkNotes["user_id"]
	}

	return event, nil
}

func decodeCashfreeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: data missing", ErrMalformedPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}
