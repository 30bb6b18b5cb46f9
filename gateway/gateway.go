// Package gateway holds one adapter per payment provider behind a common
// capability surface, so the reconciler never branches on provider.
package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/upgradeforless/UpgradeForLess/models"
)

var (
	// ErrMissingSecret means the webhook secret is not configured
	ErrMissingSecret = errors.New("webhook secret not configured")
	// ErrMissingCredentials means API credentials are not configured
	ErrMissingCredentials = errors.New("gateway credentials not configured")
	// ErrMissingSignature means the signature header(s) were absent
	ErrMissingSignature = errors.New("missing signature header")
	// ErrEmptyBody means the request carried no payload
	ErrEmptyBody = errors.New("empty request body")
	// ErrStaleTimestamp means a signed timestamp is unparsable or outside the replay window
	ErrStaleTimestamp = errors.New("webhook timestamp outside tolerance")
	// ErrSignatureMismatch means the computed HMAC did not match the header
	ErrSignatureMismatch = errors.New("signature mismatch")
	// ErrMalformedPayload means the body is not the JSON shape the provider documents
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrRefundUnsupported means the provider adapter cannot issue refunds
	ErrRefundUnsupported = errors.New("refunds not supported by provider")
)

// OrderRequest is what the checkout flow asks a provider to create
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is the provider's answer to OrderRequest
type Order struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	PaymentURL string `json:"payment_url,omitempty"`
	// KeyID is the public key a client-side checkout needs, when the provider has one
	KeyID string `json:"key_id,omitempty"`
}

// Refund is a refund accepted by the provider
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// PaymentGateway is implemented once per provider
type PaymentGateway interface {
	Name() string
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// VerifySignature checks rawBody exactly as received
	VerifySignature(rawBody []byte, headers http.Header) error
	// NormalizeEvent maps a verified body to a NormalizedEvent. Unrecognized
	// provider events come back with a Kind for which Known() is false.
	NormalizeEvent(rawBody []byte) (*models.NormalizedEvent, error)
	// DeliveryID returns the provider's delivery id header, or ""
	DeliveryID(headers http.Header) string
}

// Signer produces the headers a provider would send for rawBody
type Signer interface {
	Sign(rawBody []byte) (http.Header, error)
}

// Refunder is implemented by providers that support API refunds
type Refunder interface {
	Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error)
}
