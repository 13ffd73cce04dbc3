package input

import (
	"context"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/shopspring/decimal"
)

// PaymentService is an input port (primary port) for payment operations
// Primary adapters (HTTP handlers) will use this
type PaymentService interface {
	// InitiatePayment creates a new payment in INITIATED status with a fresh reference
	InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*core.Payment, error)

	// GetPaymentByReference retrieves a payment by its reference
	GetPaymentByReference(ctx context.Context, reference string) (*core.Payment, error)

	// UpdatePaymentStatus moves a payment along the transition table
	UpdatePaymentStatus(ctx context.Context, reference string, req UpdateStatusRequest) (*core.Payment, error)

	// ProcessWebhook applies a provider callback, collapsing re-deliveries
	ProcessWebhook(ctx context.Context, req WebhookRequest) (*WebhookOutcome, error)
}

// InitiatePaymentRequest represents the request to initiate a payment
type InitiatePaymentRequest struct {
	Amount        decimal.Decimal
	Currency      core.Currency
	PaymentMethod core.PaymentMethod
	CustomerPhone string
	CustomerEmail string
}

// UpdateStatusRequest represents an explicit status change
type UpdateStatusRequest struct {
	Status                core.PaymentStatus
	ProviderTransactionID string
}

// WebhookRequest represents a provider status callback
type WebhookRequest struct {
	PaymentReference      string
	Status                core.PaymentStatus
	ProviderTransactionID string
	Timestamp             time.Time
}

// WebhookOutcome is returned for every webhook that is not an error
type WebhookOutcome struct {
	Success          bool
	Message          string
	PaymentReference string
}
