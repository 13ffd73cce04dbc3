package output

import (
	"context"

	"github.com/cashflow/payment-lifecycle/internal/core"
)

// PaymentMessaging is an output port (secondary port) for payment messaging
// Secondary adapters (RabbitMQ implementations) will implement this
type PaymentMessaging interface {
	// PublishPaymentEvent publishes a persisted payment change
	PublishPaymentEvent(ctx context.Context, event core.PaymentEvent) error
	// Close closes the messaging connection
	Close() error
}

// PaymentEventRepository stores the audit trail built from payment events
type PaymentEventRepository interface {
	// Append stores the event; an event already stored returns core.ErrDuplicateEvent
	Append(ctx context.Context, event core.PaymentEvent) error
	// ListByReference returns a payment's events in recording order
	ListByReference(ctx context.Context, reference string) ([]core.PaymentEvent, error)
}
