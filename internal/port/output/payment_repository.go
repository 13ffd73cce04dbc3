package output

import (
	"context"

	"github.com/cashflow/payment-lifecycle/internal/core"
)

// PaymentRepository is an output port (secondary port) for payment data access
// Secondary adapters (database implementations) will implement this
type PaymentRepository interface {
	// Create persists a new payment. A reference collision returns core.ErrDuplicateReference.
	Create(ctx context.Context, payment *core.Payment) error

	// FindByReference retrieves a payment by its reference, core.ErrPaymentNotFound if absent
	FindByReference(ctx context.Context, reference string) (*core.Payment, error)

	// Save writes the payment only if the stored version still equals payment.Version.
	// On success payment.Version and payment.UpdatedAt are advanced; a stale version
	// returns core.ErrConcurrentUpdate.
	Save(ctx context.Context, payment *core.Payment) error
}
