package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
)

// PaymentEventRecorder turns consumed payment events into the audit trail
type PaymentEventRecorder struct {
	eventRepo output.PaymentEventRepository
}

// NewPaymentEventRecorder creates a new payment event recorder
func NewPaymentEventRecorder(eventRepo output.PaymentEventRepository) *PaymentEventRecorder {
	return &PaymentEventRecorder{
		eventRepo: eventRepo,
	}
}

// RecordEvent stores event once. Redelivered events are reported as
// core.ErrDuplicateEvent so the consumer can acknowledge them.
func (r *PaymentEventRecorder) RecordEvent(ctx context.Context, event core.PaymentEvent) error {
	if event.PaymentReference == "" {
		return fmt.Errorf("%w: event %s has no payment reference", core.ErrInvalidInput, event.EventID)
	}
	if !event.Status.IsValid() {
		return fmt.Errorf("%w: event %s has unknown status %q", core.ErrInvalidInput, event.EventID, event.Status)
	}

	if err := r.eventRepo.Append(ctx, event); err != nil {
		if errors.Is(err, core.ErrDuplicateEvent) {
			log.Printf("Event %s already recorded for payment %s", event.EventID, event.PaymentReference)
		}
		return fmt.Errorf("failed to record payment event: %w", err)
	}

	log.Printf("Recorded %s event for payment %s: %s -> %s",
		event.Source, event.PaymentReference, event.PreviousStatus, event.Status)
	return nil
}

// History returns the recorded events of a payment
func (r *PaymentEventRecorder) History(ctx context.Context, reference string) ([]core.PaymentEvent, error) {
	return r.eventRepo.ListByReference(ctx, reference)
}
