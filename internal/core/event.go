package core

import (
	"time"

	"github.com/google/uuid"
)

// EventSource names the operation that produced a payment event
type EventSource string

const (
	EventSourceInitiate EventSource = "initiate"
	EventSourceUpdate   EventSource = "update"
	EventSourceWebhook  EventSource = "webhook"
)

// PaymentEvent records one persisted change of a payment
type PaymentEvent struct {
	EventID               uuid.UUID     `json:"event_id"`
	PaymentReference      string        `json:"payment_reference"`
	PreviousStatus        PaymentStatus `json:"previous_status,omitempty"`
	Status                PaymentStatus `json:"status"`
	ProviderTransactionID string        `json:"provider_transaction_id,omitempty"`
	Source                EventSource   `json:"source"`
	// OccurredAt is the provider's timestamp for webhook events. It is kept
	// for audit only and never used to order or reject changes.
	OccurredAt time.Time `json:"occurred_at"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewPaymentEvent builds an event for p after a change from previous
func NewPaymentEvent(p *Payment, previous PaymentStatus, source EventSource, occurredAt time.Time) PaymentEvent {
	now := time.Now().UTC()
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return PaymentEvent{
		EventID:               uuid.New(),
		PaymentReference:      p.Reference,
		PreviousStatus:        previous,
		Status:                p.Status,
		ProviderTransactionID: p.ProviderTransactionID,
		Source:                source,
		OccurredAt:            occurredAt,
		RecordedAt:            now,
	}
}
