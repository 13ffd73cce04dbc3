package database

import (
	"context"
	"fmt"

	"github.com/cashflow/payment-lifecycle/internal/constant/model/db"
	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"gorm.io/gorm"
)

// GormPaymentEventRepository implements the PaymentEventRepository output port
type GormPaymentEventRepository struct {
	gormDB *gorm.DB
}

// NewGormPaymentEventRepository creates a new GORM payment event repository
func NewGormPaymentEventRepository(gormDB *gorm.DB) output.PaymentEventRepository {
	return &GormPaymentEventRepository{gormDB: gormDB}
}

// Append stores an event
func (r *GormPaymentEventRepository) Append(ctx context.Context, event core.PaymentEvent) error {
	row := &db.PaymentEvent{
		EventID:               event.EventID,
		PaymentReference:      event.PaymentReference,
		PreviousStatus:        string(event.PreviousStatus),
		Status:                string(event.Status),
		ProviderTransactionID: event.ProviderTransactionID,
		Source:                string(event.Source),
		OccurredAt:            event.OccurredAt,
		RecordedAt:            event.RecordedAt,
	}
	if err := r.gormDB.WithContext(ctx).Create(row).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("event %s: %w", event.EventID, core.ErrDuplicateEvent)
		}
		return fmt.Errorf("failed to store payment event: %w", err)
	}
	return nil
}

// ListByReference returns a payment's events in the order they were stored
func (r *GormPaymentEventRepository) ListByReference(ctx context.Context, reference string) ([]core.PaymentEvent, error) {
	var rows []db.PaymentEvent
	if err := r.gormDB.WithContext(ctx).
		Where("payment_reference = ?", reference).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payment events: %w", err)
	}

	events := make([]core.PaymentEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, core.PaymentEvent{
			EventID:               row.EventID,
			PaymentReference:      row.PaymentReference,
			PreviousStatus:        core.PaymentStatus(row.PreviousStatus),
			Status:                core.PaymentStatus(row.Status),
			ProviderTransactionID: row.ProviderTransactionID,
			Source:                core.EventSource(row.Source),
			OccurredAt:            row.OccurredAt,
			RecordedAt:            row.RecordedAt,
		})
	}
	return events, nil
}
