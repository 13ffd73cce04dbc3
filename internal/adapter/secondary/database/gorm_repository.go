package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/constant/model/db"
	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"gorm.io/gorm"
)

// GormPaymentRepository is a secondary adapter that implements PaymentRepository output port
type GormPaymentRepository struct {
	gormDB *gorm.DB
}

// NewGormPaymentRepository creates a new GORM payment repository
func NewGormPaymentRepository(gormDB *gorm.DB) output.PaymentRepository {
	return &GormPaymentRepository{gormDB: gormDB}
}

// toCore converts db.Payment to core.Payment
func toCore(p *db.Payment) *core.Payment {
	payment := &core.Payment{
		ID:            p.ID,
		Reference:     p.Reference,
		Amount:        p.Amount,
		Currency:      core.Currency(p.Currency),
		PaymentMethod: core.PaymentMethod(p.PaymentMethod),
		CustomerPhone: p.CustomerPhone,
		CustomerEmail: p.CustomerEmail,
		Status:        core.PaymentStatus(p.Status),
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.ProviderTransactionID != nil {
		payment.ProviderTransactionID = *p.ProviderTransactionID
	}
	return payment
}

// fromCore converts core.Payment to db.Payment
func fromCore(p *core.Payment) *db.Payment {
	return &db.Payment{
		ID:                    p.ID,
		Reference:             p.Reference,
		Amount:                p.Amount,
		Currency:              string(p.Currency),
		PaymentMethod:         string(p.PaymentMethod),
		CustomerPhone:         p.CustomerPhone,
		CustomerEmail:         p.CustomerEmail,
		Status:                string(p.Status),
		ProviderTransactionID: nullable(p.ProviderTransactionID),
		Version:               p.Version,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

// Create creates a new payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *core.Payment) error {
	dbPayment := fromCore(payment)
	if err := r.gormDB.WithContext(ctx).Create(dbPayment).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("payment %s: %w", payment.Reference, core.ErrDuplicateReference)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	// Update core entity with values set by GORM hooks
	payment.ID = dbPayment.ID
	payment.Version = dbPayment.Version
	payment.CreatedAt = dbPayment.CreatedAt
	payment.UpdatedAt = dbPayment.UpdatedAt
	return nil
}

// FindByReference retrieves a payment by its reference
func (r *GormPaymentRepository) FindByReference(ctx context.Context, reference string) (*core.Payment, error) {
	var dbPayment db.Payment
	if err := r.gormDB.WithContext(ctx).Where("reference = ?", reference).First(&dbPayment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment with reference %s: %w", reference, core.ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return toCore(&dbPayment), nil
}

// Save writes the mutable fields of payment with a conditional update on the
// version it was loaded with. Zero rows affected means another writer got there
// first, or the payment vanished.
func (r *GormPaymentRepository) Save(ctx context.Context, payment *core.Payment) error {
	now := time.Now().UTC()
	next := payment.Version + 1

	result := r.gormDB.WithContext(ctx).
		Model(&db.Payment{}).
		Where("id = ? AND version = ?", payment.ID, payment.Version).
		Updates(map[string]interface{}{
			"status":                  string(payment.Status),
			"provider_transaction_id": nullable(payment.ProviderTransactionID),
			"version":                 next,
			"updated_at":              now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update payment: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.gormDB.WithContext(ctx).Model(&db.Payment{}).
			Where("id = ?", payment.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check payment: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("payment with reference %s: %w", payment.Reference, core.ErrPaymentNotFound)
		}
		return fmt.Errorf("payment %s at version %d: %w", payment.Reference, payment.Version, core.ErrConcurrentUpdate)
	}

	payment.Version = next
	payment.UpdatedAt = now
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isDuplicateKey recognises unique-constraint violations. TranslateError maps
// most drivers to gorm.ErrDuplicatedKey; the message check covers the rest.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
