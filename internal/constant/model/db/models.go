package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment represents a payment entity in the database
type Payment struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Reference             string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"reference"`
	Amount                decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency              string          `gorm:"type:varchar(3);not null" json:"currency"`
	PaymentMethod         string          `gorm:"type:varchar(32);not null" json:"payment_method"`
	CustomerPhone         string          `gorm:"type:varchar(20);not null" json:"customer_phone"`
	CustomerEmail         string          `gorm:"type:varchar(255);not null" json:"customer_email"`
	Status                string          `gorm:"type:varchar(20);not null;index" json:"status"`
	ProviderTransactionID *string         `gorm:"type:varchar(255)" json:"provider_transaction_id,omitempty"`
	Version               int64           `gorm:"not null;default:1" json:"version"`
	CreatedAt             time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// BeforeCreate is a GORM hook that runs before creating a record
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return nil
}

// User represents an identity-service account
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	PhoneNumber  string    `gorm:"type:varchar(20);not null;uniqueIndex" json:"phone_number"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BeforeCreate is a GORM hook that runs before creating a record
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	return nil
}

// PaymentEvent is one row of a payment's audit trail
type PaymentEvent struct {
	ID                    uint      `gorm:"primaryKey"`
	EventID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	PaymentReference      string    `gorm:"type:varchar(64);not null;index"`
	PreviousStatus        string    `gorm:"type:varchar(20)"`
	Status                string    `gorm:"type:varchar(20);not null"`
	ProviderTransactionID string    `gorm:"type:varchar(255)"`
	Source                string    `gorm:"type:varchar(16);not null"`
	OccurredAt            time.Time `gorm:"not null"`
	RecordedAt            time.Time `gorm:"not null"`
	CreatedAt             time.Time
}

// TableName specifies the table name for GORM
func (PaymentEvent) TableName() string {
	return "payment_events"
}
