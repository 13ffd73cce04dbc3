package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency represents supported currencies
type Currency string

const (
	CurrencyKES Currency = "KES"
	CurrencyUSD Currency = "USD"
)

// IsSupported reports whether payments can be taken in c
func (c Currency) IsSupported() bool {
	return c == CurrencyKES || c == CurrencyUSD
}

// PaymentMethod represents how the customer pays
type PaymentMethod string

const (
	PaymentMethodMobileMoney PaymentMethod = "MOBILE_MONEY"
)

// Payment represents a payment domain entity
type Payment struct {
	ID                    uuid.UUID
	Reference             string
	Amount                decimal.Decimal
	Currency              Currency
	PaymentMethod         PaymentMethod
	CustomerPhone         string
	CustomerEmail         string
	Status                PaymentStatus
	ProviderTransactionID string
	// Version is bumped by the store on every successful save and is the
	// compare-and-save token for concurrent writers.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal checks if payment is in a terminal state
func (p *Payment) IsTerminal() bool {
	return p.Status.IsTerminal()
}

// Clone returns a copy that can be mutated without touching p
func (p *Payment) Clone() *Payment {
	c := *p
	return &c
}

// UserRef is the identity projection attached to an authorized request
type UserRef struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}
