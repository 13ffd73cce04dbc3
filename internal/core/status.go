package core

import (
	"fmt"
	"strings"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// allowedTransitions lists the legal moves out of each status, self-loops excluded.
var allowedTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusInitiated: {PaymentStatusPending},
	PaymentStatusPending:   {PaymentStatusSuccess, PaymentStatusFailed},
	PaymentStatusSuccess:   {},
	PaymentStatusFailed:    {},
}

// ParsePaymentStatus converts s into a known status
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, s)
	}
	return status, nil
}

// IsValid reports whether s is one of the four payment statuses
func (s PaymentStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

// AllowedNext returns the statuses reachable from s in one step, excluding s itself.
// The returned slice is a copy.
func AllowedNext(s PaymentStatus) []PaymentStatus {
	allowed := allowedTransitions[s]
	out := make([]PaymentStatus, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal reports whether s is a terminal status
func IsTerminal(s PaymentStatus) bool {
	return s.IsTerminal()
}

// ValidateTransition returns nil when a payment in current may move to requested.
// Staying in the same status is always allowed, terminal or not.
func ValidateTransition(current, requested PaymentStatus) error {
	if current == requested {
		return nil
	}
	for _, next := range allowedTransitions[current] {
		if next == requested {
			return nil
		}
	}
	return &InvalidTransitionError{
		Current:   current,
		Requested: requested,
		Allowed:   AllowedNext(current),
	}
}
