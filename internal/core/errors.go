package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrDuplicateReference = errors.New("reference already exists")
	ErrDuplicateEvent     = errors.New("payment event already recorded")
	ErrConcurrentUpdate   = errors.New("payment was modified concurrently")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// InvalidTransitionError is returned when a status change is not permitted
// by the transition table.
type InvalidTransitionError struct {
	Current   PaymentStatus
	Requested PaymentStatus
	Allowed   []PaymentStatus
}

func (e *InvalidTransitionError) Error() string {
	allowed := "none (terminal state)"
	if len(e.Allowed) > 0 {
		names := make([]string, len(e.Allowed))
		for i, s := range e.Allowed {
			names[i] = string(s)
		}
		allowed = strings.Join(names, ", ")
	}
	return fmt.Sprintf("invalid state transition: %s -> %s. allowed transitions from %s: %s",
		e.Current, e.Requested, e.Current, allowed)
}

// UnauthorizedError carries the reason a request was refused. It matches
// ErrUnauthorized with errors.Is.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return e.Reason
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// Unauthorized builds an UnauthorizedError with the given reason
func Unauthorized(reason string) error {
	return &UnauthorizedError{Reason: reason}
}

// IsInvalidTransition reports whether err is an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}
