package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/google/uuid"
)

// DefaultIdempotencyTTL is how long a handled webhook key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// Webhook outcome messages
const (
	WebhookAlreadyProcessed = "already processed"
	WebhookAlreadyInState   = "already in requested state"
	WebhookProcessed        = "processed"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// PaymentServiceImpl implements the PaymentService input port
type PaymentServiceImpl struct {
	paymentRepo    output.PaymentRepository
	paymentMsg     output.PaymentMessaging
	cache          output.Cache
	idempotencyTTL time.Duration
}

// NewPaymentService creates a new payment service. paymentMsg may be nil, in
// which case no payment events are published.
func NewPaymentService(
	paymentRepo output.PaymentRepository,
	paymentMsg output.PaymentMessaging,
	cache output.Cache,
	idempotencyTTL time.Duration,
) input.PaymentService {
	if idempotencyTTL <= 0 {
		idempotencyTTL = DefaultIdempotencyTTL
	}
	return &PaymentServiceImpl{
		paymentRepo:    paymentRepo,
		paymentMsg:     paymentMsg,
		cache:          cache,
		idempotencyTTL: idempotencyTTL,
	}
}

// InitiatePayment creates a new payment
func (s *PaymentServiceImpl) InitiatePayment(ctx context.Context, req input.InitiatePaymentRequest) (*core.Payment, error) {
	if err := validateInitiate(&req); err != nil {
		return nil, err
	}

	payment := &core.Payment{
		ID:            uuid.New(),
		Reference:     uuid.NewString(),
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Status:        core.PaymentStatusInitiated,
	}

	log.Printf("Initiating payment with reference: %s", payment.Reference)

	// A collision on a random v4 reference is not expected; it is reported
	// as an internal failure rather than a client conflict.
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %v", err)
	}

	s.publish(ctx, core.NewPaymentEvent(payment, "", core.EventSourceInitiate, time.Time{}))

	log.Printf("Payment initiated successfully: %s", payment.Reference)
	return payment, nil
}

// GetPaymentByReference retrieves a payment by reference
func (s *PaymentServiceImpl) GetPaymentByReference(ctx context.Context, reference string) (*core.Payment, error) {
	payment, err := s.paymentRepo.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, core.ErrPaymentNotFound) {
			log.Printf("Payment not found: %s", reference)
		}
		return nil, err
	}
	return payment, nil
}

// UpdatePaymentStatus applies an explicit status change guarded by the transition table
func (s *PaymentServiceImpl) UpdatePaymentStatus(ctx context.Context, reference string, req input.UpdateStatusRequest) (*core.Payment, error) {
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", core.ErrInvalidInput, req.Status)
	}

	log.Printf("Updating payment %s to status: %s", reference, req.Status)

	payment, err := s.GetPaymentByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if err := core.ValidateTransition(payment.Status, req.Status); err != nil {
		return nil, err
	}

	previous := payment.Status
	payment.Status = req.Status
	if req.ProviderTransactionID != "" {
		payment.ProviderTransactionID = req.ProviderTransactionID
	}

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to update payment %s: %w", reference, err)
	}

	s.publish(ctx, core.NewPaymentEvent(payment, previous, core.EventSourceUpdate, time.Time{}))

	log.Printf("Payment %s updated to %s", reference, req.Status)
	return payment, nil
}

// ProcessWebhook applies a provider callback. Re-deliveries are answered from
// the idempotency cache, and a terminal payment already in the reported
// status is acknowledged without being written again. A delivery that loses
// a version race is re-run once, so a concurrent duplicate lands on one of
// those two paths instead of failing.
func (s *PaymentServiceImpl) ProcessWebhook(ctx context.Context, req input.WebhookRequest) (*input.WebhookOutcome, error) {
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", core.ErrInvalidInput, req.Status)
	}

	log.Printf("Processing webhook for payment: %s", req.PaymentReference)

	outcome, err := s.applyWebhook(ctx, req)
	if errors.Is(err, core.ErrConcurrentUpdate) {
		log.Printf("Webhook for payment %s raced another writer, retrying", req.PaymentReference)
		outcome, err = s.applyWebhook(ctx, req)
	}
	return outcome, err
}

func (s *PaymentServiceImpl) applyWebhook(ctx context.Context, req input.WebhookRequest) (*input.WebhookOutcome, error) {
	key := webhookKey(req.PaymentReference, req.ProviderTransactionID)
	if s.alreadyHandled(ctx, key) {
		log.Printf("Webhook already processed (idempotent): %s", key)
		return s.outcome(req, WebhookAlreadyProcessed), nil
	}

	payment, err := s.GetPaymentByReference(ctx, req.PaymentReference)
	if err != nil {
		return nil, err
	}

	if payment.Status == req.Status && payment.IsTerminal() {
		log.Printf("Payment %s already in terminal state: %s", payment.Reference, payment.Status)
		s.markHandled(ctx, key)
		return s.outcome(req, WebhookAlreadyInState), nil
	}

	if err := core.ValidateTransition(payment.Status, req.Status); err != nil {
		log.Printf("Rejected webhook for payment %s: %v", payment.Reference, err)
		return nil, err
	}

	previous := payment.Status
	payment.Status = req.Status
	payment.ProviderTransactionID = req.ProviderTransactionID

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to apply webhook to payment %s: %w", payment.Reference, err)
	}

	s.markHandled(ctx, key)
	s.publish(ctx, core.NewPaymentEvent(payment, previous, core.EventSourceWebhook, req.Timestamp))

	log.Printf("Webhook processed successfully for payment: %s", payment.Reference)
	return s.outcome(req, WebhookProcessed), nil
}

func (s *PaymentServiceImpl) outcome(req input.WebhookRequest, message string) *input.WebhookOutcome {
	return &input.WebhookOutcome{
		Success:          true,
		Message:          message,
		PaymentReference: req.PaymentReference,
	}
}

// alreadyHandled treats a cache failure as a miss; the transition table
// still guards the write that follows.
func (s *PaymentServiceImpl) alreadyHandled(ctx context.Context, key string) bool {
	_, found, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Printf("Idempotency lookup failed for %s: %v", key, err)
		return false
	}
	return found
}

func (s *PaymentServiceImpl) markHandled(ctx context.Context, key string) {
	if err := s.cache.Set(ctx, key, []byte("1"), s.idempotencyTTL); err != nil {
		log.Printf("Failed to store idempotency key %s: %v", key, err)
	}
}

func (s *PaymentServiceImpl) publish(ctx context.Context, event core.PaymentEvent) {
	if s.paymentMsg == nil {
		return
	}
	if err := s.paymentMsg.PublishPaymentEvent(ctx, event); err != nil {
		log.Printf("Failed to publish %s event for payment %s: %v", event.Source, event.PaymentReference, err)
	}
}

func webhookKey(reference, providerTxnID string) string {
	return fmt.Sprintf("webhook:%s:%s", reference, providerTxnID)
}

func validateInitiate(req *input.InitiatePaymentRequest) error {
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", core.ErrInvalidInput)
	}
	// amounts are stored as decimal(15,2)
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return fmt.Errorf("%w: amount must have at most two decimal places", core.ErrInvalidInput)
	}
	if !req.Currency.IsSupported() {
		return fmt.Errorf("%w: currency must be KES or USD", core.ErrInvalidInput)
	}
	if req.PaymentMethod != core.PaymentMethodMobileMoney {
		return fmt.Errorf("%w: payment method must be MOBILE_MONEY", core.ErrInvalidInput)
	}
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	if !phonePattern.MatchString(req.CustomerPhone) {
		return fmt.Errorf("%w: phone number must be in valid international format", core.ErrInvalidInput)
	}
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	if _, err := mail.ParseAddress(req.CustomerEmail); err != nil {
		return fmt.Errorf("%w: customer email is not a valid address", core.ErrInvalidInput)
	}
	return nil
}
