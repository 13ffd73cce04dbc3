package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// PaymentHistory exposes the recorded audit trail of a payment
type PaymentHistory interface {
	History(ctx context.Context, reference string) ([]core.PaymentEvent, error)
}

// PaymentHandler is a primary adapter (HTTP handler)
type PaymentHandler struct {
	paymentService input.PaymentService
	history        PaymentHistory
}

// NewPaymentHandler creates a new payment handler. history may be nil, in
// which case the events route answers 404.
func NewPaymentHandler(paymentService input.PaymentService, history PaymentHistory) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		history:        history,
	}
}

// InitiatePaymentRequest represents the HTTP request to initiate a payment
type InitiatePaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerEmail string          `json:"customer_email"`
}

// UpdateStatusRequest represents the HTTP request to change a payment's status
type UpdateStatusRequest struct {
	Status                string `json:"status"`
	ProviderTransactionID string `json:"provider_transaction_id,omitempty"`
}

// WebhookRequest is the provider callback payload
type WebhookRequest struct {
	PaymentReference      string `json:"payment_reference"`
	Status                string `json:"status"`
	ProviderTransactionID string `json:"provider_transaction_id"`
	Timestamp             string `json:"timestamp"`
}

// PaymentResponse represents the HTTP response for a payment
type PaymentResponse struct {
	ID                    string  `json:"id"`
	Reference             string  `json:"reference"`
	Amount                float64 `json:"amount"`
	Currency              string  `json:"currency"`
	PaymentMethod         string  `json:"payment_method"`
	CustomerPhone         string  `json:"customer_phone"`
	CustomerEmail         string  `json:"customer_email"`
	Status                string  `json:"status"`
	ProviderTransactionID string  `json:"provider_transaction_id,omitempty"`
	CreatedAt             string  `json:"created_at"`
	UpdatedAt             string  `json:"updated_at"`
}

// WebhookResponse is returned to the provider
type WebhookResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	PaymentReference string `json:"payment_reference"`
}

// EventResponse is one audit trail entry
type EventResponse struct {
	EventID               string `json:"event_id"`
	PreviousStatus        string `json:"previous_status,omitempty"`
	Status                string `json:"status"`
	ProviderTransactionID string `json:"provider_transaction_id,omitempty"`
	Source                string `json:"source"`
	OccurredAt            string `json:"occurred_at"`
	RecordedAt            string `json:"recorded_at"`
}

func toPaymentResponse(p *core.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                    p.ID.String(),
		Reference:             p.Reference,
		Amount:                p.Amount.InexactFloat64(),
		Currency:              string(p.Currency),
		PaymentMethod:         string(p.PaymentMethod),
		CustomerPhone:         p.CustomerPhone,
		CustomerEmail:         p.CustomerEmail,
		Status:                string(p.Status),
		ProviderTransactionID: p.ProviderTransactionID,
		CreatedAt:             p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:             p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// RegisterRoutes mounts the payment routes. auth guards every route except
// the provider webhook and the health check.
func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	payments := e.Group("/payments")
	payments.POST("/webhook", h.ProcessWebhook)
	payments.GET("/health/check", h.Health)
	payments.POST("/initiate", h.InitiatePayment, auth)
	payments.GET("/:reference", h.GetPayment, auth)
	payments.GET("/:reference/events", h.GetPaymentEvents, auth)
	payments.PATCH("/:reference/status", h.UpdatePaymentStatus, auth)
}

// InitiatePayment handles payment initiation
func (h *PaymentHandler) InitiatePayment(c echo.Context) error {
	var req InitiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	payment, err := h.paymentService.InitiatePayment(c.Request().Context(), input.InitiatePaymentRequest{
		Amount:        req.Amount,
		Currency:      core.Currency(strings.ToUpper(req.Currency)),
		PaymentMethod: core.PaymentMethod(strings.ToUpper(req.PaymentMethod)),
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		return respondError(c, err, "Failed to initiate payment")
	}

	return c.JSON(http.StatusCreated, toPaymentResponse(payment))
}

// GetPayment handles payment retrieval by reference
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	payment, err := h.paymentService.GetPaymentByReference(c.Request().Context(), c.Param("reference"))
	if err != nil {
		return respondError(c, err, "Failed to retrieve payment")
	}
	return c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// UpdatePaymentStatus handles explicit status changes
func (h *PaymentHandler) UpdatePaymentStatus(c echo.Context) error {
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	status, err := core.ParsePaymentStatus(req.Status)
	if err != nil {
		return respondError(c, err, "")
	}

	payment, err := h.paymentService.UpdatePaymentStatus(c.Request().Context(), c.Param("reference"), input.UpdateStatusRequest{
		Status:                status,
		ProviderTransactionID: strings.TrimSpace(req.ProviderTransactionID),
	})
	if err != nil {
		return respondError(c, err, "Failed to update payment")
	}
	return c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// ProcessWebhook handles provider callbacks
func (h *PaymentHandler) ProcessWebhook(c echo.Context) error {
	var req WebhookRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid webhook body"))
	}

	if strings.TrimSpace(req.PaymentReference) == "" || strings.TrimSpace(req.ProviderTransactionID) == "" {
		return c.JSON(http.StatusBadRequest, errorBody("payment_reference and provider_transaction_id are required"))
	}
	status, err := core.ParsePaymentStatus(req.Status)
	if err != nil {
		return respondError(c, err, "")
	}
	occurredAt, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("timestamp must be an ISO-8601 date-time"))
	}

	outcome, err := h.paymentService.ProcessWebhook(c.Request().Context(), input.WebhookRequest{
		PaymentReference:      req.PaymentReference,
		Status:                status,
		ProviderTransactionID: req.ProviderTransactionID,
		Timestamp:             occurredAt,
	})
	if err != nil {
		return respondError(c, err, "Failed to process webhook")
	}

	return c.JSON(http.StatusOK, WebhookResponse{
		Success:          outcome.Success,
		Message:          outcome.Message,
		PaymentReference: outcome.PaymentReference,
	})
}

// GetPaymentEvents returns the audit trail of a payment
func (h *PaymentHandler) GetPaymentEvents(c echo.Context) error {
	if h.history == nil {
		return c.JSON(http.StatusNotFound, errorBody("Payment history is not available"))
	}

	reference := c.Param("reference")
	if _, err := h.paymentService.GetPaymentByReference(c.Request().Context(), reference); err != nil {
		return respondError(c, err, "Failed to retrieve payment")
	}

	events, err := h.history.History(c.Request().Context(), reference)
	if err != nil {
		return respondError(c, err, "Failed to retrieve payment history")
	}

	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, EventResponse{
			EventID:               ev.EventID.String(),
			PreviousStatus:        string(ev.PreviousStatus),
			Status:                string(ev.Status),
			ProviderTransactionID: ev.ProviderTransactionID,
			Source:                string(ev.Source),
			OccurredAt:            ev.OccurredAt.UTC().Format(time.RFC3339),
			RecordedAt:            ev.RecordedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Health reports service liveness
func (h *PaymentHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "payment-service",
	})
}
