package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/go-resty/resty/v2"
)

// ValidatePath is the identity service's token validation route
const ValidatePath = "/auth/validate"

// DefaultTimeout bounds a validation call when none is configured
const DefaultTimeout = 5 * time.Second

type validateRequest struct {
	Token string `json:"token"`
}

// RestyValidator is a secondary adapter calling the identity service over HTTP
type RestyValidator struct {
	client *resty.Client
}

// NewRestyValidator creates a validator for the identity service at baseURL
func NewRestyValidator(baseURL string, timeout time.Duration) output.TokenValidator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &RestyValidator{client: client}
}

// Validate posts token to the identity service. Transport errors, non-2xx
// responses and undecodable bodies are all returned as errors.
func (v *RestyValidator) Validate(ctx context.Context, token string) (*core.TokenVerdict, error) {
	var verdict core.TokenVerdict
	resp, err := v.client.R().
		SetContext(ctx).
		SetBody(validateRequest{Token: token}).
		SetResult(&verdict).
		Post(ValidatePath)
	if err != nil {
		return nil, fmt.Errorf("identity service request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("identity service responded with status %d", resp.StatusCode())
	}
	if !strings.Contains(resp.Header().Get("Content-Type"), "json") {
		return nil, fmt.Errorf("identity service returned unexpected content type %q", resp.Header().Get("Content-Type"))
	}
	return &verdict, nil
}
