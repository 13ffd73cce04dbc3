package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/labstack/echo/v4"
)

// IdentityHandler serves the identity service routes
type IdentityHandler struct {
	identityService input.IdentityService
}

// NewIdentityHandler creates a new identity handler
func NewIdentityHandler(identityService input.IdentityService) *IdentityHandler {
	return &IdentityHandler{identityService: identityService}
}

// RegisterRequest is the HTTP body for account creation
type RegisterRequest struct {
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// LoginRequest is the HTTP body for login
type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

// ValidateTokenRequest is the HTTP body for token validation
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// UserResponse is the public projection of an account
type UserResponse struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	CreatedAt   string `json:"created_at"`
}

// LoginResponse carries the access token
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

func toUserResponse(u *core.User) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// RegisterRoutes mounts the identity routes
func (h *IdentityHandler) RegisterRoutes(e *echo.Echo) {
	auth := e.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/validate", h.ValidateToken)
	auth.GET("/health", h.Health)
}

// Register handles account creation
func (h *IdentityHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	user, err := h.identityService.Register(c.Request().Context(), input.RegisterRequest{
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		return respondError(c, err, "Failed to register user")
	}
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login handles credential checks
func (h *IdentityHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	resp, err := h.identityService.Login(c.Request().Context(), input.LoginRequest{
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		return respondError(c, err, "Failed to login")
	}
	return c.JSON(http.StatusOK, LoginResponse{
		AccessToken: resp.AccessToken,
		User:        toUserResponse(resp.User),
	})
}

// ValidateToken answers the payment service's token checks
func (h *IdentityHandler) ValidateToken(c echo.Context) error {
	var req ValidateTokenRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, errorBody("token is required"))
	}

	verdict, err := h.identityService.ValidateToken(c.Request().Context(), req.Token)
	if err != nil {
		return respondError(c, err, "Failed to validate token")
	}
	return c.JSON(http.StatusOK, verdict)
}

// Health reports service liveness
func (h *IdentityHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "auth-service",
	})
}
