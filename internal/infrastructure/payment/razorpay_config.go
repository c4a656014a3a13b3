package payment

import (
	"errors"
	"strings"
	"time"

	"github.com/tallypro/storefront/internal/infrastructure/config"
)

const (
	razorpayAPIBaseURL  = "https://api.razorpay.com"
	razorpayOrdersPath  = "/v1/orders"
	razorpayDefaultWait = 30 * time.Second
)

// RazorpayConfig contains the API credentials of the merchant account
type RazorpayConfig struct {
	// KeyID is the public key, also handed to the widget
	KeyID string
	// KeySecret signs API calls and payment signatures
	KeySecret string
	// BaseURL overrides the API host (tests point it at an httptest server)
	BaseURL string
	// Timeout bounds every API call
	Timeout time.Duration
}

var (
	ErrRazorpayMissingKeyID     = errors.New("razorpay: missing key id")
	ErrRazorpayMissingKeySecret = errors.New("razorpay: missing key secret")
)

// RazorpayConfigFrom maps the application configuration
func RazorpayConfigFrom(cfg config.RazorpayConfig) *RazorpayConfig {
	return &RazorpayConfig{
		KeyID:     strings.TrimSpace(cfg.KeyID),
		KeySecret: strings.TrimSpace(cfg.KeySecret),
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
	}
}

// Validate validates the configuration
func (c *RazorpayConfig) Validate() error {
	if c.KeyID == "" {
		return ErrRazorpayMissingKeyID
	}
	if c.KeySecret == "" {
		return ErrRazorpayMissingKeySecret
	}
	return nil
}

func (c *RazorpayConfig) baseURL() string {
	if c.BaseURL == "" {
		return razorpayAPIBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *RazorpayConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return razorpayDefaultWait
	}
	return c.Timeout
}
