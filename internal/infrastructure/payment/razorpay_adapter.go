package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/payment"
)

var _ payment.Gateway = (*RazorpayAdapter)(nil)

// RazorpayAdapter creates orders through the Razorpay Orders API
type RazorpayAdapter struct {
	config     *RazorpayConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRazorpayAdapter creates a new Razorpay adapter
func NewRazorpayAdapter(config *RazorpayConfig, logger *zap.Logger) (*RazorpayAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RazorpayAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.timeout(),
		},
		logger: logger,
	}, nil
}

// KeyID returns the public key for the widget
func (a *RazorpayAdapter) KeyID() string {
	return a.config.KeyID
}

// Secret returns the key secret used to verify payment signatures
func (a *RazorpayAdapter) Secret() string {
	return a.config.KeySecret
}

// CreateOrder creates an order in Razorpay
func (a *RazorpayAdapter) CreateOrder(ctx context.Context, req *payment.CreateOrderRequest) (*payment.GatewayOrder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = payment.DefaultCurrency
	}

	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   req.Amount,
		Currency: currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to marshal request: %w", err)
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, razorpayOrdersPath, body)
	if err != nil {
		a.logger.Warn("Razorpay order creation failed",
			zap.Int64("amount", req.Amount),
			zap.String("receipt", req.Receipt),
			zap.Error(err),
		)
		return nil, err
	}

	var order payment.GatewayOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("razorpay: failed to parse response: %w", err)
	}

	a.logger.Info("Razorpay order created",
		zap.String("gateway_order_id", order.ID),
		zap.Int64("amount", order.Amount),
		zap.String("receipt", order.Receipt),
	)
	return &order, nil
}

// doRequest performs an authenticated call against the Razorpay API
func (a *RazorpayAdapter) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.baseURL()+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(a.config.KeyID, a.config.KeySecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: HTTP %d", payment.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var errResp razorpayErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Code != "" {
			return nil, fmt.Errorf("%w: %s - %s", payment.ErrGatewayRequestFailed,
				errResp.Error.Code, strings.TrimSpace(errResp.Error.Description))
		}
		return nil, fmt.Errorf("%w: HTTP %d", payment.ErrGatewayRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}
