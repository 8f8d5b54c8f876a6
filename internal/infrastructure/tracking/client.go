// Package tracking implements the HTTP client for the external
// carrier-tracking provider.
package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	domain "github.com/logistics/backend/internal/domain/tracking"
	"github.com/logistics/backend/internal/infrastructure/config"
)

// maxResponseSize limits the response body size read from the provider
const maxResponseSize = 1 << 20

// Client calls the provider's query-and-sync endpoint. It implements
// domain tracking.Service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ domain.Service = (*Client)(nil)

// NewClient creates a tracking provider client from configuration
func NewClient(cfg config.TrackingConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// syncPayload is the provider's wire format for one query-and-sync call
type syncPayload struct {
	TrackingNumber string `json:"tracking_number"`
	CustomerName   string `json:"customer_name"`
	DepartmentKey  string `json:"department_key"`
	Phone          string `json:"phone"`
	CarrierCode    string `json:"carrier_code,omitempty"`
}

// syncResponse is the provider's response envelope
type syncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// QueryAndSync issues one call against the provider. Timeouts and transport
// failures are returned as errors; the caller decides how to aggregate them.
func (c *Client) QueryAndSync(ctx context.Context, req *domain.SyncRequest) error {
	payload := syncPayload{
		TrackingNumber: req.TrackingNumber,
		CustomerName:   req.CustomerName,
		DepartmentKey:  req.DepartmentKey,
		Phone:          req.Phone,
		CarrierCode:    string(req.CarrierCode),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("编码同步请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tracking/sync", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("构建同步请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return domain.ErrProviderTimeout
		}
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("读取同步响应失败: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ErrProviderRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("同步请求被拒绝: status %d", resp.StatusCode)
	}

	var result syncResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("解析同步响应失败: %w", err)
	}
	if !result.Success {
		if result.Message == "" {
			result.Message = "provider rejected the sync request"
		}
		return errors.New(result.Message)
	}

	c.logger.Debug("tracking sync call succeeded",
		zap.String("tracking_number", req.TrackingNumber),
		zap.String("carrier_code", string(req.CarrierCode)))
	return nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
