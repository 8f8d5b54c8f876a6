package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/logistics/backend/internal/domain/tracking"
	"github.com/logistics/backend/internal/infrastructure/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.TrackingConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: timeout,
	}, zap.NewNop())
}

func sampleRequest() *domain.SyncRequest {
	return &domain.SyncRequest{
		TrackingNumber: "SF123",
		CustomerName:   "张三",
		DepartmentKey:  "sales",
		Phone:          "13800138000",
		CarrierCode:    "shunfeng",
	}
}

func TestClient_QueryAndSyncSuccess(t *testing.T) {
	var got syncPayload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tracking/sync", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(syncResponse{Success: true})
	}, 0)

	err := client.QueryAndSync(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "SF123", got.TrackingNumber)
	assert.Equal(t, "shunfeng", got.CarrierCode)
}

func TestClient_EmptyCarrierCodeIsOmitted(t *testing.T) {
	var raw map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_ = json.NewEncoder(w).Encode(syncResponse{Success: true})
	}, 0)

	req := sampleRequest()
	req.CarrierCode = ""
	require.NoError(t, client.QueryAndSync(context.Background(), req))
	// unknown carrier means the query goes out without disambiguation
	assert.NotContains(t, raw, "carrier_code")
}

func TestClient_ProviderRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(syncResponse{Success: false, Message: "运单号不存在"})
	}, 0)

	err := client.QueryAndSync(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "运单号不存在")
}

func TestClient_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, 0)

	err := client.QueryAndSync(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, domain.ErrProviderRateLimited)
}

func TestClient_ServerErrorIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, 0)

	err := client.QueryAndSync(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestClient_TimeoutBecomesProviderTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}, 50*time.Millisecond)

	err := client.QueryAndSync(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, domain.ErrProviderTimeout)
}
