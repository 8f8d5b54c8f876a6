package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/logistics/backend/internal/domain/audit"
	"github.com/logistics/backend/internal/domain/order"
	"github.com/logistics/backend/internal/domain/shared"
)

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) SaveBatch(ctx context.Context, orders []*order.Order) error {
	return m.Called(ctx, orders).Error(0)
}

func (m *mockOrderRepository) UpdateSyncStatus(ctx context.Context, orders []*order.Order) error {
	return m.Called(ctx, orders).Error(0)
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *mockOrderRepository) FindAll(ctx context.Context, archived bool, limit, offset int) ([]*order.Order, int64, error) {
	args := m.Called(ctx, archived, limit, offset)
	var orders []*order.Order
	if args.Get(0) != nil {
		orders = args.Get(0).([]*order.Order)
	}
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *mockOrderRepository) Archive(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOrderRepository) Restore(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockLogRepository struct {
	mock.Mock
}

func (m *mockLogRepository) Append(ctx context.Context, entry *audit.OperationLog) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockLogRepository) FindRecent(ctx context.Context, limit, offset int) ([]*audit.OperationLog, int64, error) {
	args := m.Called(ctx, limit, offset)
	var logs []*audit.OperationLog
	if args.Get(0) != nil {
		logs = args.Get(0).([]*audit.OperationLog)
	}
	return logs, args.Get(1).(int64), args.Error(2)
}

func newOrderRouter(orders *mockOrderRepository, logs *mockLogRepository) *gin.Engine {
	h := NewOrderHandler(orders, logs, zap.NewNop())
	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	return r
}

func testOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.New("SFA001", "张三", "sales", order.StatusPending, order.Details{
		TrackingNumber: "SF1234567890",
		Carrier:        "顺丰速运",
		CODAmount:      decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	return o
}

func TestListOrders(t *testing.T) {
	orders := new(mockOrderRepository)
	logs := new(mockLogRepository)
	orders.On("FindAll", mock.Anything, false, 50, 0).
		Return([]*order.Order{testOrder(t)}, int64(1), nil)

	router := newOrderRouter(orders, logs)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SFA001")
	assert.Contains(t, w.Body.String(), `"total":1`)
	orders.AssertExpectations(t)
}

func TestListOrders_ArchivedFlag(t *testing.T) {
	orders := new(mockOrderRepository)
	logs := new(mockLogRepository)
	orders.On("FindAll", mock.Anything, true, 50, 0).
		Return([]*order.Order{}, int64(0), nil)

	router := newOrderRouter(orders, logs)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders?archived=true", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	orders.AssertExpectations(t)
}

func TestGetOrder_NotFound(t *testing.T) {
	orders := new(mockOrderRepository)
	logs := new(mockLogRepository)
	id := uuid.New()
	orders.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

	router := newOrderRouter(orders, logs)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+id.String(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
}

func TestArchiveOrder(t *testing.T) {
	orders := new(mockOrderRepository)
	logs := new(mockLogRepository)
	id := uuid.New()
	orders.On("Archive", mock.Anything, id).Return(nil)

	router := newOrderRouter(orders, logs)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+id.String()+"/archive", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	orders.AssertExpectations(t)
	logs.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestRestoreOrder_WritesAuditEntry(t *testing.T) {
	orders := new(mockOrderRepository)
	logs := new(mockLogRepository)
	id := uuid.New()
	orders.On("Restore", mock.Anything, id).Return(nil)
	logs.On("Append", mock.Anything, mock.MatchedBy(func(entry *audit.OperationLog) bool {
		return entry.OperationType == audit.OperationRestore && entry.TargetID == id.String()
	})).Return(nil)

	router := newOrderRouter(orders, logs)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+id.String()+"/restore", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	logs.AssertExpectations(t)
}

func TestDeleteOrder_WritesAuditEntry(t *testing.T) {
	orders := new(mockOrderRepository)
	logs := new(mockLogRepository)
	id := uuid.New()
	orders.On("Delete", mock.Anything, id).Return(nil)
	logs.On("Append", mock.Anything, mock.MatchedBy(func(entry *audit.OperationLog) bool {
		return entry.OperationType == audit.OperationDelete
	})).Return(nil)

	router := newOrderRouter(orders, logs)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/orders/"+id.String(), nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	logs.AssertExpectations(t)
}

func TestDeleteOrder_NotArchivedYet(t *testing.T) {
	orders := new(mockOrderRepository)
	logs := new(mockLogRepository)
	id := uuid.New()
	orders.On("Delete", mock.Anything, id).Return(shared.ErrNotFound)

	router := newOrderRouter(orders, logs)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/orders/"+id.String(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	logs.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestDeleteOrder_InvalidID(t *testing.T) {
	router := newOrderRouter(new(mockOrderRepository), new(mockLogRepository))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/orders/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
