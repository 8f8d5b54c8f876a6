package importapp

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/logistics/backend/internal/application/progress"
	"github.com/logistics/backend/internal/domain/order"
	"github.com/logistics/backend/internal/domain/tracking"
)

func makeOrder(t *testing.T, orderNumber, customerName, carrier string) *order.Order {
	t.Helper()
	rec, err := order.New(orderNumber, customerName, "sales", order.StatusPending, order.Details{
		TrackingNumber: "SF" + orderNumber,
		Carrier:        carrier,
		Phone:          "13800138000",
	})
	require.NoError(t, err)
	return rec
}

func newTestReconciler(service tracking.Service, repo order.Repository, tracker *progress.Tracker, cfg ReconcilerConfig) *Reconciler {
	return NewReconciler(service, repo, tracker, zap.NewNop(), cfg)
}

func beginRun(t *testing.T, tracker *progress.Tracker, total int) {
	t.Helper()
	require.NoError(t, tracker.Begin(uuid.New(), total))
}

func TestReconciler_AllSucceed(t *testing.T) {
	service := &stubTrackingService{}
	repo := new(MockOrderRepository)
	repo.On("UpdateSyncStatus", mock.Anything, mock.Anything).Return(nil)
	tracker := progress.NewTracker()
	beginRun(t, tracker, 2)

	records := []*order.Order{
		makeOrder(t, "A001", "张三", "顺丰速运"),
		makeOrder(t, "A002", "李四", "圆通速递"),
	}
	report := newTestReconciler(service, repo, tracker, ReconcilerConfig{}).Reconcile(context.Background(), records)

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, progress.StateDone, tracker.State())
	assert.Equal(t, 100, tracker.Snapshot().Progress)
	assert.Equal(t, order.SyncStateSynced, records[0].SyncState)
	repo.AssertCalled(t, "UpdateSyncStatus", mock.Anything, records)
}

func TestReconciler_FailureIsolation(t *testing.T) {
	service := &stubTrackingService{
		fail: func(req *tracking.SyncRequest) error {
			if req.TrackingNumber == "SFA002" {
				return tracking.ErrProviderUnavailable
			}
			return nil
		},
	}
	repo := new(MockOrderRepository)
	repo.On("UpdateSyncStatus", mock.Anything, mock.Anything).Return(nil)
	tracker := progress.NewTracker()
	beginRun(t, tracker, 3)

	records := []*order.Order{
		makeOrder(t, "A001", "张三", "顺丰速运"),
		makeOrder(t, "A002", "李四", "中通快递"),
		makeOrder(t, "A003", "王五", "韵达速递"),
	}
	report := newTestReconciler(service, repo, tracker, ReconcilerConfig{}).Reconcile(context.Background(), records)

	require.Equal(t, 3, report.Len())
	assert.True(t, report.Outcomes[0].Succeeded)
	assert.False(t, report.Outcomes[1].Succeeded)
	assert.Contains(t, report.Outcomes[1].ErrorMessage, "unavailable")
	assert.True(t, report.Outcomes[2].Succeeded)

	// one failure among successes still finishes the run normally
	assert.Equal(t, progress.StateDone, tracker.State())
	assert.Equal(t, order.SyncStateFailed, records[1].SyncState)
	assert.Equal(t, order.SyncStateSynced, records[2].SyncState)
}

func TestReconciler_AllFailedEndsInError(t *testing.T) {
	service := &stubTrackingService{
		fail: func(*tracking.SyncRequest) error { return tracking.ErrProviderTimeout },
	}
	repo := new(MockOrderRepository)
	repo.On("UpdateSyncStatus", mock.Anything, mock.Anything).Return(nil)
	tracker := progress.NewTracker()
	beginRun(t, tracker, 1)

	records := []*order.Order{makeOrder(t, "A001", "张三", "顺丰速运")}
	report := newTestReconciler(service, repo, tracker, ReconcilerConfig{}).Reconcile(context.Background(), records)

	require.Equal(t, 1, report.Len())
	assert.False(t, report.Outcomes[0].Succeeded)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Summary(), "成功 0 单")
	assert.Contains(t, report.Summary(), "失败 1 单")
	assert.Equal(t, progress.StateError, tracker.State())
}

func TestReconciler_EmptyBatchCompletes(t *testing.T) {
	service := &stubTrackingService{}
	repo := new(MockOrderRepository)
	tracker := progress.NewTracker()
	beginRun(t, tracker, 0)

	report := newTestReconciler(service, repo, tracker, ReconcilerConfig{}).Reconcile(context.Background(), nil)

	assert.Equal(t, 0, report.Len())
	assert.Equal(t, progress.StateDone, tracker.State())
	repo.AssertNotCalled(t, "UpdateSyncStatus", mock.Anything, mock.Anything)
}

func TestReconciler_CustomerNameSentinel(t *testing.T) {
	service := &stubTrackingService{}
	repo := new(MockOrderRepository)
	repo.On("UpdateSyncStatus", mock.Anything, mock.Anything).Return(nil)
	tracker := progress.NewTracker()
	beginRun(t, tracker, 2)

	records := []*order.Order{
		makeOrder(t, "A001", "王", "顺丰速运"),
		makeOrder(t, "A002", "张三", "顺丰速运"),
	}
	newTestReconciler(service, repo, tracker, ReconcilerConfig{}).Reconcile(context.Background(), records)

	calls := service.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "未知", calls[0].CustomerName)
	assert.Equal(t, "张三", calls[1].CustomerName)
}

func TestReconciler_CarrierResolution(t *testing.T) {
	service := &stubTrackingService{}
	repo := new(MockOrderRepository)
	repo.On("UpdateSyncStatus", mock.Anything, mock.Anything).Return(nil)
	tracker := progress.NewTracker()
	beginRun(t, tracker, 2)

	records := []*order.Order{
		makeOrder(t, "A001", "张三", "顺丰速运"),
		makeOrder(t, "A002", "李四", "不存在的公司"),
	}
	newTestReconciler(service, repo, tracker, ReconcilerConfig{}).Reconcile(context.Background(), records)

	calls := service.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, tracking.CarrierCode("shunfeng"), calls[0].CarrierCode)
	assert.True(t, calls[1].CarrierCode.Empty())
}

func TestReconciler_CancellationStopsNewCalls(t *testing.T) {
	service := &stubTrackingService{}
	repo := new(MockOrderRepository)
	repo.On("UpdateSyncStatus", mock.Anything, mock.Anything).Return(nil)
	tracker := progress.NewTracker()
	beginRun(t, tracker, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []*order.Order{
		makeOrder(t, "A001", "张三", "顺丰速运"),
		makeOrder(t, "A002", "李四", "顺丰速运"),
	}
	report := newTestReconciler(service, repo, tracker, ReconcilerConfig{}).Reconcile(ctx, records)

	assert.Empty(t, service.calls())
	require.Equal(t, 2, report.Len())
	assert.Contains(t, report.Outcomes[0].ErrorMessage, "取消")
}

func TestReconciler_RetriesBeforeFailing(t *testing.T) {
	attempts := 0
	service := &stubTrackingService{
		fail: func(*tracking.SyncRequest) error {
			attempts++
			if attempts < 2 {
				return tracking.ErrProviderRateLimited
			}
			return nil
		},
	}
	repo := new(MockOrderRepository)
	repo.On("UpdateSyncStatus", mock.Anything, mock.Anything).Return(nil)
	tracker := progress.NewTracker()
	beginRun(t, tracker, 1)

	records := []*order.Order{makeOrder(t, "A001", "张三", "顺丰速运")}
	cfg := ReconcilerConfig{Retries: 1, RetryBackoff: time.Millisecond}
	report := newTestReconciler(service, repo, tracker, cfg).Reconcile(context.Background(), records)

	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, report.Succeeded)
}

func TestReconciler_PooledWorkersKeepInputOrder(t *testing.T) {
	service := &stubTrackingService{
		fail: func(req *tracking.SyncRequest) error {
			if req.TrackingNumber == "SFA003" {
				return tracking.ErrProviderUnavailable
			}
			return nil
		},
	}
	repo := new(MockOrderRepository)
	repo.On("UpdateSyncStatus", mock.Anything, mock.Anything).Return(nil)
	tracker := progress.NewTracker()
	beginRun(t, tracker, 5)

	records := make([]*order.Order, 0, 5)
	for _, n := range []string{"A001", "A002", "A003", "A004", "A005"} {
		records = append(records, makeOrder(t, n, "张三", "顺丰速运"))
	}

	cfg := ReconcilerConfig{Workers: 4}
	report := newTestReconciler(service, repo, tracker, cfg).Reconcile(context.Background(), records)

	require.Equal(t, 5, report.Len())
	for i, n := range []string{"A001", "A002", "A003", "A004", "A005"} {
		assert.Equal(t, n, report.Outcomes[i].OrderNumber)
	}
	assert.False(t, report.Outcomes[2].Succeeded)
	assert.Equal(t, 4, report.Succeeded)
	assert.Equal(t, progress.StateDone, tracker.State())
}

func TestReconciler_PanicBecomesFailedOutcome(t *testing.T) {
	service := &stubTrackingService{
		fail: func(req *tracking.SyncRequest) error {
			if req.TrackingNumber == "SFA001" {
				panic("provider client bug")
			}
			return nil
		},
	}
	repo := new(MockOrderRepository)
	repo.On("UpdateSyncStatus", mock.Anything, mock.Anything).Return(nil)
	tracker := progress.NewTracker()
	beginRun(t, tracker, 2)

	records := []*order.Order{
		makeOrder(t, "A001", "张三", "顺丰速运"),
		makeOrder(t, "A002", "李四", "顺丰速运"),
	}
	report := newTestReconciler(service, repo, tracker, ReconcilerConfig{}).Reconcile(context.Background(), records)

	require.Equal(t, 2, report.Len())
	assert.False(t, report.Outcomes[0].Succeeded)
	assert.Contains(t, report.Outcomes[0].ErrorMessage, "同步异常")
	assert.True(t, report.Outcomes[1].Succeeded)
}
