package importapp

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/logistics/backend/internal/application/progress"
	"github.com/logistics/backend/internal/domain/order"
	"github.com/logistics/backend/internal/domain/tracking"
)

// customerNameSentinel replaces customer names shorter than the provider's
// two-character minimum.
const customerNameSentinel = "未知"

// ReconcilerConfig bounds the reconciliation run. The reference behavior is
// one call at a time with no retries; both knobs are explicit configuration
// rather than hard-coded.
type ReconcilerConfig struct {
	Workers      int
	CallTimeout  time.Duration
	Retries      int
	RetryBackoff time.Duration
}

func (c ReconcilerConfig) normalized() ReconcilerConfig {
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	return c
}

// Reconciler drives the query-and-sync call against the tracking provider
// for every imported order. A failure on one order never aborts the rest;
// the per-order outcomes are collected into a report ordered to match the
// input batch.
type Reconciler struct {
	service tracking.Service
	orders  order.Repository
	tracker *progress.Tracker
	logger  *zap.Logger
	cfg     ReconcilerConfig
}

// NewReconciler creates a reconciliation orchestrator
func NewReconciler(
	service tracking.Service,
	orders order.Repository,
	tracker *progress.Tracker,
	logger *zap.Logger,
	cfg ReconcilerConfig,
) *Reconciler {
	return &Reconciler{
		service: service,
		orders:  orders,
		tracker: tracker,
		logger:  logger,
		cfg:     cfg.normalized(),
	}
}

// Reconcile processes the batch and returns the aggregated report. The run
// finishes in the done state when at least one order synced or the batch was
// empty, and in the error state when every order failed. Cancellation via ctx
// stops new provider calls between iterations; already-issued calls complete.
func (r *Reconciler) Reconcile(ctx context.Context, records []*order.Order) *tracking.SyncReport {
	if err := r.tracker.Transition(progress.StatePolling); err != nil {
		r.logger.Warn("progress transition rejected", zap.Error(err))
	}

	outcomes := make([]tracking.SyncOutcome, len(records))
	if r.cfg.Workers == 1 {
		r.reconcileSequential(ctx, records, outcomes)
	} else {
		r.reconcilePooled(ctx, records, outcomes)
	}

	report := tracking.NewSyncReport(len(records))
	for _, outcome := range outcomes {
		report.Add(outcome)
	}

	r.persistOutcomes(records)

	if report.AllFailed() {
		r.tracker.Fail()
	} else if err := r.tracker.Complete(); err != nil {
		r.logger.Warn("progress transition rejected", zap.Error(err))
	}

	r.logger.Info("reconciliation finished",
		zap.Int("total", report.Len()),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))
	return report
}

func (r *Reconciler) reconcileSequential(ctx context.Context, records []*order.Order, outcomes []tracking.SyncOutcome) {
	for i, rec := range records {
		select {
		case <-ctx.Done():
			r.markCancelled(records[i:], outcomes[i:])
			return
		default:
		}
		outcomes[i] = r.syncOne(ctx, rec)
		r.tracker.RecordCompleted()
	}
}

func (r *Reconciler) reconcilePooled(ctx context.Context, records []*order.Order, outcomes []tracking.SyncOutcome) {
	sem := make(chan struct{}, r.cfg.Workers)
	var wg sync.WaitGroup

	for i, rec := range records {
		select {
		case <-ctx.Done():
			wg.Wait()
			r.markCancelled(records[i:], outcomes[i:])
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, rec *order.Order) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = r.syncOne(ctx, rec)
			r.tracker.RecordCompleted()
		}(i, rec)
	}
	wg.Wait()
}

// syncOne issues a single query-and-sync call. Every failure mode, timeouts
// and panics included, becomes a failed outcome rather than aborting the run.
func (r *Reconciler) syncOne(ctx context.Context, rec *order.Order) (outcome tracking.SyncOutcome) {
	defer func() {
		if p := recover(); p != nil {
			message := fmt.Sprintf("同步异常: %v", p)
			rec.MarkSyncFailed(message)
			outcome = tracking.SyncOutcome{
				OrderNumber:  rec.OrderNumber,
				Succeeded:    false,
				ErrorMessage: message,
			}
			r.logger.Error("tracking sync panicked",
				zap.String("order_number", rec.OrderNumber),
				zap.Any("panic", p))
		}
	}()

	req := r.buildRequest(rec)
	var err error
	for attempt := 0; attempt <= r.cfg.Retries; attempt++ {
		if attempt > 0 && r.cfg.RetryBackoff > 0 {
			time.Sleep(r.cfg.RetryBackoff)
		}
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		err = r.service.QueryAndSync(callCtx, req)
		cancel()
		if err == nil {
			break
		}
	}

	if err != nil {
		rec.MarkSyncFailed(err.Error())
		r.logger.Warn("tracking sync failed",
			zap.String("order_number", rec.OrderNumber),
			zap.Error(err))
		return tracking.SyncOutcome{
			OrderNumber:  rec.OrderNumber,
			Succeeded:    false,
			ErrorMessage: err.Error(),
		}
	}

	rec.MarkSynced()
	return tracking.SyncOutcome{OrderNumber: rec.OrderNumber, Succeeded: true}
}

// buildRequest assembles the provider payload. Names below the provider's
// two-character minimum are replaced with the sentinel instead of failing
// the call.
func (r *Reconciler) buildRequest(rec *order.Order) *tracking.SyncRequest {
	name := rec.CustomerName
	if utf8.RuneCountInString(name) < 2 {
		name = customerNameSentinel
	}
	return &tracking.SyncRequest{
		TrackingNumber: rec.Details.TrackingNumber,
		CustomerName:   name,
		DepartmentKey:  rec.DepartmentKey,
		Phone:          rec.Details.Phone,
		CarrierCode:    tracking.ResolveCarrier(rec.Details.Carrier),
	}
}

func (r *Reconciler) markCancelled(records []*order.Order, outcomes []tracking.SyncOutcome) {
	for i, rec := range records {
		rec.MarkSyncFailed("同步已取消")
		outcomes[i] = tracking.SyncOutcome{
			OrderNumber:  rec.OrderNumber,
			Succeeded:    false,
			ErrorMessage: "同步已取消",
		}
	}
	r.logger.Info("reconciliation cancelled", zap.Int("remaining", len(records)))
}

// persistOutcomes writes the per-order sync state back to the store. The
// detached context keeps the write alive when the run context was cancelled.
func (r *Reconciler) persistOutcomes(records []*order.Order) {
	if len(records) == 0 {
		return
	}
	if err := r.tracker.Transition(progress.StateSaving); err != nil {
		r.logger.Warn("progress transition rejected", zap.Error(err))
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.orders.UpdateSyncStatus(saveCtx, records); err != nil {
		r.logger.Error("persisting sync outcomes failed", zap.Error(err))
	}
}
