package importapp

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/logistics/backend/internal/application/progress"
	"github.com/logistics/backend/internal/domain/audit"
	"github.com/logistics/backend/internal/domain/order"
	"github.com/logistics/backend/internal/domain/shared"
	"github.com/logistics/backend/internal/domain/tracking"
)

// RunLock serializes import runs across service instances. Acquire returns
// false when another run already holds the lock.
type RunLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// ImportResult is the caller-facing outcome of one import request. Message
// is a localized, potentially multi-line summary intended for direct display.
type ImportResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	RunID   uuid.UUID      `json:"run_id,omitempty"`
	Records []*order.Order `json:"records,omitempty"`
}

// Run is the handle of one asynchronous reconciliation run. Discarding the
// handle after Cancel abandons the run: calls already in flight complete but
// their outcomes are not surfaced.
type Run struct {
	ID      uuid.UUID
	records []*order.Order

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	report *tracking.SyncReport
}

// Cancel stops the run; no new provider calls are issued after it is observed
func (r *Run) Cancel() {
	r.cancel()
}

// Done is closed when the run has finished
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Report returns the aggregated report, nil while the run is still going
func (r *Run) Report() *tracking.SyncReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.report
}

func (r *Run) setReport(report *tracking.SyncReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report = report
}

// Coordinator orchestrates one import: validation, the atomic store
// submission, the audit entry, and the hand-off to the reconciler. Validation
// failures abort before any side effect.
type Coordinator struct {
	validator  *RowValidator
	orders     order.Repository
	logs       audit.OperationLogRepository
	tracker    *progress.Tracker
	reconciler *Reconciler
	lock       RunLock
	logger     *zap.Logger

	mu      sync.RWMutex
	lastRun *Run
}

// NewCoordinator creates an import coordinator
func NewCoordinator(
	validator *RowValidator,
	orders order.Repository,
	logs audit.OperationLogRepository,
	tracker *progress.Tracker,
	reconciler *Reconciler,
	lock RunLock,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		validator:  validator,
		orders:     orders,
		logs:       logs,
		tracker:    tracker,
		reconciler: reconciler,
		lock:       lock,
		logger:     logger,
	}
}

// ImportBatch validates the rows and, when the whole batch is clean, submits
// it to the store and launches reconciliation in the background. Any
// validation error rejects the entire batch before any store mutation. A
// second import while a run is active is rejected with shared.ErrRunActive.
func (c *Coordinator) ImportBatch(ctx context.Context, rows []RawRow) (*ImportResult, error) {
	records, rowErrs := c.validator.Validate(rows)
	if len(rowErrs) > 0 {
		c.logger.Info("import rejected by validation",
			zap.Int("rows", len(rows)),
			zap.Int("errors", len(rowErrs)))
		return &ImportResult{Success: false, Message: JoinRowErrors(rowErrs)}, nil
	}
	if len(records) == 0 {
		return &ImportResult{Success: false, Message: "没有可导入的数据"}, nil
	}

	acquired, err := c.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, shared.ErrRunActive
	}

	runID := uuid.New()
	if err := c.tracker.Begin(runID, len(records)); err != nil {
		if relErr := c.lock.Release(ctx); relErr != nil {
			c.logger.Warn("releasing run lock failed", zap.Error(relErr))
		}
		return nil, err
	}

	if err := c.orders.SaveBatch(ctx, records); err != nil {
		c.tracker.Fail()
		if relErr := c.lock.Release(ctx); relErr != nil {
			c.logger.Warn("releasing run lock failed", zap.Error(relErr))
		}
		c.logger.Error("order store rejected batch", zap.Error(err))
		return &ImportResult{Success: false, Message: err.Error()}, nil
	}

	c.appendImportEntry(ctx, runID, len(records))

	run := c.launchRun(runID, records)
	c.logger.Info("import accepted",
		zap.String("run_id", runID.String()),
		zap.Int("records", len(records)))

	return &ImportResult{
		Success: true,
		Message: fmt.Sprintf("成功导入 %d 条订单，同步进行中", len(records)),
		RunID:   run.ID,
		Records: records,
	}, nil
}

// launchRun hands the batch to the reconciler on a context detached from the
// HTTP request, so the run survives the response.
func (c *Coordinator) launchRun(runID uuid.UUID, records []*order.Order) *Run {
	runCtx, cancel := context.WithCancel(context.Background())
	run := &Run{
		ID:      runID,
		records: records,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	c.lastRun = run
	c.mu.Unlock()

	go func() {
		defer close(run.done)
		defer cancel()
		defer func() {
			if err := c.lock.Release(context.Background()); err != nil {
				c.logger.Warn("releasing run lock failed", zap.Error(err))
			}
		}()
		run.setReport(c.reconciler.Reconcile(runCtx, records))
	}()
	return run
}

func (c *Coordinator) appendImportEntry(ctx context.Context, runID uuid.UUID, count int) {
	entry, err := audit.NewOperationLog(
		audit.OperationImport,
		"order_batch",
		runID.String(),
		fmt.Sprintf("导入订单 %d 条", count),
	)
	if err != nil {
		c.logger.Warn("building audit entry failed", zap.Error(err))
		return
	}
	if err := c.logs.Append(ctx, entry); err != nil {
		// the import itself succeeded, the audit sink is best-effort
		c.logger.Warn("appending audit entry failed", zap.Error(err))
	}
}

// LastRun returns the handle of the most recently launched run
func (c *Coordinator) LastRun() (*Run, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRun, c.lastRun != nil
}

// Run returns the handle for a run id, currently only the latest is retained
func (c *Coordinator) Run(id uuid.UUID) (*Run, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastRun == nil || c.lastRun.ID != id {
		return nil, false
	}
	return c.lastRun, true
}

// CancelActiveRun cancels the latest run if it is still going
func (c *Coordinator) CancelActiveRun() bool {
	run, ok := c.LastRun()
	if !ok {
		return false
	}
	select {
	case <-run.Done():
		return false
	default:
		run.Cancel()
		return true
	}
}
