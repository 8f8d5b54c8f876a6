package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/logistics/backend/internal/domain/tracking"
)

// MetricsError describes a metric initialization failure.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewImportMetrics", Err: "meter cannot be nil"}

// AttrResult labels counters with the outcome of an operation.
var AttrResult = attribute.Key("result")

// ImportMetrics tracks batch import activity and the reconciliation runs
// that follow each import.
type ImportMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	importRunsTotal      *Counter
	importRowsTotal      *Counter
	importRowErrorsTotal *Counter
	syncOrdersTotal      *Counter
	syncRunDuration      *Histogram
}

// NewImportMetrics creates the import and sync metric instruments.
func NewImportMetrics(meter metric.Meter, logger *zap.Logger) (*ImportMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &ImportMetrics{
		meter:  meter,
		logger: logger,
	}

	var err error

	m.importRunsTotal, err = NewCounter(
		meter,
		"logistics_import_runs_total",
		"Total number of batch import attempts",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	m.importRowsTotal, err = NewCounter(
		meter,
		"logistics_import_rows_total",
		"Total number of order rows accepted for import",
		"{rows}",
	)
	if err != nil {
		return nil, err
	}

	m.importRowErrorsTotal, err = NewCounter(
		meter,
		"logistics_import_row_errors_total",
		"Total number of row validation errors",
		"{errors}",
	)
	if err != nil {
		return nil, err
	}

	m.syncOrdersTotal, err = NewCounter(
		meter,
		"logistics_sync_orders_total",
		"Total number of orders reconciled against the tracking provider",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	m.syncRunDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "logistics_sync_run_duration_seconds",
		Description: "Duration of reconciliation runs",
		Unit:        "s",
		Boundaries:  []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordImportAccepted records a successful import of the given row count.
func (m *ImportMetrics) RecordImportAccepted(ctx context.Context, rows int) {
	m.importRunsTotal.Inc(ctx, AttrResult.String("accepted"))
	m.importRowsTotal.Add(ctx, int64(rows))
}

// RecordImportRejected records an import that failed validation.
func (m *ImportMetrics) RecordImportRejected(ctx context.Context, rowErrors int) {
	m.importRunsTotal.Inc(ctx, AttrResult.String("rejected"))
	m.importRowErrorsTotal.Add(ctx, int64(rowErrors))
}

// RecordSyncReport records the per-order outcomes and total duration of a
// finished reconciliation run.
func (m *ImportMetrics) RecordSyncReport(ctx context.Context, report *tracking.SyncReport, duration time.Duration) {
	if report == nil {
		return
	}

	if report.Succeeded > 0 {
		m.syncOrdersTotal.Add(ctx, int64(report.Succeeded), AttrResult.String("success"))
	}
	if report.Failed > 0 {
		m.syncOrdersTotal.Add(ctx, int64(report.Failed), AttrResult.String("failure"))
	}
	m.syncRunDuration.RecordDuration(ctx, duration)

	m.logger.Debug("sync metrics recorded",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", duration))
}
