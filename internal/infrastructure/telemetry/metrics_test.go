package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/logistics/backend/internal/domain/tracking"
	"github.com/logistics/backend/internal/infrastructure/telemetry"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:     false,
		ServiceName: "test-service",
	}, logger)
	require.NoError(t, err)
	require.NotNil(t, mp)

	assert.False(t, mp.IsEnabled())

	// the no-op meter still produces working instruments
	meter := mp.Meter("test")
	counter, err := telemetry.NewCounter(meter, "test_total", "test counter", "{items}")
	require.NoError(t, err)
	counter.Inc(ctx)

	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewImportMetrics_RequiresMeter(t *testing.T) {
	_, err := telemetry.NewImportMetrics(nil, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestImportMetrics_RecordsWithoutPanic(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, logger)
	require.NoError(t, err)

	metrics, err := telemetry.NewImportMetrics(mp.Meter("test"), logger)
	require.NoError(t, err)

	metrics.RecordImportAccepted(ctx, 25)
	metrics.RecordImportRejected(ctx, 3)

	report := tracking.NewSyncReport(2)
	report.Add(tracking.SyncOutcome{OrderNumber: "A001", Succeeded: true})
	report.Add(tracking.SyncOutcome{OrderNumber: "A002", Succeeded: false, ErrorMessage: "timeout"})
	metrics.RecordSyncReport(ctx, report, 1500*time.Millisecond)

	// nil report is tolerated
	metrics.RecordSyncReport(ctx, nil, time.Second)
}
