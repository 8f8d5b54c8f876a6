package tracking

import (
	"context"
	"errors"
	"fmt"
)

// Provider failure modes. All of them are per-call failures: a single
// query-and-sync call failing must never abort the rest of a batch.
var (
	ErrProviderRateLimited = errors.New("tracking provider rate limited the request")
	ErrProviderUnavailable = errors.New("tracking provider unavailable")
	ErrProviderTimeout     = errors.New("tracking provider request timed out")
)

// SyncRequest is the payload of one query-and-sync call against the external
// tracking provider.
type SyncRequest struct {
	TrackingNumber string      `json:"tracking_number"`
	CustomerName   string      `json:"customer_name"`
	DepartmentKey  string      `json:"department_key"`
	Phone          string      `json:"phone"`
	CarrierCode    CarrierCode `json:"carrier_code"`
}

// Service queries the external tracking provider and synchronizes one order.
// Implementations block until the provider responds or the per-call timeout
// expires; a timeout is reported as an error return, never a panic.
type Service interface {
	QueryAndSync(ctx context.Context, req *SyncRequest) error
}

// SyncOutcome is the per-order result of one reconciliation attempt
type SyncOutcome struct {
	OrderNumber  string `json:"order_number"`
	Succeeded    bool   `json:"succeeded"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// SyncReport aggregates the outcomes of a reconciliation run. Outcomes are
// ordered to match the input batch.
type SyncReport struct {
	Outcomes  []SyncOutcome `json:"outcomes"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// NewSyncReport creates an empty report sized for n orders
func NewSyncReport(n int) *SyncReport {
	return &SyncReport{Outcomes: make([]SyncOutcome, 0, n)}
}

// Add appends an outcome and updates the counters
func (r *SyncReport) Add(outcome SyncOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
	if outcome.Succeeded {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// Len returns the number of recorded outcomes
func (r *SyncReport) Len() int {
	return len(r.Outcomes)
}

// AllFailed reports whether every order in a non-empty batch failed
func (r *SyncReport) AllFailed() bool {
	return len(r.Outcomes) > 0 && r.Succeeded == 0
}

// Summary returns the human-readable batch summary shown to the caller
func (r *SyncReport) Summary() string {
	return fmt.Sprintf("同步完成：成功 %d 单，失败 %d 单", r.Succeeded, r.Failed)
}
