package order

import (
	"fmt"
	"strings"

	"github.com/logistics/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle status of an imported order
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusReturned  Status = "returned"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusShipped, StatusDelivered, StatusReturned, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus parses a status value from an imported sheet. An empty value
// resolves to the canonical initial status.
func ParseStatus(value string) (Status, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" {
		return StatusPending, nil
	}
	s := Status(v)
	if !s.IsValid() {
		return "", fmt.Errorf("无效的订单状态: %s", value)
	}
	return s, nil
}

// SyncState tracks the reconciliation state of an order against the
// external tracking provider.
type SyncState string

const (
	SyncStatePending SyncState = "pending"
	SyncStateSynced  SyncState = "synced"
	SyncStateFailed  SyncState = "failed"
)

// Details holds the shipment details attached to an order
type Details struct {
	TrackingNumber string          `json:"tracking_number"`
	Carrier        string          `json:"carrier"`
	Phone          string          `json:"phone"`
	CODAmount      decimal.Decimal `json:"cod_amount"`
}

// Order is the validated unit of import. It exists only if it passed every
// validation rule and is not mutated after construction, except for the
// reconciliation outcome recorded by MarkSynced/MarkSyncFailed.
type Order struct {
	shared.BaseEntity
	OrderNumber   string    `json:"order_number"`
	CustomerName  string    `json:"customer_name"`
	DepartmentKey string    `json:"department_key"`
	Status        Status    `json:"status"`
	Details       Details   `json:"details"`
	SyncState     SyncState `json:"sync_state"`
	SyncError     string    `json:"sync_error,omitempty"`
	Archived      bool      `json:"archived"`
}

// New constructs a validated order record
func New(orderNumber, customerName, departmentKey string, status Status, details Details) (*Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "单号不能为空")
	}
	if strings.TrimSpace(customerName) == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "客户姓名不能为空")
	}
	if strings.TrimSpace(departmentKey) == "" {
		return nil, shared.NewDomainError("INVALID_DEPARTMENT", "部门不能为空")
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("无效的订单状态: %s", status))
	}

	return &Order{
		BaseEntity:    shared.NewBaseEntity(),
		OrderNumber:   strings.TrimSpace(orderNumber),
		CustomerName:  strings.TrimSpace(customerName),
		DepartmentKey: strings.TrimSpace(departmentKey),
		Status:        status,
		Details:       details,
		SyncState:     SyncStatePending,
	}, nil
}

// MarkSynced records a successful reconciliation against the tracking provider
func (o *Order) MarkSynced() {
	o.SyncState = SyncStateSynced
	o.SyncError = ""
	o.Touch()
}

// MarkSyncFailed records a failed reconciliation with the captured message
func (o *Order) MarkSyncFailed(message string) {
	o.SyncState = SyncStateFailed
	o.SyncError = message
	o.Touch()
}
