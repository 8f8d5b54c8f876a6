package dto

import (
	"time"

	"github.com/logistics/backend/internal/domain/audit"
	"github.com/logistics/backend/internal/domain/order"
)

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID             string    `json:"id"`
	OrderNumber    string    `json:"order_number"`
	CustomerName   string    `json:"customer_name"`
	DepartmentKey  string    `json:"department_key"`
	Status         string    `json:"status"`
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier"`
	Phone          string    `json:"phone"`
	CODAmount      string    `json:"cod_amount"`
	SyncState      string    `json:"sync_state"`
	SyncError      string    `json:"sync_error,omitempty"`
	Archived       bool      `json:"archived"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FromOrder converts a domain order to its API representation
func FromOrder(o *order.Order) OrderResponse {
	return OrderResponse{
		ID:             o.ID.String(),
		OrderNumber:    o.OrderNumber,
		CustomerName:   o.CustomerName,
		DepartmentKey:  o.DepartmentKey,
		Status:         string(o.Status),
		TrackingNumber: o.Details.TrackingNumber,
		Carrier:        o.Details.Carrier,
		Phone:          o.Details.Phone,
		CODAmount:      o.Details.CODAmount.StringFixed(2),
		SyncState:      string(o.SyncState),
		SyncError:      o.SyncError,
		Archived:       o.Archived,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// FromOrders converts a slice of domain orders
func FromOrders(orders []*order.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromOrder(o))
	}
	return out
}

// ImportResponse represents the outcome of an import request
type ImportResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Imported int    `json:"imported"`
}

// OperationLogResponse represents an audit entry in API responses
type OperationLogResponse struct {
	ID            string    `json:"id"`
	OperationType string    `json:"operation_type"`
	TargetType    string    `json:"target_type"`
	TargetID      string    `json:"target_id"`
	Details       string    `json:"details"`
	CreatedAt     time.Time `json:"created_at"`
}

// FromOperationLog converts an audit entry to its API representation
func FromOperationLog(l *audit.OperationLog) OperationLogResponse {
	return OperationLogResponse{
		ID:            l.ID.String(),
		OperationType: string(l.OperationType),
		TargetType:    l.TargetType,
		TargetID:      l.TargetID,
		Details:       l.Details,
		CreatedAt:     l.CreatedAt,
	}
}

// FromOperationLogs converts a slice of audit entries
func FromOperationLogs(logs []*audit.OperationLog) []OperationLogResponse {
	out := make([]OperationLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, FromOperationLog(l))
	}
	return out
}
