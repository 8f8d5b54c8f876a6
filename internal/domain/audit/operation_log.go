// Package audit holds the append-only operation log written by state-changing
// operations. The log viewer itself lives outside this service.
package audit

import (
	"context"
	"time"

	"github.com/logistics/backend/internal/domain/shared"
)

// OperationType classifies a log entry
type OperationType string

const (
	OperationImport  OperationType = "IMPORT"
	OperationDelete  OperationType = "DELETE"
	OperationRestore OperationType = "RESTORE"
)

// IsValid checks if the operation type is valid
func (t OperationType) IsValid() bool {
	switch t {
	case OperationImport, OperationDelete, OperationRestore:
		return true
	}
	return false
}

// OperationLog is one append-only audit entry
type OperationLog struct {
	shared.BaseEntity
	OperationType OperationType `json:"operation_type"`
	TargetType    string        `json:"target_type"`
	TargetID      string        `json:"target_id"`
	Details       string        `json:"details"`
}

// NewOperationLog creates a new audit entry
func NewOperationLog(opType OperationType, targetType, targetID, details string) (*OperationLog, error) {
	if !opType.IsValid() {
		return nil, shared.NewDomainError("INVALID_OPERATION_TYPE", "Unknown operation type: "+string(opType))
	}
	if targetType == "" {
		return nil, shared.NewDomainError("INVALID_TARGET_TYPE", "Target type cannot be empty")
	}
	return &OperationLog{
		BaseEntity:    shared.NewBaseEntity(),
		OperationType: opType,
		TargetType:    targetType,
		TargetID:      targetID,
		Details:       details,
	}, nil
}

// OccurredAt returns when the logged operation happened
func (l *OperationLog) OccurredAt() time.Time {
	return l.CreatedAt
}

// OperationLogRepository is the append-only persistence contract
type OperationLogRepository interface {
	Append(ctx context.Context, entry *OperationLog) error
	FindRecent(ctx context.Context, limit, offset int) ([]*OperationLog, int64, error)
}
