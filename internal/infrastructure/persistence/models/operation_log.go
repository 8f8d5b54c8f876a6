package models

import (
	"github.com/logistics/backend/internal/domain/audit"
)

// OperationLogModel is the persistence model for the append-only audit log
type OperationLogModel struct {
	BaseModel
	OperationType string `gorm:"type:varchar(20);not null;index"`
	TargetType    string `gorm:"type:varchar(50);not null"`
	TargetID      string `gorm:"type:varchar(64);index"`
	Details       string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (OperationLogModel) TableName() string {
	return "operation_logs"
}

// ToDomain converts the persistence model to a domain OperationLog
func (m *OperationLogModel) ToDomain() *audit.OperationLog {
	return &audit.OperationLog{
		BaseEntity:    m.BaseModel.ToDomain(),
		OperationType: audit.OperationType(m.OperationType),
		TargetType:    m.TargetType,
		TargetID:      m.TargetID,
		Details:       m.Details,
	}
}

// FromDomain populates the persistence model from a domain OperationLog
func (m *OperationLogModel) FromDomain(l *audit.OperationLog) {
	m.BaseModel.FromDomain(l.BaseEntity)
	m.OperationType = string(l.OperationType)
	m.TargetType = l.TargetType
	m.TargetID = l.TargetID
	m.Details = l.Details
}
