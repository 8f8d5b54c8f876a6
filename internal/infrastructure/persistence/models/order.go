package models

import (
	"github.com/shopspring/decimal"

	"github.com/logistics/backend/internal/domain/order"
)

// OrderModel is the persistence model for the Order domain entity
type OrderModel struct {
	BaseModel
	OrderNumber    string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	CustomerName   string          `gorm:"type:varchar(100);not null"`
	DepartmentKey  string          `gorm:"type:varchar(50);not null;index"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending'"`
	TrackingNumber string          `gorm:"type:varchar(64)"`
	Carrier        string          `gorm:"type:varchar(50)"`
	Phone          string          `gorm:"type:varchar(30)"`
	CODAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	SyncState      string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	SyncError      string          `gorm:"type:text"`
	Archived       bool            `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *order.Order {
	return &order.Order{
		BaseEntity:    m.BaseModel.ToDomain(),
		OrderNumber:   m.OrderNumber,
		CustomerName:  m.CustomerName,
		DepartmentKey: m.DepartmentKey,
		Status:        order.Status(m.Status),
		Details: order.Details{
			TrackingNumber: m.TrackingNumber,
			Carrier:        m.Carrier,
			Phone:          m.Phone,
			CODAmount:      m.CODAmount,
		},
		SyncState: order.SyncState(m.SyncState),
		SyncError: m.SyncError,
		Archived:  m.Archived,
	}
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *order.Order) {
	m.BaseModel.FromDomain(o.BaseEntity)
	m.OrderNumber = o.OrderNumber
	m.CustomerName = o.CustomerName
	m.DepartmentKey = o.DepartmentKey
	m.Status = string(o.Status)
	m.TrackingNumber = o.Details.TrackingNumber
	m.Carrier = o.Details.Carrier
	m.Phone = o.Details.Phone
	m.CODAmount = o.Details.CODAmount
	m.SyncState = string(o.SyncState)
	m.SyncError = o.SyncError
	m.Archived = o.Archived
}
