package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// OrderStatuses lists every status in workflow order
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusRejected,
	OrderStatusCompleted,
	OrderStatusCanceled,
}

// IsValid checks if the status is one of the known statuses
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected, OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether staff can no longer move the order out of this status
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusRejected, OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// ParseOrderStatus converts a raw value into an OrderStatus
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(raw)
	return s, s.IsValid()
}

// Order represents a rental/sale order placed by staff on behalf of a customer
type Order struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ProductName    string          `gorm:"not null" json:"product_name"`
	ProductDetails string          `gorm:"type:text" json:"product_details"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Quantity       int             `gorm:"not null;default:1;check:quantity > 0" json:"quantity"`
	Photos         []string        `gorm:"type:text;serializer:json" json:"photos"`
	PhotoURLs      []string        `gorm:"-" json:"photo_urls,omitempty"` // computed, not persisted
	DeliveryAt     *time.Time      `json:"delivery_at"`
	ReturnAt       *time.Time      `json:"return_at"`
	AmountAdvance  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount_advance"`
	AmountPending  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount_pending"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	Status         OrderStatus     `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	StaffID        uint            `gorm:"not null;index" json:"staff_id"`
	Staff          *User           `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	CustomerID     uint            `gorm:"not null;index" json:"customer_id"`
	Customer       *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsOwnedBy reports whether the given staff member authored the order
func (o *Order) IsOwnedBy(user *User) bool {
	return user != nil && o.StaffID == user.ID
}

// CanBeViewedBy is the single authorization rule for order access:
// admins see everything, staff see only what they authored.
func (o *Order) CanBeViewedBy(user *User) bool {
	return user.IsAdmin() || o.IsOwnedBy(user)
}
