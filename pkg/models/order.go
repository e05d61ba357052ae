package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the canonical order status vocabulary. It is the only set
// of values accepted on the wire, stored in the database, and emitted in
// realtime events.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCooking   OrderStatus = "COOKING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusDelivery  OrderStatus = "DELIVERY"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusConfirmed,
	OrderStatusCooking,
	OrderStatusReady,
	OrderStatusDelivery,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// ParseOrderStatus returns the status named by s. Legacy spellings such as
// PREPARING or DELIVERED are rejected.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// OrderType is fixed at creation.
type OrderType string

const (
	OrderTypeDelivery OrderType = "DELIVERY"
	OrderTypePickup   OrderType = "PICKUP"
)

// Order is the aggregate root. Everything except Status and UpdatedAt is a
// snapshot taken at creation.
type Order struct {
	ID            uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Status        OrderStatus     `json:"status" gorm:"type:varchar(16);not null;index"`
	Type          OrderType       `json:"type" gorm:"type:varchar(16);not null"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:numeric(14,2);not null"`
	DeliveryPrice decimal.Decimal `json:"delivery_price" gorm:"type:numeric(14,2);not null"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone" gorm:"index"`
	Address       string          `json:"address,omitempty"`
	LocationLat   *float64        `json:"location_lat,omitempty"`
	LocationLon   *float64        `json:"location_lon,omitempty"`
	Comment       string          `json:"comment,omitempty"`
	PaymentType   string          `json:"payment_type"`
	Items         []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem is a line of an order. Price is the unit price at order time.
type OrderItem struct {
	ID        uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID   uint64          `json:"order_id" gorm:"index;not null"`
	ProductID string          `json:"product_id" gorm:"type:varchar(64);not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(14,2);not null"`
}

// LineTotal returns Price × Quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// StatusTransition is an audit row written for every applied status change.
type StatusTransition struct {
	ID        uint64      `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID   uint64      `json:"order_id" gorm:"index;not null"`
	From      OrderStatus `json:"from" gorm:"column:from_status;type:varchar(16);not null"`
	To        OrderStatus `json:"to" gorm:"column:to_status;type:varchar(16);not null"`
	Actor     string      `json:"actor"`
	CreatedAt time.Time   `json:"created_at"`
}

// Product is the subset of the catalog the order core reads.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(14,2);not null"`
	IsAvailable bool            `json:"is_available" gorm:"default:true"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Setting is a single key/value configuration entry.
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey;type:varchar(64)"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
