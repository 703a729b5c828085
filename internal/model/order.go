package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order status values
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Payment status values tracked on the order
const (
	OrderPaymentPending   = "pending"
	OrderPaymentCompleted = "completed"
	OrderPaymentFailed    = "failed"
	OrderPaymentRefunded  = "refunded"
)

// Order customer order with frozen line items
type Order struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement;comment:order ID" json:"id"`
	UserID          uint64          `gorm:"not null;index:idx_orders_user_status,priority:1;comment:user ID (owned by user service)" json:"user_id"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null;comment:sum of item subtotals" json:"total_amount"`
	Status          string          `gorm:"type:varchar(20);not null;default:pending;index:idx_orders_user_status,priority:2" json:"status"`
	PaymentStatus   string          `gorm:"type:varchar(20);not null;default:pending" json:"payment_status"`
	ShippingAddress string          `gorm:"type:text" json:"shipping_address"`
	StockReserved   bool            `gorm:"not null;default:false;comment:catalog still holds the quantities" json:"stock_reserved"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

// TableName set name
func (Order) TableName() string {
	return "orders"
}

// OrderItem line item priced at order time
type OrderItem struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint64          `gorm:"not null;index" json:"order_id"`
	ProductID uint64          `gorm:"not null;index" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null;comment:catalog unit price at order time" json:"price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`

	// filled from the catalog on read, never stored
	ProductName        *string `gorm:"-" json:"product_name"`
	ProductDescription *string `gorm:"-" json:"product_description"`
}

// TableName set name
func (OrderItem) TableName() string {
	return "order_items"
}

// IsValidOrderStatus reports whether s is one of the five order statuses
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsValidOrderPaymentStatus reports whether s can be stored as the order's payment status
func IsValidOrderPaymentStatus(s string) bool {
	switch s {
	case OrderPaymentPending, OrderPaymentCompleted, OrderPaymentFailed, OrderPaymentRefunded:
		return true
	}
	return false
}

// CanCancel is false once the order has left the warehouse
func (o *Order) CanCancel() bool {
	return o.Status != OrderStatusShipped && o.Status != OrderStatusDelivered
}

// IsCancelled check order is cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// ItemsTotal sums the frozen subtotals
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal)
	}
	return total
}
