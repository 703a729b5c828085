package model

import "github.com/shopspring/decimal"

// OrderStatusMessage asks the order service to move an order after a payment event
type OrderStatusMessage struct {
	OrderID       uint64 `json:"order_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status,omitempty"`
}

// NotificationMessage is the body posted to the notification service
type NotificationMessage struct {
	UserID         uint64          `json:"user_id"`
	Type           string          `json:"type"`
	Category       string          `json:"category,omitempty"`
	Title          string          `json:"title,omitempty"`
	Message        string          `json:"message"`
	DeliveryMethod string          `json:"delivery_method,omitempty"`
	Email          string          `json:"email,omitempty"`
	Username       string          `json:"username,omitempty"`
	FirstName      string          `json:"first_name,omitempty"`
	OrderID        *uint64         `json:"order_id,omitempty"`
	PaymentID      string          `json:"payment_id,omitempty"`
	Amount         decimal.Decimal `json:"amount,omitzero"`
	PaymentStatus  string          `json:"payment_status,omitempty"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	TransactionID  string          `json:"transaction_id,omitempty"`
}
