package model

import (
	"time"
)

// Notification types / delivery methods
const (
	NotificationEmail = "email"
	NotificationSMS   = "sms"
	NotificationPush  = "push"
	NotificationInApp = "in_app"
)

// Notification status values
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
	NotificationStatusRead    = "read"
)

// Notification categories
const (
	CategoryOrderConfirmation   = "order_confirmation"
	CategoryPaymentConfirmation = "payment_confirmation"
	CategoryShippingUpdate      = "shipping_update"
	CategoryWelcome             = "welcome"
	CategoryUserRegistration    = "user_registration"
	CategoryGeneral             = "general"
)

// Notification a rendered message and its delivery outcome
type Notification struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint64     `gorm:"not null;index" json:"user_id"`
	Type           string     `gorm:"type:varchar(20);not null" json:"type"`
	Category       string     `gorm:"type:varchar(50);not null;default:general;index" json:"category"`
	Title          string     `gorm:"type:varchar(200)" json:"title"`
	Message        string     `gorm:"type:text;not null" json:"message"`
	Status         string     `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	DeliveryMethod string     `gorm:"type:varchar(20)" json:"delivery_method"`
	Recipient      string     `gorm:"type:varchar(200);comment:email address or phone number" json:"recipient"`
	SentAt         *time.Time `json:"sent_at"`
	ReadAt         *time.Time `json:"read_at"`
	OrderID        *uint64    `gorm:"index" json:"order_id"`
	PaymentID      *string    `gorm:"type:varchar(50)" json:"payment_id"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message"`
	RetryCount     int        `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName set name
func (Notification) TableName() string {
	return "notifications"
}

// IsFailed check notification delivery failed
func (n *Notification) IsFailed() bool {
	return n.Status == NotificationStatusFailed
}

// IsValidDeliveryMethod reports whether m can be dispatched
func IsValidDeliveryMethod(m string) bool {
	switch m {
	case NotificationEmail, NotificationSMS, NotificationPush, NotificationInApp:
		return true
	}
	return false
}
