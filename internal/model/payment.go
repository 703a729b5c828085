package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Payment status values
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// Payment methods
const (
	PaymentMethodCard       = "card"
	PaymentMethodUPI        = "upi"
	PaymentMethodNetBanking = "netbanking"
	PaymentMethodWallet     = "wallet"
)

// Payment one payment attempt against an order
type Payment struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID       string          `gorm:"type:varchar(50);uniqueIndex;not null;comment:public payment reference" json:"payment_id"`
	OrderID         uint64          `gorm:"not null;index;comment:order ID (owned by order service)" json:"order_id"`
	UserID          uint64          `gorm:"not null;index" json:"user_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency        string          `gorm:"type:varchar(3);not null;default:INR" json:"currency"`
	PaymentMethod   string          `gorm:"type:varchar(50);not null" json:"payment_method"`
	PaymentStatus   string          `gorm:"type:varchar(20);not null;default:pending;index" json:"payment_status"`
	TransactionID   *string         `gorm:"type:varchar(100);uniqueIndex;comment:gateway reference" json:"transaction_id"`
	CardLastFour    string          `gorm:"type:varchar(4)" json:"card_last_four,omitempty"`
	CardBrand       string          `gorm:"type:varchar(20)" json:"card_brand,omitempty"`
	GatewayResponse string          `gorm:"type:text;comment:raw gateway response JSON" json:"-"`
	FailureReason   string          `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`
	RefundedAt      *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName set name
func (Payment) TableName() string {
	return "payments"
}

// IsCompleted check payment is completed
func (p *Payment) IsCompleted() bool {
	return p.PaymentStatus == PaymentStatusCompleted
}

// GatewayDetails decodes the stored gateway response, nil when absent or unreadable
func (p *Payment) GatewayDetails() map[string]interface{} {
	if p.GatewayResponse == "" {
		return nil
	}
	var details map[string]interface{}
	if err := json.Unmarshal([]byte(p.GatewayResponse), &details); err != nil {
		return nil
	}
	return details
}

// IsValidPaymentStatus reports whether s is a payment status
func IsValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}
