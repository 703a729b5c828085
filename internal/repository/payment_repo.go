package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"shopease/internal/model"
	"shopease/pkg/utils"
)

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	Status string
}

// PaymentStats aggregate payment figures
type PaymentStats struct {
	Total        int64           `json:"total_payments"`
	Completed    int64           `json:"completed_payments"`
	Failed       int64           `json:"failed_payments"`
	Refunded     int64           `json:"refunded_payments"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// PaymentRepository payment repository interface
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	Update(ctx context.Context, payment *model.Payment) error
	GetByPaymentID(ctx context.Context, paymentID string) (*model.Payment, error)
	ListByOrder(ctx context.Context, orderID uint64) ([]*model.Payment, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.Payment, error)
	List(ctx context.Context, filter PaymentFilter, page, pageSize int) ([]*model.Payment, int64, error)

	// HasCompleted reports whether the order already holds a completed payment
	HasCompleted(ctx context.Context, orderID uint64) (bool, error)

	// MarkRefunded flips a completed payment to refunded; false when it was no longer completed
	MarkRefunded(ctx context.Context, paymentID string, gatewayResponse string) (bool, error)

	Stats(ctx context.Context) (*PaymentStats, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return utils.Persistence(err, "failed to create payment")
	}
	return nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	if err := r.db.WithContext(ctx).Save(payment).Error; err != nil {
		return utils.Persistence(err, "failed to update payment")
	}
	return nil
}

func (r *paymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&payment).Error; err != nil {
		return nil, translate(err, utils.ErrPaymentNotFound, "load payment")
	}
	return &payment, nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uint64) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		Find(&payments).Error
	if err != nil {
		return nil, utils.Persistence(err, "failed to list order payments")
	}
	return payments, nil
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID uint64) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&payments).Error
	if err != nil {
		return nil, utils.Persistence(err, "failed to list user payments")
	}
	return payments, nil
}

func (r *paymentRepository) List(ctx context.Context, filter PaymentFilter, page, pageSize int) ([]*model.Payment, int64, error) {
	var payments []*model.Payment
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Payment{})
	if filter.Status != "" {
		query = query.Where("payment_status = ?", filter.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, utils.Persistence(err, "failed to count payments")
	}
	if err := query.Scopes(Paginate(page, pageSize)).Order("created_at DESC, id DESC").Find(&payments).Error; err != nil {
		return nil, 0, utils.Persistence(err, "failed to list payments")
	}
	return payments, total, nil
}

func (r *paymentRepository) HasCompleted(ctx context.Context, orderID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("order_id = ? AND payment_status = ?", orderID, model.PaymentStatusCompleted).
		Count(&count).Error
	if err != nil {
		return false, utils.Persistence(err, "failed to check order payments")
	}
	return count > 0, nil
}

func (r *paymentRepository) MarkRefunded(ctx context.Context, paymentID string, gatewayResponse string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("payment_id = ? AND payment_status = ?", paymentID, model.PaymentStatusCompleted).
		Updates(map[string]interface{}{
			"payment_status":   model.PaymentStatusRefunded,
			"gateway_response": gatewayResponse,
			"refunded_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return false, utils.Persistence(result.Error, "failed to refund payment")
	}
	return result.RowsAffected > 0, nil
}

func (r *paymentRepository) Stats(ctx context.Context) (*PaymentStats, error) {
	var rows []struct {
		PaymentStatus string
		Count         int64
		Amount        decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Select("payment_status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group("payment_status").
		Scan(&rows).Error
	if err != nil {
		return nil, utils.Persistence(err, "failed to aggregate payments")
	}

	stats := &PaymentStats{TotalRevenue: decimal.Zero}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.PaymentStatus {
		case model.PaymentStatusCompleted:
			stats.Completed = row.Count
			stats.TotalRevenue = model.Money(row.Amount)
		case model.PaymentStatusFailed:
			stats.Failed = row.Count
		case model.PaymentStatusRefunded:
			stats.Refunded = row.Count
		}
	}
	return stats, nil
}
