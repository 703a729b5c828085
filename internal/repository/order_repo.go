package repository

import (
	"context"

	"gorm.io/gorm"

	"shopease/internal/model"
	"shopease/pkg/utils"
)

// OrderFilter narrows order listings
type OrderFilter struct {
	UserID uint64
	Status string
}

// OrderRepository order repository interface
type OrderRepository interface {
	// Create stores the order and its items in one transaction
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uint64) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter, page, pageSize int) ([]*model.Order, int64, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.Order, error)

	// UpdateStatus sets status and, when non-empty, payment status. A cancelled
	// order only accepts cancelled again; false means no row matched.
	UpdateStatus(ctx context.Context, id uint64, status, paymentStatus string) (bool, error)

	// Cancel moves the order to cancelled unless it was shipped, delivered or
	// already cancelled. It reports false when the guard rejected the update.
	Cancel(ctx context.Context, id uint64) (bool, error)

	// ClaimStockRelease clears the reserved flag; only the caller that gets
	// true may hand the stock back.
	ClaimStockRelease(ctx context.Context, id uint64) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(order).Error; err != nil {
			return err
		}

		if len(order.Items) > 0 {
			for i := range order.Items {
				order.Items[i].OrderID = order.ID
			}
			if err := tx.Create(&order.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.Persistence(err, "failed to create order")
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, translate(err, utils.ErrOrderNotFound, "load order")
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter, page, pageSize int) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Order{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, utils.Persistence(err, "failed to count orders")
	}

	err := query.Preload("Items").
		Scopes(Paginate(page, pageSize)).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, 0, utils.Persistence(err, "failed to list orders")
	}
	return orders, total, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uint64) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, utils.Persistence(err, "failed to list user orders")
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uint64, status, paymentStatus string) (bool, error) {
	updates := map[string]interface{}{
		"status": status,
	}
	if paymentStatus != "" {
		updates["payment_status"] = paymentStatus
	}

	query := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id)
	if status != model.OrderStatusCancelled {
		query = query.Where("status <> ?", model.OrderStatusCancelled)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return false, utils.Persistence(result.Error, "failed to update order status")
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepository) Cancel(ctx context.Context, id uint64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND status NOT IN ?", id, []string{model.OrderStatusShipped, model.OrderStatusDelivered, model.OrderStatusCancelled}).
		Update("status", model.OrderStatusCancelled)
	if result.Error != nil {
		return false, utils.Persistence(result.Error, "failed to cancel order")
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepository) ClaimStockRelease(ctx context.Context, id uint64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND stock_reserved = ?", id, true).
		Update("stock_reserved", false)
	if result.Error != nil {
		return false, utils.Persistence(result.Error, "failed to clear stock reservation")
	}
	return result.RowsAffected > 0, nil
}
