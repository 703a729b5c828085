package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shopease/internal/model"
	"shopease/pkg/utils"
)

// NotificationFilter narrows notification listings
type NotificationFilter struct {
	Status   string
	Category string
}

// NotificationStats counts notifications by status, type and category
type NotificationStats struct {
	Total      int64            `json:"total_notifications"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByType     map[string]int64 `json:"by_type"`
	ByCategory map[string]int64 `json:"by_category"`
}

// NotificationRepository notification repository interface
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	Update(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id uint64) (*model.Notification, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.Notification, error)
	List(ctx context.Context, filter NotificationFilter, page, pageSize int) ([]*model.Notification, int64, error)
	MarkRead(ctx context.Context, id uint64) error

	// ClaimRetry bumps retry_count of a failed notification still below maxRetries.
	// It reports false when the row no longer qualifies.
	ClaimRetry(ctx context.Context, id uint64, maxRetries int) (bool, error)

	Stats(ctx context.Context) (*NotificationStats, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return utils.Persistence(err, "failed to create notification")
	}
	return nil
}

func (r *notificationRepository) Update(ctx context.Context, n *model.Notification) error {
	if err := r.db.WithContext(ctx).Save(n).Error; err != nil {
		return utils.Persistence(err, "failed to update notification")
	}
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id uint64) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, translate(err, utils.ErrNotificationNotFound, "load notification")
	}
	return &n, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uint64) ([]*model.Notification, error) {
	var list []*model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, utils.Persistence(err, "failed to list user notifications")
	}
	return list, nil
}

func (r *notificationRepository) List(ctx context.Context, filter NotificationFilter, page, pageSize int) ([]*model.Notification, int64, error) {
	var list []*model.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Notification{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, utils.Persistence(err, "failed to count notifications")
	}
	if err := query.Scopes(Paginate(page, pageSize)).Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, 0, utils.Persistence(err, "failed to list notifications")
	}
	return list, total, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  model.NotificationStatusRead,
			"read_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return utils.Persistence(result.Error, "failed to mark notification read")
	}
	if result.RowsAffected == 0 {
		return utils.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) ClaimRetry(ctx context.Context, id uint64, maxRetries int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND status = ? AND retry_count < ?", id, model.NotificationStatusFailed, maxRetries).
		Update("retry_count", gorm.Expr("retry_count + 1"))
	if result.Error != nil {
		return false, utils.Persistence(result.Error, "failed to claim retry")
	}
	return result.RowsAffected > 0, nil
}

func (r *notificationRepository) Stats(ctx context.Context) (*NotificationStats, error) {
	stats := &NotificationStats{
		ByStatus:   map[string]int64{},
		ByType:     map[string]int64{},
		ByCategory: map[string]int64{},
	}
	if err := r.db.WithContext(ctx).Model(&model.Notification{}).Count(&stats.Total).Error; err != nil {
		return nil, utils.Persistence(err, "failed to count notifications")
	}

	groups := []struct {
		column string
		into   map[string]int64
	}{
		{"status", stats.ByStatus},
		{"type", stats.ByType},
		{"category", stats.ByCategory},
	}
	for _, g := range groups {
		var rows []struct {
			Key   string
			Count int64
		}
		err := r.db.WithContext(ctx).
			Model(&model.Notification{}).
			Select(g.column + " AS `key`, COUNT(*) AS count").
			Group(g.column).
			Scan(&rows).Error
		if err != nil {
			return nil, utils.Persistence(err, "failed to aggregate notifications")
		}
		for _, row := range rows {
			g.into[row.Key] = row.Count
		}
	}
	return stats, nil
}
