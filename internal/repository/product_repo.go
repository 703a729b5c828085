package repository

import (
	"context"

	"gorm.io/gorm"

	"shopease/internal/model"
	"shopease/pkg/utils"
)

// ProductFilter narrows product listings
type ProductFilter struct {
	Category string
}

// ProductRepository product repository interface
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uint64) (*model.Product, error)
	// Update writes only the given columns
	Update(ctx context.Context, id uint64, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, filter ProductFilter, page, pageSize int) ([]*model.Product, int64, error)

	// DecrStock takes quantity units only if that many are on hand
	DecrStock(ctx context.Context, id uint64, quantity int) error
	IncrStock(ctx context.Context, id uint64, quantity int) error
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a product repository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return utils.Persistence(err, "failed to create product")
	}
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, translate(err, utils.ErrProductNotFound, "load product")
	}
	return &product, nil
}

func (r *productRepository) Update(ctx context.Context, id uint64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return utils.Persistence(err, "failed to update product")
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if result.Error != nil {
		return utils.Persistence(result.Error, "failed to delete product")
	}
	if result.RowsAffected == 0 {
		return utils.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter, page, pageSize int) ([]*model.Product, int64, error) {
	var products []*model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, utils.Persistence(err, "failed to count products")
	}
	if err := query.Scopes(Paginate(page, pageSize)).Order("id ASC").Find(&products).Error; err != nil {
		return nil, 0, utils.Persistence(err, "failed to list products")
	}
	return products, total, nil
}

// DecrStock uses a guarded update so concurrent reservations never drive stock negative
func (r *productRepository) DecrStock(ctx context.Context, id uint64, quantity int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return utils.Persistence(result.Error, "failed to reserve stock")
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return utils.ErrInsufficientStock
	}
	return nil
}

func (r *productRepository) IncrStock(ctx context.Context, id uint64, quantity int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return utils.Persistence(result.Error, "failed to release stock")
	}
	if result.RowsAffected == 0 {
		return utils.ErrProductNotFound
	}
	return nil
}
