package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"shopease/internal/model"
	"shopease/internal/monitor"
	"shopease/internal/repository"
	"shopease/pkg/log"
	"shopease/pkg/utils"
)

// CreateProductRequest create product request
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required,gt=0"`
	Category    string          `json:"category" binding:"max=100"`
	Stock       int             `json:"stock" binding:"gte=0"`
	ImageURL    string          `json:"image_url" binding:"max=500"`
}

// UpdateProductRequest only the fields present are applied
type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" binding:"omitempty,gt=0"`
	Category    *string          `json:"category" binding:"omitempty,max=100"`
	Stock       *int             `json:"stock" binding:"omitempty,gte=0"`
	ImageURL    *string          `json:"image_url" binding:"omitempty,max=500"`
}

// StockRequest reserve/release request
type StockRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// CatalogService product catalog interface
type CatalogService interface {
	CreateProduct(ctx context.Context, req *CreateProductRequest) (*model.Product, error)
	GetProduct(ctx context.Context, id uint64) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uint64, req *UpdateProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uint64) error
	ListProducts(ctx context.Context, category string, page, perPage int) ([]*model.Product, int64, error)

	// Reserve atomically takes quantity units, failing with ErrInsufficientStock
	Reserve(ctx context.Context, id uint64, quantity int) (*model.Product, error)
	// Release puts quantity units back
	Release(ctx context.Context, id uint64, quantity int) (*model.Product, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	metrics     *monitor.Metrics
}

// NewCatalogService creates a catalog service
func NewCatalogService(productRepo repository.ProductRepository, metrics *monitor.Metrics) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		metrics:     metrics,
	}
}

func (s *catalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*model.Product, error) {
	product := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       model.Money(req.Price),
		Category:    req.Category,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"price":      product.Price.String(),
		"stock":      product.Stock,
	}).Info("Product created")
	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uint64) (*model.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uint64, req *UpdateProductRequest) (*model.Product, error) {
	if _, err := s.productRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	// stock moves concurrently through reserve/release, so only touch what was sent
	fields := make(map[string]interface{})
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Price != nil {
		fields["price"] = model.Money(*req.Price)
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if req.Stock != nil {
		fields["stock"] = *req.Stock
	}
	if req.ImageURL != nil {
		fields["image_url"] = *req.ImageURL
	}

	if err := s.productRepo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.productRepo.GetByID(ctx, id)
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uint64) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	log.WithField("product_id", id).Info("Product deleted")
	return nil
}

func (s *catalogService) ListProducts(ctx context.Context, category string, page, perPage int) ([]*model.Product, int64, error) {
	return s.productRepo.List(ctx, repository.ProductFilter{Category: category}, page, perPage)
}

func (s *catalogService) Reserve(ctx context.Context, id uint64, quantity int) (*model.Product, error) {
	if quantity <= 0 {
		return nil, utils.Validationf("quantity must be greater than 0")
	}

	if err := s.productRepo.DecrStock(ctx, id, quantity); err != nil {
		s.metrics.RecordStockOperation("reserve", utils.KindOf(err).String())
		log.WithFields(map[string]interface{}{
			"product_id": id,
			"quantity":   quantity,
			"error":      err.Error(),
		}).Warn("Stock reservation rejected")
		return nil, err
	}
	s.metrics.RecordStockOperation("reserve", "ok")

	return s.productRepo.GetByID(ctx, id)
}

func (s *catalogService) Release(ctx context.Context, id uint64, quantity int) (*model.Product, error) {
	if quantity <= 0 {
		return nil, utils.Validationf("quantity must be greater than 0")
	}

	if err := s.productRepo.IncrStock(ctx, id, quantity); err != nil {
		s.metrics.RecordStockOperation("release", utils.KindOf(err).String())
		return nil, err
	}
	s.metrics.RecordStockOperation("release", "ok")

	log.WithFields(map[string]interface{}{
		"product_id": id,
		"quantity":   quantity,
	}).Info("Stock released")
	return s.productRepo.GetByID(ctx, id)
}
