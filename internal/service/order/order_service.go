package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"shopease/internal/config"
	"shopease/internal/model"
	"shopease/internal/monitor"
	"shopease/internal/repository"
	"shopease/pkg/log"
	"shopease/pkg/utils"
)

// Catalog is the part of the product service the order workflow depends on
type Catalog interface {
	GetProduct(ctx context.Context, id uint64) (*model.Product, error)
	Reserve(ctx context.Context, id uint64, quantity int) error
	Release(ctx context.Context, id uint64, quantity int) error
}

// OrderItemRequest one cart line; any client price is ignored
type OrderItemRequest struct {
	ProductID uint64 `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest create order request
type CreateOrderRequest struct {
	UserID          uint64             `json:"user_id" binding:"required"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress string             `json:"shipping_address" binding:"max=500"`
}

// UpdateStatusRequest update status request
type UpdateStatusRequest struct {
	Status        string `json:"status" binding:"required"`
	PaymentStatus string `json:"payment_status"`
}

// OrderService order workflow interface
type OrderService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.Order, error)

	// GetOrder loads the order and fills product details from the catalog when it can
	GetOrder(ctx context.Context, id uint64) (*model.Order, error)

	ListOrders(ctx context.Context, status string, page, perPage int) ([]*model.Order, int64, error)
	ListUserOrders(ctx context.Context, userID uint64) ([]*model.Order, error)

	// UpdateStatus accepts any of the five statuses from any current status
	UpdateStatus(ctx context.Context, id uint64, req *UpdateStatusRequest) (*model.Order, error)

	CancelOrder(ctx context.Context, id uint64) (*model.Order, error)

	Close() error
}

type orderService struct {
	orderRepo   repository.OrderRepository
	catalog     Catalog
	cache       *productCache
	metrics     *monitor.Metrics
	stockPolicy string
}

// NewOrderService creates an order service
func NewOrderService(
	orderRepo repository.OrderRepository,
	catalog Catalog,
	metrics *monitor.Metrics,
	cfg config.OrderConfig,
) (OrderService, error) {
	cache, err := newProductCache(cfg.EnrichmentTTL, cfg.EnrichmentCacheMB)
	if err != nil {
		return nil, err
	}
	return &orderService{
		orderRepo:   orderRepo,
		catalog:     catalog,
		cache:       cache,
		metrics:     metrics,
		stockPolicy: cfg.StockPolicy,
	}, nil
}

// stockLine is the quantity of one product across every line of a cart
type stockLine struct {
	productID uint64
	quantity  int
}

// CreateOrder creates an order
func (s *orderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.Order, error) {
	if req.UserID == 0 {
		return nil, utils.Validationf("user_id is required")
	}
	if len(req.Items) == 0 {
		return nil, utils.Validationf("items must not be empty")
	}
	for i, item := range req.Items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			return nil, utils.Validationf("item %d must have product_id and a positive quantity", i)
		}
	}

	// 1. Price every line from the catalog and check stock per product
	products := make(map[uint64]*model.Product, len(req.Items))
	var lines []stockLine
	wanted := make(map[uint64]int, len(req.Items))

	for _, item := range req.Items {
		if _, ok := products[item.ProductID]; !ok {
			p, err := s.catalog.GetProduct(ctx, item.ProductID)
			if err != nil {
				s.metrics.RecordOrderCreation("rejected")
				if errors.Is(err, utils.ErrProductNotFound) {
					return nil, utils.WrapError(utils.ErrProductNotFound, utils.KindNotFound,
						fmt.Sprintf("product %d not found", item.ProductID))
				}
				return nil, err
			}
			products[item.ProductID] = p
			lines = append(lines, stockLine{productID: item.ProductID})
		}
		wanted[item.ProductID] += item.Quantity
	}

	for i := range lines {
		lines[i].quantity = wanted[lines[i].productID]
		if !products[lines[i].productID].HasStock(lines[i].quantity) {
			s.metrics.RecordOrderCreation("rejected")
			return nil, insufficientStock(lines[i].productID)
		}
	}

	// 2. Freeze prices and total
	order := &model.Order{
		UserID:          req.UserID,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.OrderPaymentPending,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		Items:           make([]model.OrderItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		price := model.Money(products[item.ProductID].Price)
		order.Items = append(order.Items, model.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     price,
			Subtotal:  model.Money(price.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}
	order.TotalAmount = order.ItemsTotal()

	// 3. Reserve stock
	if s.reserving() {
		if err := s.reserve(ctx, lines); err != nil {
			s.metrics.RecordOrderCreation("rejected")
			return nil, err
		}
		order.StockReserved = true
	}

	// 4. Persist order with items
	if err := s.orderRepo.Create(ctx, order); err != nil {
		log.WithFields(map[string]interface{}{
			"user_id": req.UserID,
			"error":   err.Error(),
		}).Error("Failed to create order")

		if s.reserving() {
			s.release(ctx, 0, lines)
		}
		s.metrics.RecordOrderCreation("failed")
		return nil, err
	}

	s.metrics.RecordOrderCreation("created")
	s.metrics.RecordOrderStatus(order.Status)

	log.WithFields(map[string]interface{}{
		"order_id":     order.ID,
		"user_id":      order.UserID,
		"items":        len(order.Items),
		"total_amount": order.TotalAmount.StringFixed(2),
	}).Info("Order created")

	return order, nil
}

func insufficientStock(productID uint64) error {
	return utils.WrapError(utils.ErrInsufficientStock, utils.KindValidation,
		fmt.Sprintf("insufficient stock for product %d", productID))
}

func (s *orderService) reserving() bool {
	return s.stockPolicy != config.StockPolicyAdvisory
}

// reserve takes stock line by line and gives back what it took when a line fails
func (s *orderService) reserve(ctx context.Context, lines []stockLine) error {
	for i, line := range lines {
		err := s.catalog.Reserve(ctx, line.productID, line.quantity)
		if err == nil {
			s.metrics.RecordStockOperation("reserve", "ok")
			continue
		}

		s.metrics.RecordStockOperation("reserve", "failed")
		log.WithFields(map[string]interface{}{
			"product_id": line.productID,
			"quantity":   line.quantity,
			"error":      err.Error(),
		}).Warn("Failed to reserve stock")

		s.release(ctx, 0, lines[:i])
		if errors.Is(err, utils.ErrInsufficientStock) {
			return insufficientStock(line.productID)
		}
		if errors.Is(err, utils.ErrProductNotFound) {
			return utils.WrapError(utils.ErrProductNotFound, utils.KindNotFound,
				fmt.Sprintf("product %d not found", line.productID))
		}
		return err
	}
	return nil
}

// release returns stock; failures are logged and left for manual reconciliation
func (s *orderService) release(ctx context.Context, orderID uint64, lines []stockLine) {
	ctx = context.WithoutCancel(ctx)
	for _, line := range lines {
		if err := s.catalog.Release(ctx, line.productID, line.quantity); err != nil {
			s.metrics.RecordStockOperation("release", "failed")
			log.WithFields(map[string]interface{}{
				"order_id":   orderID,
				"product_id": line.productID,
				"quantity":   line.quantity,
				"error":      err.Error(),
			}).Error("Failed to release stock")
			continue
		}
		s.metrics.RecordStockOperation("release", "ok")
	}
}

// releaseOrder hands back a cancelled order's stock if it still holds any
func (s *orderService) releaseOrder(ctx context.Context, order *model.Order) {
	claimed, err := s.orderRepo.ClaimStockRelease(context.WithoutCancel(ctx), order.ID)
	if err != nil {
		log.WithError(err).WithField("order_id", order.ID).Error("Failed to claim stock release")
		return
	}
	order.StockReserved = false
	if claimed {
		s.release(ctx, order.ID, linesOf(order))
	}
}

func linesOf(order *model.Order) []stockLine {
	index := make(map[uint64]int, len(order.Items))
	var lines []stockLine
	for _, item := range order.Items {
		if i, ok := index[item.ProductID]; ok {
			lines[i].quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, stockLine{productID: item.ProductID, quantity: item.Quantity})
	}
	return lines
}

func (s *orderService) GetOrder(ctx context.Context, id uint64) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.enrich(ctx, order)
	return order, nil
}

// enrich copies product name and description onto items; misses stay null
func (s *orderService) enrich(ctx context.Context, order *model.Order) {
	for i := range order.Items {
		item := &order.Items[i]

		details, ok := s.cache.get(item.ProductID)
		if !ok {
			product, err := s.catalog.GetProduct(ctx, item.ProductID)
			if err != nil {
				log.WithFields(map[string]interface{}{
					"order_id":   order.ID,
					"product_id": item.ProductID,
					"error":      err.Error(),
				}).Debug("Skipping item enrichment")
				continue
			}
			details = &productDetails{Name: product.Name, Description: product.Description}
			s.cache.set(item.ProductID, details)
		}

		name, description := details.Name, details.Description
		item.ProductName = &name
		item.ProductDescription = &description
	}
}

func (s *orderService) ListOrders(ctx context.Context, status string, page, perPage int) ([]*model.Order, int64, error) {
	if status != "" && !model.IsValidOrderStatus(status) {
		return nil, 0, utils.ErrInvalidStatus
	}
	return s.orderRepo.List(ctx, repository.OrderFilter{Status: status}, page, perPage)
}

func (s *orderService) ListUserOrders(ctx context.Context, userID uint64) ([]*model.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

// UpdateStatus update order status
func (s *orderService) UpdateStatus(ctx context.Context, id uint64, req *UpdateStatusRequest) (*model.Order, error) {
	if !model.IsValidOrderStatus(req.Status) {
		return nil, utils.WrapError(utils.ErrInvalidStatus, utils.KindValidation,
			"status must be one of: pending, confirmed, shipped, delivered, cancelled")
	}
	if req.PaymentStatus != "" && !model.IsValidOrderPaymentStatus(req.PaymentStatus) {
		return nil, utils.WrapError(utils.ErrInvalidStatus, utils.KindValidation,
			"payment_status must be one of: pending, completed, failed, refunded")
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := order.Status

	if order.IsCancelled() && req.Status != model.OrderStatusCancelled {
		return nil, utils.ErrReopenNotAllowed
	}

	ok, err := s.orderRepo.UpdateStatus(ctx, id, req.Status, req.PaymentStatus)
	if err != nil {
		return nil, err
	}
	if !ok && req.Status != model.OrderStatusCancelled {
		// cancelled by someone else since the read
		return nil, utils.ErrReopenNotAllowed
	}
	order.Status = req.Status
	if req.PaymentStatus != "" {
		order.PaymentStatus = req.PaymentStatus
	}
	s.metrics.RecordOrderStatus(order.Status)

	if order.IsCancelled() {
		s.releaseOrder(ctx, order)
	}

	log.WithFields(map[string]interface{}{
		"order_id":       order.ID,
		"from":           previous,
		"to":             order.Status,
		"payment_status": order.PaymentStatus,
	}).Info("Order status updated")

	return order, nil
}

// CancelOrder cancels an order that has not shipped
func (s *orderService) CancelOrder(ctx context.Context, id uint64) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.IsCancelled() {
		return order, nil
	}
	if !order.CanCancel() {
		return nil, utils.ErrCancelNotAllowed
	}

	ok, err := s.orderRepo.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		// lost a race with another writer
		current, err := s.orderRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.IsCancelled() {
			return current, nil
		}
		return nil, utils.ErrCancelNotAllowed
	}

	order.Status = model.OrderStatusCancelled
	s.metrics.RecordOrderStatus(order.Status)
	s.releaseOrder(ctx, order)

	log.WithField("order_id", order.ID).Info("Order cancelled")
	return order, nil
}

func (s *orderService) Close() error {
	return s.cache.close()
}
