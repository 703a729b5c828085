package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopease/internal/service/order"
	"shopease/pkg/utils"
)

// OrderHandler order handler
type OrderHandler struct {
	orderService order.OrderService
}

// NewOrderHandler creates an order handler
func NewOrderHandler(orderService order.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// CreateOrder creates an order priced from the catalog
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req order.CreateOrderRequest
	if err := utils.BindJSONStrict(c, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	created, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetOrder gets an order with product details
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// ListUserOrders lists a user's orders, newest first
func (h *OrderHandler) ListUserOrders(c *gin.Context) {
	userID, err := utils.ParseID(c.Param("user_id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	orders, err := h.orderService.ListUserOrders(c.Request.Context(), userID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// ListOrders lists all orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, perPage := utils.PageParams(c, 10)
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), c.Query("status"), page, perPage)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":     orders,
		"pagination": utils.NewPagination(page, perPage, total),
	})
}

// UpdateStatus sets the order status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	var req order.UpdateStatusRequest
	if err := utils.BindJSONStrict(c, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	updated, err := h.orderService.UpdateStatus(c.Request.Context(), id, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// CancelOrder cancels an order that has not shipped
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	cancelled, err := h.orderService.CancelOrder(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"order":   cancelled,
	})
}
