package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopease/internal/service/payment"
	"shopease/pkg/utils"
)

// PaymentHandler payment handler
type PaymentHandler struct {
	paymentService payment.PaymentService
}

// NewPaymentHandler creates a payment handler
func NewPaymentHandler(paymentService payment.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// ProcessPayment charges an order through the gateway
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	var req payment.ProcessPaymentRequest
	if err := utils.BindJSONStrict(c, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	result, err := h.paymentService.ProcessPayment(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetPayment gets a payment by its PAY_ id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	p, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("payment_id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListOrderPayments lists every attempt for an order
func (h *PaymentHandler) ListOrderPayments(c *gin.Context) {
	orderID, err := utils.ParseID(c.Param("order_id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	payments, err := h.paymentService.ListOrderPayments(c.Request.Context(), orderID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// ListUserPayments lists a user's payments
func (h *PaymentHandler) ListUserPayments(c *gin.Context) {
	userID, err := utils.ParseID(c.Param("user_id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	payments, err := h.paymentService.ListUserPayments(c.Request.Context(), userID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// ListPayments lists payments with an optional status filter
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	page, perPage := utils.PageParams(c, 10)
	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), c.Query("status"), page, perPage)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payments":   payments,
		"pagination": utils.NewPagination(page, perPage, total),
	})
}

// RefundPayment refunds a completed payment
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	result, err := h.paymentService.RefundPayment(c.Request.Context(), c.Param("payment_id"))
	if details, declined := payment.RefundDetails(err); declined {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Refund processing failed",
			"details": details,
		})
		return
	}
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stats payment statistics
func (h *PaymentHandler) Stats(c *gin.Context) {
	stats, err := h.paymentService.Stats(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
