package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopease/internal/service/notification"
	"shopease/pkg/utils"
)

// NotificationHandler notification handler
type NotificationHandler struct {
	notificationService notification.NotificationService
}

// NewNotificationHandler creates a notification handler
func NewNotificationHandler(notificationService notification.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// Send dispatches a notification; a failed delivery still answers 201
func (h *NotificationHandler) Send(c *gin.Context) {
	var req notification.SendRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	result, err := h.notificationService.Dispatch(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetNotification gets a notification by id
func (h *NotificationHandler) GetNotification(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	n, err := h.notificationService.GetNotification(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// ListUserNotifications lists a user's notifications
func (h *NotificationHandler) ListUserNotifications(c *gin.Context) {
	userID, err := utils.ParseID(c.Param("user_id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	list, err := h.notificationService.ListUserNotifications(c.Request.Context(), userID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListNotifications lists notifications with status and category filters
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	page, perPage := utils.PageParams(c, 20)
	list, total, err := h.notificationService.ListNotifications(
		c.Request.Context(),
		c.Query("status"),
		c.Query("category"),
		page,
		perPage,
	)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": list,
		"pagination":    utils.NewPagination(page, perPage, total),
	})
}

// MarkRead marks a notification read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	n, err := h.notificationService.MarkRead(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// Retry re-sends a failed notification
func (h *NotificationHandler) Retry(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	result, err := h.notificationService.Retry(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stats notification statistics
func (h *NotificationHandler) Stats(c *gin.Context) {
	stats, err := h.notificationService.Stats(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TestEmail sends a rendered template to an address
func (h *NotificationHandler) TestEmail(c *gin.Context) {
	var req notification.TestEmailRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	result, err := h.notificationService.TestEmail(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}
