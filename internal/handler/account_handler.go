package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopease/internal/middleware"
	"shopease/internal/service/account"
	"shopease/pkg/utils"
)

// AccountHandler user account handler
type AccountHandler struct {
	accountService account.AccountService
}

// NewAccountHandler creates an account handler
func NewAccountHandler(accountService account.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// Register user registration
func (h *AccountHandler) Register(c *gin.Context) {
	var req account.RegisterRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	user, err := h.accountService.Register(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login user login
func (h *AccountHandler) Login(c *gin.Context) {
	var req account.LoginRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	result, err := h.accountService.Login(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"token":      result.Token,
		"expires_in": result.ExpiresIn,
		"user":       result.User,
	})
}

// Logout revokes the caller's token
func (h *AccountHandler) Logout(c *gin.Context) {
	if err := h.accountService.Logout(c.Request.Context(), middleware.GetToken(c)); err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// GetProfile returns the authenticated user
func (h *AccountHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.HandleError(c, utils.ErrUnauthorized)
		return
	}

	user, err := h.accountService.GetUser(c.Request.Context(), userID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the authenticated user
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.HandleError(c, utils.ErrUnauthorized)
		return
	}
	var req account.UpdateProfileRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	user, err := h.accountService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword changes the authenticated user's password
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.HandleError(c, utils.ErrUnauthorized)
		return
	}
	var req account.ChangePasswordRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	if err := h.accountService.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// GetUser looks up a user for peer services
func (h *AccountHandler) GetUser(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	user, err := h.accountService.GetUser(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListUsers lists users
func (h *AccountHandler) ListUsers(c *gin.Context) {
	page, perPage := utils.PageParams(c, 20)
	users, total, err := h.accountService.ListUsers(c.Request.Context(), page, perPage)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users":      users,
		"pagination": utils.NewPagination(page, perPage, total),
	})
}
