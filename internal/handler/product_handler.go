package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopease/internal/model"
	"shopease/internal/service/catalog"
	"shopease/pkg/utils"
)

// ProductHandler product catalog handler
type ProductHandler struct {
	catalogService catalog.CatalogService
}

// NewProductHandler creates a product handler
func NewProductHandler(catalogService catalog.CatalogService) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
	}
}

// ListProducts lists products, optionally by category
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, perPage := utils.PageParams(c, 20)
	products, total, err := h.catalogService.ListProducts(c.Request.Context(), c.Query("category"), page, perPage)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":   products,
		"count":      len(products),
		"pagination": utils.NewPagination(page, perPage, total),
	})
}

// GetProduct gets a product by id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateProduct creates a product
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req catalog.CreateProductRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// UpdateProduct applies a partial update
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	var req catalog.UpdateProductRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct deletes a product
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// Reserve takes stock for an order
func (h *ProductHandler) Reserve(c *gin.Context) {
	h.adjustStock(c, h.catalogService.Reserve, "Stock reserved")
}

// Release puts stock back
func (h *ProductHandler) Release(c *gin.Context) {
	h.adjustStock(c, h.catalogService.Release, "Stock released")
}

type stockFunc func(ctx context.Context, id uint64, quantity int) (*model.Product, error)

func (h *ProductHandler) adjustStock(c *gin.Context, apply stockFunc, message string) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	var req catalog.StockRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	product, err := apply(c.Request.Context(), id, req.Quantity)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"product": product,
	})
}
