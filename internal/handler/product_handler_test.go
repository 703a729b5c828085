package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"shopease/internal/model"
	"shopease/internal/service/catalog"
	"shopease/pkg/utils"
)

// MockCatalogService is a mock implementation of catalog.CatalogService
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) product(args mock.Arguments) (*model.Product, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, req *catalog.CreateProductRequest) (*model.Product, error) {
	return m.product(m.Called(ctx, req))
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id uint64) (*model.Product, error) {
	return m.product(m.Called(ctx, id))
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, id uint64, req *catalog.UpdateProductRequest) (*model.Product, error) {
	return m.product(m.Called(ctx, id, req))
}

func (m *MockCatalogService) DeleteProduct(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) ListProducts(ctx context.Context, category string, page, perPage int) ([]*model.Product, int64, error) {
	args := m.Called(ctx, category, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogService) Reserve(ctx context.Context, id uint64, quantity int) (*model.Product, error) {
	return m.product(m.Called(ctx, id, quantity))
}

func (m *MockCatalogService) Release(ctx context.Context, id uint64, quantity int) (*model.Product, error) {
	return m.product(m.Called(ctx, id, quantity))
}

func productRouter(svc *MockCatalogService) *gin.Engine {
	h := NewProductHandler(svc)
	router := gin.New()
	router.GET("/products", h.ListProducts)
	router.GET("/products/:id", h.GetProduct)
	router.POST("/products", h.CreateProduct)
	router.PUT("/products/:id", h.UpdateProduct)
	router.DELETE("/products/:id", h.DeleteProduct)
	router.POST("/products/:id/reserve", h.Reserve)
	return router
}

func TestProductHandler_ListProducts(t *testing.T) {
	svc := new(MockCatalogService)
	products := []*model.Product{{ID: 1, Name: "Laptop", Price: decimal.RequireFromString("999.99"), Stock: 3}}
	svc.On("ListProducts", mock.Anything, "electronics", 2, 5).Return(products, int64(6), nil)

	w := performRequest(productRouter(svc), http.MethodGet, "/products?category=electronics&page=2&per_page=5", "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["products"], 1)
	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(6), pagination["total"])
	assert.Equal(t, float64(2), pagination["pages"])
	svc.AssertExpectations(t)
}

func TestProductHandler_GetProduct(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockCatalogService)
		svc.On("GetProduct", mock.Anything, uint64(1)).
			Return(&model.Product{ID: 1, Name: "Laptop", Price: decimal.RequireFromString("999.99"), Stock: 3}, nil)

		w := performRequest(productRouter(svc), http.MethodGet, "/products/1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `999.99`, string(mustField(t, w, "price")))
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockCatalogService)
		svc.On("GetProduct", mock.Anything, uint64(9)).Return(nil, utils.ErrProductNotFound)

		w := performRequest(productRouter(svc), http.MethodGet, "/products/9", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "product not found", decode(t, w)["error"])
	})

	t.Run("bad id", func(t *testing.T) {
		w := performRequest(productRouter(new(MockCatalogService)), http.MethodGet, "/products/abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProductHandler_CreateProduct(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockCatalogService)
		svc.On("CreateProduct", mock.Anything, mock.MatchedBy(func(req *catalog.CreateProductRequest) bool {
			return req.Name == "Mouse" && req.Price.Equal(decimal.RequireFromString("19.99"))
		})).Return(&model.Product{ID: 2, Name: "Mouse"}, nil)

		w := performRequest(productRouter(svc), http.MethodPost, "/products", `{"name":"Mouse","price":19.99,"stock":10}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "Product created successfully", decode(t, w)["message"])
		svc.AssertExpectations(t)
	})

	t.Run("price must be positive", func(t *testing.T) {
		svc := new(MockCatalogService)

		w := performRequest(productRouter(svc), http.MethodPost, "/products", `{"name":"Mouse","price":-1}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w)["error"], "price")
		svc.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	})
}

func TestProductHandler_Reserve(t *testing.T) {
	svc := new(MockCatalogService)
	svc.On("Reserve", mock.Anything, uint64(1), 5).Return(nil, utils.ErrInsufficientStock)

	w := performRequest(productRouter(svc), http.MethodPost, "/products/1/reserve", `{"quantity":5}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "insufficient stock", decode(t, w)["error"])
}

func TestProductHandler_DeleteProduct(t *testing.T) {
	svc := new(MockCatalogService)
	svc.On("DeleteProduct", mock.Anything, uint64(1)).Return(nil)

	w := performRequest(productRouter(svc), http.MethodDelete, "/products/1", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Product deleted successfully", decode(t, w)["message"])
}
