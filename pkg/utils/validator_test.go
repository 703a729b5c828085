package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itemRequest struct {
	ProductID uint64 `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type cartRequest struct {
	UserID uint64          `json:"user_id" binding:"required"`
	Items  []itemRequest   `json:"items" binding:"required,min=1,dive"`
	Amount decimal.Decimal `json:"amount" binding:"omitempty,gt=0"`
}

func contextWithBody(body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		input     string
		expected  uint64
		wantError bool
	}{
		{"123", 123, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"12.5", 0, true},
	}

	for _, tt := range tests {
		result, err := ParseID(tt.input)
		if tt.wantError {
			assert.Error(t, err, tt.input)
			assert.Equal(t, KindValidation, KindOf(err))
		} else {
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		}
	}
}

func TestBindJSONStrict(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		var req cartRequest
		err := BindJSONStrict(contextWithBody(`{"user_id":1,"items":[{"product_id":2,"quantity":3}],"amount":10.5}`), &req)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), req.UserID)
		assert.True(t, decimal.RequireFromString("10.5").Equal(req.Amount))
	})

	t.Run("UnknownField", func(t *testing.T) {
		var req cartRequest
		err := BindJSONStrict(contextWithBody(`{"user_id":1,"items":[{"product_id":2,"quantity":1}],"price":1}`), &req)
		require.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
		assert.Contains(t, MessageOf(err), "unknown field")
	})

	t.Run("EmptyItems", func(t *testing.T) {
		var req cartRequest
		err := BindJSONStrict(contextWithBody(`{"user_id":1,"items":[]}`), &req)
		require.Error(t, err)
		assert.Contains(t, MessageOf(err), "items must be at least 1")
	})

	t.Run("NonPositiveQuantity", func(t *testing.T) {
		var req cartRequest
		err := BindJSONStrict(contextWithBody(`{"user_id":1,"items":[{"product_id":2,"quantity":-1}]}`), &req)
		require.Error(t, err)
		assert.Contains(t, MessageOf(err), "quantity must be greater than 0")
	})

	t.Run("NegativeDecimal", func(t *testing.T) {
		var req cartRequest
		err := BindJSONStrict(contextWithBody(`{"user_id":1,"items":[{"product_id":2,"quantity":1}],"amount":-3}`), &req)
		require.Error(t, err)
		assert.Contains(t, MessageOf(err), "amount must be greater than 0")
	})

	t.Run("EmptyBody", func(t *testing.T) {
		var req cartRequest
		err := BindJSONStrict(contextWithBody(``), &req)
		require.Error(t, err)
		assert.Equal(t, "request body is required", MessageOf(err))
	})

	t.Run("Malformed", func(t *testing.T) {
		var req cartRequest
		err := BindJSONStrict(contextWithBody(`{"user_id":`), &req)
		require.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestBindJSONIgnoresUnknownFields(t *testing.T) {
	var req cartRequest
	err := BindJSON(contextWithBody(`{"user_id":1,"items":[{"product_id":2,"quantity":1}],"extra":"x"}`), &req)
	assert.NoError(t, err)

	var missing cartRequest
	err = BindJSON(contextWithBody(`{"items":[{"product_id":2,"quantity":1}]}`), &missing)
	require.Error(t, err)
	assert.Equal(t, "user_id is required", MessageOf(err))
}
