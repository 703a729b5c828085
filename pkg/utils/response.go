package utils

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopease/pkg/log"
)

// ErrorBody is the single error shape every service answers with
type ErrorBody struct {
	Error string `json:"error"`
}

// ErrorResponse returns error response
func ErrorResponse(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, ErrorBody{Error: message})
}

// HandleError maps err onto its status code and writes the error body.
func HandleError(c *gin.Context, err error) {
	kind := KindOf(err)
	status := kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.WithFields(map[string]interface{}{
			"path":  c.FullPath(),
			"kind":  kind.String(),
			"error": err.Error(),
		}).Error("Request failed")
	}
	ErrorResponse(c, status, MessageOf(err))
}

// Pagination page metadata of list endpoints
type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
}

// NewPagination computes the page count for total rows
func NewPagination(page, perPage int, total int64) Pagination {
	pages := 0
	if perPage > 0 {
		pages = int(math.Ceil(float64(total) / float64(perPage)))
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, Pages: pages}
}

// PageParams reads page and per_page query params with defaults and bounds.
func PageParams(c *gin.Context, defaultPerPage int) (page, perPage int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
