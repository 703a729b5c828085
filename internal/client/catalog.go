package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shopease/internal/model"
	"shopease/pkg/utils"
)

const CatalogPeer = "catalog"

// Catalog reads products and moves stock on the product service
type Catalog struct {
	p *peer
}

func NewCatalog(baseURL string, timeout time.Duration, opts Options) *Catalog {
	return &Catalog{p: newPeer(CatalogPeer, baseURL, timeout, opts)}
}

// GetProduct returns utils.ErrProductNotFound for unknown ids
func (c *Catalog) GetProduct(ctx context.Context, id uint64) (*model.Product, error) {
	var product model.Product
	if err := c.p.call(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, &product); err != nil {
		if IsNotFound(err) {
			return nil, utils.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

type stockRequest struct {
	Quantity int `json:"quantity"`
}

// Reserve decrements stock by quantity or fails with utils.ErrInsufficientStock
func (c *Catalog) Reserve(ctx context.Context, id uint64, quantity int) error {
	err := c.p.call(ctx, http.MethodPost, fmt.Sprintf("/products/%d/reserve", id), stockRequest{Quantity: quantity}, nil)
	if IsNotFound(err) {
		return utils.ErrProductNotFound
	}
	return err
}

// Release returns quantity to stock
func (c *Catalog) Release(ctx context.Context, id uint64, quantity int) error {
	err := c.p.call(ctx, http.MethodPost, fmt.Sprintf("/products/%d/release", id), stockRequest{Quantity: quantity}, nil)
	if IsNotFound(err) {
		return utils.ErrProductNotFound
	}
	return err
}
