package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shopease/internal/model"
	"shopease/pkg/utils"
)

const OrderPeer = "order"

// Orders reads and moves orders on the order service
type Orders struct {
	p *peer
}

func NewOrders(baseURL string, timeout time.Duration, opts Options) *Orders {
	return &Orders{p: newPeer(OrderPeer, baseURL, timeout, opts)}
}

type statusRequest struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status,omitempty"`
}

// UpdateStatus calls PUT /orders/{id}/status
func (o *Orders) UpdateStatus(ctx context.Context, msg model.OrderStatusMessage) error {
	err := o.p.call(ctx, http.MethodPut, fmt.Sprintf("/orders/%d/status", msg.OrderID),
		statusRequest{Status: msg.Status, PaymentStatus: msg.PaymentStatus}, nil)
	if IsNotFound(err) {
		return utils.ErrOrderNotFound
	}
	return err
}
