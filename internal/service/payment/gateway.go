package payment

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"shopease/internal/config"
	"shopease/internal/model"
	"shopease/pkg/snowflake"
)

// Gateway statuses
const (
	GatewaySuccess = "success"
	GatewayFailed  = "failed"
)

// GatewayResponse is stored on the payment and returned to the caller as is
type GatewayResponse struct {
	Status        string           `json:"status"`
	TransactionID string           `json:"transaction_id"`
	Message       string           `json:"message"`
	GatewayFee    *decimal.Decimal `json:"gateway_fee,omitempty"`
	ErrorCode     string           `json:"error_code,omitempty"`
}

// Succeeded reports whether the gateway accepted the charge
func (r *GatewayResponse) Succeeded() bool {
	return r.Status == GatewaySuccess
}

// Gateway authorizes charges and refunds
type Gateway interface {
	// Charge returns an error only when ctx ends before the gateway answers
	Charge(ctx context.Context, method string, amount decimal.Decimal) (*GatewayResponse, error)
}

// Simulator stands in for a payment processor
type Simulator struct {
	successRate float64
	feeRate     decimal.Decimal
	latency     time.Duration
	ids         *snowflake.Generator

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulator creates a gateway simulator; a nil source seeds from the clock
func NewSimulator(cfg config.PaymentConfig, ids *snowflake.Generator, src rand.Source) *Simulator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Simulator{
		successRate: cfg.GatewaySuccessRate,
		feeRate:     decimal.NewFromFloat(cfg.FeeRate),
		latency:     cfg.GatewayLatency,
		ids:         ids,
		rnd:         rand.New(src),
	}
}

func (s *Simulator) Charge(ctx context.Context, method string, amount decimal.Decimal) (*GatewayResponse, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	roll := s.rnd.Float64()
	s.mu.Unlock()

	return respond(roll < s.successRate, s.ids.NextString("TXN_"), amount, s.feeRate), nil
}

// FixedGateway always gives the same verdict without delay
type FixedGateway struct {
	Succeed bool
	FeeRate decimal.Decimal
	ids     *snowflake.Generator
}

// NewFixedGateway creates a gateway that always succeeds or always fails
func NewFixedGateway(succeed bool, ids *snowflake.Generator) *FixedGateway {
	return &FixedGateway{Succeed: succeed, FeeRate: decimal.NewFromFloat(0.02), ids: ids}
}

func (g *FixedGateway) Charge(ctx context.Context, method string, amount decimal.Decimal) (*GatewayResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return respond(g.Succeed, g.ids.NextString("TXN_"), amount, g.FeeRate), nil
}

func respond(ok bool, transactionID string, amount, feeRate decimal.Decimal) *GatewayResponse {
	if !ok {
		return &GatewayResponse{
			Status:        GatewayFailed,
			TransactionID: transactionID,
			Message:       "Payment failed due to insufficient funds",
			ErrorCode:     "INSUFFICIENT_FUNDS",
		}
	}
	fee := model.Money(amount.Mul(feeRate))
	return &GatewayResponse{
		Status:        GatewaySuccess,
		TransactionID: transactionID,
		Message:       "Payment processed successfully",
		GatewayFee:    &fee,
	}
}
