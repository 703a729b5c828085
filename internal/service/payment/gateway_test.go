package payment

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopease/internal/config"
	"shopease/pkg/snowflake"
)

func newIDs(t *testing.T) *snowflake.Generator {
	t.Helper()
	ids, err := snowflake.NewGenerator(1)
	require.NoError(t, err)
	return ids
}

func TestSimulator_Verdicts(t *testing.T) {
	ids := newIDs(t)
	amount := decimal.RequireFromString("200")

	always := NewSimulator(config.PaymentConfig{GatewaySuccessRate: 1, FeeRate: 0.02}, ids, rand.NewSource(1))
	resp, err := always.Charge(context.Background(), "card", amount)
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.True(t, strings.HasPrefix(resp.TransactionID, "TXN_"))
	require.NotNil(t, resp.GatewayFee)
	assert.Equal(t, "4.00", resp.GatewayFee.StringFixed(2))
	assert.Empty(t, resp.ErrorCode)

	never := NewSimulator(config.PaymentConfig{GatewaySuccessRate: 0}, ids, rand.NewSource(1))
	resp, err = never.Charge(context.Background(), "card", amount)
	require.NoError(t, err)
	assert.False(t, resp.Succeeded())
	assert.Equal(t, "INSUFFICIENT_FUNDS", resp.ErrorCode)
	assert.Equal(t, "Payment failed due to insufficient funds", resp.Message)
	assert.Nil(t, resp.GatewayFee)
	assert.NotEmpty(t, resp.TransactionID)
}

func TestSimulator_SuccessRate(t *testing.T) {
	sim := NewSimulator(config.PaymentConfig{GatewaySuccessRate: 0.9}, newIDs(t), rand.NewSource(42))

	ok := 0
	for i := 0; i < 2000; i++ {
		resp, err := sim.Charge(context.Background(), "upi", decimal.NewFromInt(1))
		require.NoError(t, err)
		if resp.Succeeded() {
			ok++
		}
	}
	assert.InDelta(t, 0.9, float64(ok)/2000, 0.03)
}

func TestSimulator_UniqueTransactionIDs(t *testing.T) {
	sim := NewSimulator(config.PaymentConfig{GatewaySuccessRate: 1}, newIDs(t), nil)
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		resp, err := sim.Charge(context.Background(), "card", decimal.NewFromInt(1))
		require.NoError(t, err)
		assert.False(t, seen[resp.TransactionID])
		seen[resp.TransactionID] = true
	}
}

func TestSimulator_LatencyHonoursContext(t *testing.T) {
	sim := NewSimulator(config.PaymentConfig{GatewaySuccessRate: 1, GatewayLatency: time.Minute}, newIDs(t), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := sim.Charge(ctx, "card", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFixedGateway(t *testing.T) {
	ids := newIDs(t)

	resp, err := NewFixedGateway(true, ids).Charge(context.Background(), "card", decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.Equal(t, "1.00", resp.GatewayFee.StringFixed(2))

	resp, err = NewFixedGateway(false, ids).Charge(context.Background(), "card", decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.False(t, resp.Succeeded())
}
