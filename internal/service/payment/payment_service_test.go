package payment

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopease/internal/config"
	"shopease/internal/database/dbtest"
	"shopease/internal/model"
	"shopease/internal/repository"
	"shopease/internal/sidechannel"
	"shopease/pkg/utils"
)

// recorder stands in for the order and notification services
type recorder struct {
	mu            sync.Mutex
	statuses      []model.OrderStatusMessage
	notifications []model.NotificationMessage
	orderErr      error
}

func (r *recorder) runner() *sidechannel.Runner {
	runner := sidechannel.NewRunner(config.SideEffectConfig{Mode: config.SideEffectSync}, nil, nil)
	runner.Register(sidechannel.TaskOrderStatus, func(ctx context.Context, payload json.RawMessage) error {
		var msg model.OrderStatusMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		r.statuses = append(r.statuses, msg)
		return r.orderErr
	})
	runner.Register(sidechannel.TaskNotification, func(ctx context.Context, payload json.RawMessage) error {
		var msg model.NotificationMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		r.notifications = append(r.notifications, msg)
		return nil
	})
	return runner
}

// switchGateway lets a test flip the verdict between calls
type switchGateway struct {
	fixed *FixedGateway
}

func (g *switchGateway) Charge(ctx context.Context, method string, amount decimal.Decimal) (*GatewayResponse, error) {
	return g.fixed.Charge(ctx, method, amount)
}

func newService(t *testing.T, succeed bool) (PaymentService, *recorder, *switchGateway) {
	t.Helper()
	repo := repository.NewPaymentRepository(dbtest.Open(t, config.ServicePayment))
	rec := &recorder{}
	gw := &switchGateway{fixed: NewFixedGateway(succeed, newIDs(t))}
	return NewPaymentService(repo, gw, rec.runner(), nil, "INR"), rec, gw
}

func request(orderID uint64) *ProcessPaymentRequest {
	return &ProcessPaymentRequest{
		OrderID:       orderID,
		UserID:        7,
		Amount:        decimal.NewFromInt(200),
		PaymentMethod: model.PaymentMethodCard,
		CardDetails:   &CardDetails{Number: "4111 1111 1111 1234", Brand: "visa"},
	}
}

func TestNewPaymentID(t *testing.T) {
	id := NewPaymentID()
	assert.Regexp(t, regexp.MustCompile(`^PAY_[0-9A-F]{12}$`), id)
	assert.NotEqual(t, id, NewPaymentID())
}

func TestEncodeGatewayResponse(t *testing.T) {
	fee := decimal.RequireFromString("0.30")
	raw := encodeGatewayResponse("PAY_1", &GatewayResponse{
		Status:        GatewaySuccess,
		TransactionID: "TXN_1",
		Message:       "ok",
		GatewayFee:    &fee,
	})

	var decoded GatewayResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "TXN_1", decoded.TransactionID)
	assert.True(t, fee.Equal(*decoded.GatewayFee))
	assert.NotContains(t, raw, "error_code")
}

func TestProcessPayment_Success(t *testing.T) {
	svc, rec, _ := newService(t, true)

	result, err := svc.ProcessPayment(context.Background(), request(3))
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusCompleted, result.PaymentStatus)
	assert.Equal(t, "200.00", result.Amount.StringFixed(2))
	assert.Equal(t, "INR", result.Currency)
	assert.Equal(t, "1234", result.CardLastFour)
	assert.Equal(t, "visa", result.CardBrand)
	require.NotNil(t, result.TransactionID)
	assert.Equal(t, result.GatewayResponse.TransactionID, *result.TransactionID)
	assert.True(t, result.GatewayResponse.Succeeded())

	require.Len(t, result.SideEffects, 2)
	for _, o := range result.SideEffects {
		assert.Equal(t, sidechannel.StatusSucceeded, o.Status)
	}

	require.Len(t, rec.statuses, 1)
	assert.Equal(t, model.OrderStatusMessage{OrderID: 3, Status: model.OrderStatusConfirmed, PaymentStatus: model.OrderPaymentCompleted}, rec.statuses[0])

	require.Len(t, rec.notifications, 1)
	notice := rec.notifications[0]
	assert.Equal(t, model.CategoryPaymentConfirmation, notice.Category)
	assert.Equal(t, result.PaymentID, notice.PaymentID)
	assert.Equal(t, "Payment Confirmation - Order #3", notice.Title)
	assert.Equal(t, "Payment of ₹200.00 for Order #3 has been completed", notice.Message)
	require.NotNil(t, notice.OrderID)
	assert.Equal(t, uint64(3), *notice.OrderID)

	stored, err := svc.GetPayment(context.Background(), result.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, stored.PaymentStatus)
	assert.Equal(t, GatewaySuccess, stored.GatewayDetails()["status"])
}

func TestProcessPayment_GatewayFailure(t *testing.T) {
	svc, rec, _ := newService(t, false)

	result, err := svc.ProcessPayment(context.Background(), request(3))
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusFailed, result.PaymentStatus)
	assert.Equal(t, "Payment failed due to insufficient funds", result.FailureReason)
	assert.Equal(t, "INSUFFICIENT_FUNDS", result.GatewayResponse.ErrorCode)

	require.Len(t, rec.statuses, 1)
	assert.Equal(t, model.OrderStatusPending, rec.statuses[0].Status)
	assert.Equal(t, model.OrderPaymentFailed, rec.statuses[0].PaymentStatus)
	require.Len(t, rec.notifications, 1)
	assert.Equal(t, model.PaymentStatusFailed, rec.notifications[0].PaymentStatus)
}

func TestProcessPayment_SideEffectFailureDoesNotFailPayment(t *testing.T) {
	svc, rec, _ := newService(t, true)
	rec.orderErr = errors.New("order service unavailable")

	result, err := svc.ProcessPayment(context.Background(), request(3))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, result.PaymentStatus)

	require.Len(t, result.SideEffects, 2)
	assert.Equal(t, sidechannel.TaskOrderStatus, result.SideEffects[0].Name)
	assert.Equal(t, sidechannel.StatusFailed, result.SideEffects[0].Status)
	assert.Contains(t, result.SideEffects[0].Error, "order service unavailable")
	assert.Equal(t, sidechannel.StatusSucceeded, result.SideEffects[1].Status)
}

func TestProcessPayment_FirstCompletedWins(t *testing.T) {
	svc, _, gw := newService(t, false)
	ctx := context.Background()

	// failed attempts do not block retries
	_, err := svc.ProcessPayment(ctx, request(3))
	require.NoError(t, err)

	gw.fixed.Succeed = true
	first, err := svc.ProcessPayment(ctx, request(3))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, first.PaymentStatus)

	_, err = svc.ProcessPayment(ctx, request(3))
	assert.ErrorIs(t, err, utils.ErrPaymentExists)
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))

	attempts, err := svc.ListOrderPayments(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)

	// another order is unaffected
	_, err = svc.ProcessPayment(ctx, request(4))
	assert.NoError(t, err)
}

func TestProcessPayment_Validation(t *testing.T) {
	svc, rec, _ := newService(t, true)
	ctx := context.Background()

	req := request(3)
	req.PaymentMethod = "cod"
	_, err := svc.ProcessPayment(ctx, req)
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))

	req = request(3)
	req.Amount = decimal.Zero
	_, err = svc.ProcessPayment(ctx, req)
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))

	assert.Empty(t, rec.statuses)
}

type stalledGateway struct{}

func (stalledGateway) Charge(ctx context.Context, method string, amount decimal.Decimal) (*GatewayResponse, error) {
	return nil, context.DeadlineExceeded
}

func TestProcessPayment_GatewayTimeout(t *testing.T) {
	repo := repository.NewPaymentRepository(dbtest.Open(t, config.ServicePayment))
	rec := &recorder{}
	svc := NewPaymentService(repo, stalledGateway{}, rec.runner(), nil, "")

	_, err := svc.ProcessPayment(context.Background(), request(3))
	assert.Equal(t, utils.KindUpstream, utils.KindOf(err))
	assert.Empty(t, rec.statuses)

	payments, total, err := svc.ListPayments(context.Background(), model.PaymentStatusFailed, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Contains(t, payments[0].FailureReason, "gateway did not answer")
	assert.Equal(t, "INR", payments[0].Currency)
}

func TestRefundPayment(t *testing.T) {
	svc, rec, _ := newService(t, true)
	ctx := context.Background()

	paid, err := svc.ProcessPayment(ctx, request(3))
	require.NoError(t, err)

	result, err := svc.RefundPayment(ctx, paid.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, "Refund processed successfully", result.Message)
	assert.Equal(t, model.PaymentStatusRefunded, result.Payment.PaymentStatus)
	assert.NotNil(t, result.Payment.RefundedAt)
	assert.True(t, result.RefundResponse.Succeeded())

	require.Len(t, rec.statuses, 2)
	assert.Equal(t, model.OrderStatusMessage{OrderID: 3, Status: model.OrderStatusCancelled, PaymentStatus: model.OrderPaymentRefunded}, rec.statuses[1])
	require.Len(t, rec.notifications, 2)
	assert.Equal(t, model.PaymentStatusRefunded, rec.notifications[1].PaymentStatus)

	_, err = svc.RefundPayment(ctx, paid.PaymentID)
	assert.ErrorIs(t, err, utils.ErrPaymentNotCompleted)
	assert.Equal(t, utils.KindState, utils.KindOf(err))
}

func TestRefundPayment_OnlyCompleted(t *testing.T) {
	svc, _, _ := newService(t, false)
	ctx := context.Background()

	failed, err := svc.ProcessPayment(ctx, request(3))
	require.NoError(t, err)

	_, err = svc.RefundPayment(ctx, failed.PaymentID)
	assert.ErrorIs(t, err, utils.ErrPaymentNotCompleted)

	_, err = svc.RefundPayment(ctx, "PAY_000000000000")
	assert.ErrorIs(t, err, utils.ErrPaymentNotFound)
}

func TestRefundPayment_GatewayDeclines(t *testing.T) {
	svc, rec, gw := newService(t, true)
	ctx := context.Background()

	paid, err := svc.ProcessPayment(ctx, request(3))
	require.NoError(t, err)

	gw.fixed.Succeed = false
	_, err = svc.RefundPayment(ctx, paid.PaymentID)
	require.Error(t, err)
	assert.Equal(t, utils.KindInternal, utils.KindOf(err))
	assert.Equal(t, "Refund processing failed", utils.MessageOf(err))

	details, ok := RefundDetails(err)
	require.True(t, ok)
	assert.Equal(t, "INSUFFICIENT_FUNDS", details.ErrorCode)

	stored, err := svc.GetPayment(ctx, paid.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, stored.PaymentStatus)
	assert.Len(t, rec.statuses, 1)
}

func TestStats(t *testing.T) {
	svc, _, gw := newService(t, true)
	ctx := context.Background()

	_, err := svc.ProcessPayment(ctx, request(1))
	require.NoError(t, err)
	refunded, err := svc.ProcessPayment(ctx, request(2))
	require.NoError(t, err)
	_, err = svc.RefundPayment(ctx, refunded.PaymentID)
	require.NoError(t, err)
	gw.fixed.Succeed = false
	_, err = svc.ProcessPayment(ctx, request(3))
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Refunded)
	assert.Equal(t, 33.33, stats.SuccessRate)
	assert.Equal(t, "200.00", stats.TotalRevenue.StringFixed(2))

	mine, err := svc.ListUserPayments(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}
