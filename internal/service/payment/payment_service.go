package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shopease/internal/model"
	"shopease/internal/monitor"
	"shopease/internal/repository"
	"shopease/internal/sidechannel"
	"shopease/pkg/log"
	"shopease/pkg/utils"
)

// CardDetails card data; only the last four digits are kept
type CardDetails struct {
	Number string `json:"number" binding:"omitempty,min=4,max=19"`
	Brand  string `json:"brand" binding:"max=20"`
}

// ProcessPaymentRequest process payment request
type ProcessPaymentRequest struct {
	OrderID       uint64          `json:"order_id" binding:"required"`
	UserID        uint64          `json:"user_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required,gt=0"`
	PaymentMethod string          `json:"payment_method" binding:"required,oneof=card upi netbanking wallet"`
	Currency      string          `json:"currency" binding:"omitempty,len=3"`
	CardDetails   *CardDetails    `json:"card_details"`
}

// PaymentResult the stored payment with what happened around it
type PaymentResult struct {
	*model.Payment
	GatewayResponse *GatewayResponse      `json:"gateway_response"`
	SideEffects     []sidechannel.Outcome `json:"side_effects"`
}

// RefundResult refund result
type RefundResult struct {
	Message        string                `json:"message"`
	Payment        *model.Payment        `json:"payment"`
	RefundResponse *GatewayResponse      `json:"refund_response"`
	SideEffects    []sidechannel.Outcome `json:"side_effects"`
}

// Stats payment stats with the completed share in percent
type Stats struct {
	repository.PaymentStats
	SuccessRate float64 `json:"success_rate"`
}

// RefundDeclinedError carries the gateway's refusal
type RefundDeclinedError struct {
	Details *GatewayResponse
}

func (e *RefundDeclinedError) Error() string {
	return fmt.Sprintf("refund declined: %s", e.Details.Message)
}

// PaymentService payment workflow interface
type PaymentService interface {
	ProcessPayment(ctx context.Context, req *ProcessPaymentRequest) (*PaymentResult, error)
	RefundPayment(ctx context.Context, paymentID string) (*RefundResult, error)

	GetPayment(ctx context.Context, paymentID string) (*model.Payment, error)
	ListOrderPayments(ctx context.Context, orderID uint64) ([]*model.Payment, error)
	ListUserPayments(ctx context.Context, userID uint64) ([]*model.Payment, error)
	ListPayments(ctx context.Context, status string, page, perPage int) ([]*model.Payment, int64, error)
	Stats(ctx context.Context) (*Stats, error)
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	gateway     Gateway
	sideEffects *sidechannel.Runner
	metrics     *monitor.Metrics
	currency    string
}

// NewPaymentService creates a payment service
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	gateway Gateway,
	sideEffects *sidechannel.Runner,
	metrics *monitor.Metrics,
	currency string,
) PaymentService {
	if currency == "" {
		currency = "INR"
	}
	return &paymentService{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		sideEffects: sideEffects,
		metrics:     metrics,
		currency:    currency,
	}
}

// NewPaymentID returns "PAY_" followed by 12 upper-case hex digits
func NewPaymentID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY_" + strings.ToUpper(hex[:12])
}

func isValidMethod(method string) bool {
	switch method {
	case model.PaymentMethodCard, model.PaymentMethodUPI, model.PaymentMethodNetBanking, model.PaymentMethodWallet:
		return true
	}
	return false
}

// ProcessPayment charges the order once; later attempts after a completed one are rejected
func (s *paymentService) ProcessPayment(ctx context.Context, req *ProcessPaymentRequest) (*PaymentResult, error) {
	if req.OrderID == 0 || req.UserID == 0 {
		return nil, utils.Validationf("order_id and user_id are required")
	}
	if !req.Amount.IsPositive() {
		return nil, utils.Validationf("amount must be greater than 0")
	}
	if !isValidMethod(req.PaymentMethod) {
		return nil, utils.Validationf("payment_method must be one of: card, upi, netbanking, wallet")
	}

	// 1. First completed payment wins
	completed, err := s.paymentRepo.HasCompleted(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if completed {
		return nil, utils.ErrPaymentExists
	}

	// 2. Record the attempt
	currency := s.currency
	if req.Currency != "" {
		currency = strings.ToUpper(req.Currency)
	}
	payment := &model.Payment{
		PaymentID:     NewPaymentID(),
		OrderID:       req.OrderID,
		UserID:        req.UserID,
		Amount:        model.Money(req.Amount),
		Currency:      currency,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: model.PaymentStatusProcessing,
	}
	if req.PaymentMethod == model.PaymentMethodCard && req.CardDetails != nil {
		payment.CardLastFour = utils.LastFour(req.CardDetails.Number)
		payment.CardBrand = req.CardDetails.Brand
		if payment.CardBrand == "" {
			payment.CardBrand = "Unknown"
		}
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	// 3. Ask the gateway
	start := time.Now()
	resp, err := s.gateway.Charge(ctx, payment.PaymentMethod, payment.Amount)
	s.metrics.RecordGatewayDuration("charge", time.Since(start))
	if err != nil {
		payment.PaymentStatus = model.PaymentStatusFailed
		payment.FailureReason = "gateway did not answer: " + err.Error()
		if uerr := s.paymentRepo.Update(context.WithoutCancel(ctx), payment); uerr != nil {
			log.WithFields(map[string]interface{}{
				"payment_id": payment.PaymentID,
				"error":      uerr.Error(),
			}).Error("Failed to record abandoned payment")
		}
		s.metrics.RecordPayment(payment.PaymentMethod, payment.PaymentStatus)
		return nil, utils.Upstream(err, "payment gateway unavailable")
	}

	// 4. Record the verdict
	payment.GatewayResponse = encodeGatewayResponse(payment.PaymentID, resp)
	txn := resp.TransactionID
	payment.TransactionID = &txn
	orderStatus := model.OrderStatusConfirmed
	orderPayment := model.OrderPaymentCompleted
	if resp.Succeeded() {
		payment.PaymentStatus = model.PaymentStatusCompleted
	} else {
		payment.PaymentStatus = model.PaymentStatusFailed
		payment.FailureReason = resp.Message
		orderStatus = model.OrderStatusPending
		orderPayment = model.OrderPaymentFailed
	}
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}
	s.metrics.RecordPayment(payment.PaymentMethod, payment.PaymentStatus)

	log.WithFields(map[string]interface{}{
		"payment_id":     payment.PaymentID,
		"order_id":       payment.OrderID,
		"amount":         payment.Amount.StringFixed(2),
		"payment_status": payment.PaymentStatus,
		"transaction_id": txn,
	}).Info("Payment processed")

	// 5. Tell the order and the customer; neither can undo the payment
	outcomes := []sidechannel.Outcome{
		s.sideEffects.Run(ctx, sidechannel.TaskOrderStatus, model.OrderStatusMessage{
			OrderID:       payment.OrderID,
			Status:        orderStatus,
			PaymentStatus: orderPayment,
		}),
		s.sideEffects.Run(ctx, sidechannel.TaskNotification, paymentNotice(payment)),
	}

	return &PaymentResult{
		Payment:         payment,
		GatewayResponse: resp,
		SideEffects:     outcomes,
	}, nil
}

func paymentNotice(p *model.Payment) model.NotificationMessage {
	orderID := p.OrderID
	msg := model.NotificationMessage{
		UserID:        p.UserID,
		Type:          model.NotificationEmail,
		Category:      model.CategoryPaymentConfirmation,
		Title:         fmt.Sprintf("Payment Confirmation - Order #%d", p.OrderID),
		Message:       fmt.Sprintf("Payment of ₹%s for Order #%d has been %s", p.Amount.StringFixed(2), p.OrderID, p.PaymentStatus),
		OrderID:       &orderID,
		PaymentID:     p.PaymentID,
		Amount:        p.Amount,
		PaymentStatus: p.PaymentStatus,
		PaymentMethod: p.PaymentMethod,
		TransactionID: "N/A",
	}
	if p.TransactionID != nil {
		msg.TransactionID = *p.TransactionID
	}
	return msg
}

// RefundPayment refunds a completed payment and cancels its order
func (s *paymentService) RefundPayment(ctx context.Context, paymentID string) (*RefundResult, error) {
	payment, err := s.paymentRepo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.IsCompleted() {
		return nil, utils.ErrPaymentNotCompleted
	}

	start := time.Now()
	resp, err := s.gateway.Charge(ctx, "refund", payment.Amount)
	s.metrics.RecordGatewayDuration("refund", time.Since(start))
	if err != nil {
		return nil, utils.Upstream(err, "payment gateway unavailable")
	}
	if !resp.Succeeded() {
		log.WithFields(map[string]interface{}{
			"payment_id": payment.PaymentID,
			"error_code": resp.ErrorCode,
		}).Warn("Refund declined by gateway")
		return nil, utils.WrapError(&RefundDeclinedError{Details: resp}, utils.KindInternal, "Refund processing failed")
	}

	ok, err := s.paymentRepo.MarkRefunded(ctx, payment.PaymentID, encodeGatewayResponse(payment.PaymentID, resp))
	if err != nil {
		return nil, err
	}
	if !ok {
		// refunded concurrently
		return nil, utils.ErrPaymentNotCompleted
	}
	if payment, err = s.paymentRepo.GetByPaymentID(ctx, paymentID); err != nil {
		return nil, err
	}
	s.metrics.RecordPayment(payment.PaymentMethod, payment.PaymentStatus)

	log.WithFields(map[string]interface{}{
		"payment_id": payment.PaymentID,
		"order_id":   payment.OrderID,
		"amount":     payment.Amount.StringFixed(2),
	}).Info("Payment refunded")

	outcomes := []sidechannel.Outcome{
		s.sideEffects.Run(ctx, sidechannel.TaskOrderStatus, model.OrderStatusMessage{
			OrderID:       payment.OrderID,
			Status:        model.OrderStatusCancelled,
			PaymentStatus: model.OrderPaymentRefunded,
		}),
		s.sideEffects.Run(ctx, sidechannel.TaskNotification, paymentNotice(payment)),
	}

	return &RefundResult{
		Message:        "Refund processed successfully",
		Payment:        payment,
		RefundResponse: resp,
		SideEffects:    outcomes,
	}, nil
}

// RefundDetails returns the gateway answer behind a declined refund
func RefundDetails(err error) (*GatewayResponse, bool) {
	var declined *RefundDeclinedError
	if errors.As(err, &declined) {
		return declined.Details, true
	}
	return nil, false
}

func (s *paymentService) GetPayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	return s.paymentRepo.GetByPaymentID(ctx, paymentID)
}

func (s *paymentService) ListOrderPayments(ctx context.Context, orderID uint64) ([]*model.Payment, error) {
	return s.paymentRepo.ListByOrder(ctx, orderID)
}

func (s *paymentService) ListUserPayments(ctx context.Context, userID uint64) ([]*model.Payment, error) {
	return s.paymentRepo.ListByUser(ctx, userID)
}

func (s *paymentService) ListPayments(ctx context.Context, status string, page, perPage int) ([]*model.Payment, int64, error) {
	if status != "" && !model.IsValidPaymentStatus(status) {
		return nil, 0, utils.ErrInvalidStatus
	}
	return s.paymentRepo.List(ctx, repository.PaymentFilter{Status: status}, page, perPage)
}

func (s *paymentService) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.paymentRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	result := &Stats{PaymentStats: *stats}
	if stats.Total > 0 {
		rate := decimal.NewFromInt(stats.Completed * 100).Div(decimal.NewFromInt(stats.Total)).Round(2)
		result.SuccessRate = rate.InexactFloat64()
	}
	return result, nil
}

// encodeGatewayResponse renders resp for storage; an unencodable response is logged and stored empty
func encodeGatewayResponse(paymentID string, resp *GatewayResponse) string {
	raw, err := json.Marshal(resp)
	if err != nil {
		log.WithError(err).WithField("payment_id", paymentID).Error("Failed to encode gateway response")
		return ""
	}
	return string(raw)
}
