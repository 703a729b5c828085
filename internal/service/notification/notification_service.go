package notification

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shopease/internal/client"
	"shopease/internal/model"
	"shopease/internal/monitor"
	"shopease/internal/repository"
	"shopease/pkg/log"
	"shopease/pkg/utils"
)

// Accounts looks up contact details on the user service
type Accounts interface {
	GetUser(ctx context.Context, id uint64) (*client.UserInfo, error)
}

// SendRequest create notification request; the extra fields feed the templates
type SendRequest struct {
	UserID         uint64 `json:"user_id" binding:"required"`
	Type           string `json:"type" binding:"required,oneof=email sms push in_app"`
	Message        string `json:"message" binding:"required"`
	Category       string `json:"category" binding:"max=50"`
	Title          string `json:"title" binding:"max=200"`
	DeliveryMethod string `json:"delivery_method" binding:"omitempty,oneof=email sms push in_app"`

	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	OrderID           *uint64         `json:"order_id"`
	PaymentID         string          `json:"payment_id" binding:"max=50"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
	PaymentStatus     string          `json:"payment_status"`
	PaymentMethod     string          `json:"payment_method"`
	TransactionID     string          `json:"transaction_id"`
	TrackingNumber    string          `json:"tracking_number"`
	EstimatedDelivery string          `json:"estimated_delivery"`
}

// TestEmailRequest sends a rendered template straight to an address
type TestEmailRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Subject  string `json:"subject" binding:"required"`
	Category string `json:"category" binding:"required"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

// DispatchResult the stored notification with how delivery went
type DispatchResult struct {
	*model.Notification
	DeliveryStatus  string `json:"delivery_status"`
	DeliveryMessage string `json:"delivery_message"`
}

// RetryResult retry result
type RetryResult struct {
	Message      string              `json:"message"`
	Notification *model.Notification `json:"notification"`
	Success      bool                `json:"success"`
}

// TestEmailResult test email result
type TestEmailResult struct {
	Message   string `json:"message"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Category  string `json:"category"`
	Success   bool   `json:"success"`
	Details   string `json:"details,omitempty"`
}

// Stats notification stats with the sent share in percent
type Stats struct {
	repository.NotificationStats
	Sent        int64   `json:"sent_notifications"`
	Failed      int64   `json:"failed_notifications"`
	Pending     int64   `json:"pending_notifications"`
	SuccessRate float64 `json:"success_rate"`
}

// NotificationService notification dispatcher interface
type NotificationService interface {
	// Dispatch resolves the recipient, renders, delivers and stores the outcome.
	// A failed delivery is still a stored notification, not an error.
	Dispatch(ctx context.Context, req *SendRequest) (*DispatchResult, error)
	Retry(ctx context.Context, id uint64) (*RetryResult, error)

	GetNotification(ctx context.Context, id uint64) (*model.Notification, error)
	ListUserNotifications(ctx context.Context, userID uint64) ([]*model.Notification, error)
	ListNotifications(ctx context.Context, status, category string, page, perPage int) ([]*model.Notification, int64, error)
	MarkRead(ctx context.Context, id uint64) (*model.Notification, error)
	Stats(ctx context.Context) (*Stats, error)

	TestEmail(ctx context.Context, req *TestEmailRequest) (*TestEmailResult, error)
}

type notificationService struct {
	repo       repository.NotificationRepository
	accounts   Accounts
	senders    map[string]Sender
	metrics    *monitor.Metrics
	maxRetries int
}

// NewNotificationService creates a notification service; senders are keyed by delivery method
func NewNotificationService(
	repo repository.NotificationRepository,
	accounts Accounts,
	senders map[string]Sender,
	metrics *monitor.Metrics,
	maxRetries int,
) NotificationService {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &notificationService{
		repo:       repo,
		accounts:   accounts,
		senders:    senders,
		metrics:    metrics,
		maxRetries: maxRetries,
	}
}

// recipient is who a notification goes to
type recipient struct {
	email     string
	phone     string
	username  string
	firstName string
}

func (r recipient) address(method string) string {
	if method == model.NotificationSMS && r.phone != "" {
		return r.phone
	}
	return r.email
}

// resolve prefers an explicit email and otherwise asks the account store
func (s *notificationService) resolve(ctx context.Context, userID uint64, req *SendRequest) (recipient, error) {
	if req.Email != "" {
		return recipient{
			email:     req.Email,
			phone:     req.Phone,
			username:  req.Username,
			firstName: req.FirstName,
		}, nil
	}

	user, err := s.lookup(ctx, userID)
	if err != nil {
		return recipient{}, err
	}
	r := recipient{
		email:     user.Email,
		phone:     user.Phone,
		username:  user.Username,
		firstName: user.FirstName,
	}
	if req.Phone != "" {
		r.phone = req.Phone
	}
	return r, nil
}

func (s *notificationService) lookup(ctx context.Context, userID uint64) (*client.UserInfo, error) {
	user, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Failed to look up notification recipient")
		return nil, utils.ErrRecipientUnresolved
	}
	return user, nil
}

func templateData(req *SendRequest, r recipient) TemplateData {
	data := TemplateData{
		"title":              req.Title,
		"message":            req.Message,
		"username":           firstNonEmpty(req.Username, r.username),
		"name":               firstNonEmpty(r.firstName, req.FirstName, r.username, req.Username),
		"email":              r.email,
		"payment_id":         req.PaymentID,
		"status":             req.Status,
		"payment_status":     req.PaymentStatus,
		"payment_method":     req.PaymentMethod,
		"transaction_id":     req.TransactionID,
		"tracking_number":    req.TrackingNumber,
		"estimated_delivery": req.EstimatedDelivery,
	}
	if req.OrderID != nil {
		data["order_id"] = strconv.FormatUint(*req.OrderID, 10)
	}
	if !req.Amount.IsZero() {
		data["amount"] = req.Amount.StringFixed(2)
	}
	return data
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// deliver renders and hands the message to the sender of method
func (s *notificationService) deliver(ctx context.Context, method, category, address, text string, data TemplateData) (string, error) {
	sender, ok := s.senders[method]
	if !ok {
		return "", errors.New("no sender for delivery method " + method)
	}
	rendered := Render(category, data)
	return sender.Send(ctx, Delivery{
		Recipient: address,
		Subject:   rendered.Subject,
		Body:      rendered.Body,
		Text:      text,
	})
}

// Dispatch sends a notification
func (s *notificationService) Dispatch(ctx context.Context, req *SendRequest) (*DispatchResult, error) {
	if !model.IsValidDeliveryMethod(req.Type) {
		return nil, utils.Validationf("type must be one of: email, sms, push, in_app")
	}
	method := req.DeliveryMethod
	if method == "" {
		method = req.Type
	}
	if !model.IsValidDeliveryMethod(method) {
		return nil, utils.Validationf("delivery_method must be one of: email, sms, push, in_app")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, utils.Validationf("message is required")
	}
	category := req.Category
	if category == "" {
		category = model.CategoryGeneral
	}

	// 1. Resolve recipient
	r, err := s.resolve(ctx, req.UserID, req)
	if err != nil {
		return nil, err
	}

	// 2. Store as pending
	n := &model.Notification{
		UserID:         req.UserID,
		Type:           req.Type,
		Category:       category,
		Title:          req.Title,
		Message:        req.Message,
		Status:         model.NotificationStatusPending,
		DeliveryMethod: method,
		Recipient:      r.address(method),
		OrderID:        req.OrderID,
	}
	if req.PaymentID != "" {
		pid := req.PaymentID
		n.PaymentID = &pid
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	// 3. Deliver and record the outcome
	detail, sendErr := s.deliver(ctx, method, category, n.Recipient, n.Message, templateData(req, r))
	s.applyOutcome(n, detail, sendErr)
	if err := s.repo.Update(context.WithoutCancel(ctx), n); err != nil {
		return nil, err
	}
	s.metrics.RecordNotification(method, n.Status)

	log.WithFields(map[string]interface{}{
		"notification_id": n.ID,
		"user_id":         n.UserID,
		"category":        n.Category,
		"delivery_method": method,
		"status":          n.Status,
	}).Info("Notification dispatched")

	result := &DispatchResult{Notification: n, DeliveryStatus: n.Status, DeliveryMessage: detail}
	if sendErr != nil {
		result.DeliveryMessage = sendErr.Error()
	}
	return result, nil
}

func (s *notificationService) applyOutcome(n *model.Notification, detail string, err error) {
	if err != nil {
		n.Status = model.NotificationStatusFailed
		n.ErrorMessage = err.Error()
		return
	}
	now := time.Now().UTC()
	n.Status = model.NotificationStatusSent
	n.SentAt = &now
	n.ErrorMessage = ""
}

// Retry re-sends a failed notification; each retry counts whatever its outcome
func (s *notificationService) Retry(ctx context.Context, id uint64) (*RetryResult, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.retryable(n); err != nil {
		return nil, err
	}

	// 1. Re-resolve recipient, the stored one is the fallback
	r := recipient{email: n.Recipient}
	if n.DeliveryMethod == model.NotificationSMS {
		r = recipient{phone: n.Recipient}
	}
	if user, err := s.accounts.GetUser(ctx, n.UserID); err == nil {
		r = recipient{email: user.Email, phone: user.Phone, username: user.Username, firstName: user.FirstName}
	} else if n.Recipient == "" {
		return nil, utils.ErrRecipientUnresolved
	}

	// 2. Claim one attempt
	claimed, err := s.repo.ClaimRetry(ctx, id, s.maxRetries)
	if err != nil {
		return nil, err
	}
	if !claimed {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.retryable(current); err != nil {
			return nil, err
		}
		return nil, utils.ErrNotRetryable
	}
	if n, err = s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	// 3. Deliver again
	req := &SendRequest{
		Title:   n.Title,
		Message: n.Message,
		OrderID: n.OrderID,
	}
	if n.PaymentID != nil {
		req.PaymentID = *n.PaymentID
	}
	n.Recipient = r.address(n.DeliveryMethod)
	detail, sendErr := s.deliver(ctx, n.DeliveryMethod, n.Category, n.Recipient, n.Message, templateData(req, r))
	s.applyOutcome(n, detail, sendErr)
	if err := s.repo.Update(context.WithoutCancel(ctx), n); err != nil {
		return nil, err
	}
	s.metrics.RecordNotification(n.DeliveryMethod, n.Status)

	log.WithFields(map[string]interface{}{
		"notification_id": n.ID,
		"retry_count":     n.RetryCount,
		"status":          n.Status,
	}).Info("Notification retried")

	return &RetryResult{
		Message:      "Notification retry completed",
		Notification: n,
		Success:      sendErr == nil,
	}, nil
}

func (s *notificationService) retryable(n *model.Notification) error {
	if !n.IsFailed() {
		return utils.ErrNotRetryable
	}
	if n.RetryCount >= s.maxRetries {
		return utils.ErrRetryLimitExceeded
	}
	return nil
}

func (s *notificationService) GetNotification(ctx context.Context, id uint64) (*model.Notification, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *notificationService) ListUserNotifications(ctx context.Context, userID uint64) ([]*model.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *notificationService) ListNotifications(ctx context.Context, status, category string, page, perPage int) ([]*model.Notification, int64, error) {
	return s.repo.List(ctx, repository.NotificationFilter{Status: status, Category: category}, page, perPage)
}

func (s *notificationService) MarkRead(ctx context.Context, id uint64) (*model.Notification, error) {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *notificationService) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	result := &Stats{
		NotificationStats: *stats,
		Sent:              stats.ByStatus[model.NotificationStatusSent],
		Failed:            stats.ByStatus[model.NotificationStatusFailed],
		Pending:           stats.ByStatus[model.NotificationStatusPending],
	}
	if stats.Total > 0 {
		rate := decimal.NewFromInt(result.Sent * 100).Div(decimal.NewFromInt(stats.Total)).Round(2)
		result.SuccessRate = rate.InexactFloat64()
	}
	return result, nil
}

// TestEmail renders category with sample data and sends it to req.Email
func (s *notificationService) TestEmail(ctx context.Context, req *TestEmailRequest) (*TestEmailResult, error) {
	data := TemplateData{
		"title":          req.Subject,
		"message":        firstNonEmpty(req.Message, "This is a test email"),
		"username":       firstNonEmpty(req.Username, "Test User"),
		"name":           firstNonEmpty(req.Username, "Test User"),
		"email":          req.Email,
		"order_id":       "12345",
		"payment_id":     "PAY_TEST123",
		"amount":         "1000",
		"payment_status": "completed",
		"payment_method": "card",
		"transaction_id": "TXN_TEST456",
	}
	rendered := Render(req.Category, data)

	result := &TestEmailResult{
		Recipient: req.Email,
		Subject:   rendered.Subject,
		Category:  req.Category,
	}
	_, err := s.deliver(ctx, model.NotificationEmail, req.Category, req.Email, req.Message, data)
	if err != nil {
		s.metrics.RecordNotification("test_email", model.NotificationStatusFailed)
		result.Message = "Failed to send test email"
		result.Details = err.Error()
		return result, nil
	}
	s.metrics.RecordNotification("test_email", model.NotificationStatusSent)
	result.Message = "Test email sent successfully"
	result.Success = true
	return result, nil
}
