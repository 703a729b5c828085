package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"shopease/internal/model"
	"shopease/internal/service/notification"
	"shopease/pkg/utils"
)

// MockNotificationService is a mock implementation of notification.NotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) notification(args mock.Arguments) (*model.Notification, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *MockNotificationService) Dispatch(ctx context.Context, req *notification.SendRequest) (*notification.DispatchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.DispatchResult), args.Error(1)
}

func (m *MockNotificationService) Retry(ctx context.Context, id uint64) (*notification.RetryResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.RetryResult), args.Error(1)
}

func (m *MockNotificationService) GetNotification(ctx context.Context, id uint64) (*model.Notification, error) {
	return m.notification(m.Called(ctx, id))
}

func (m *MockNotificationService) ListUserNotifications(ctx context.Context, userID uint64) ([]*model.Notification, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*model.Notification), args.Error(1)
}

func (m *MockNotificationService) ListNotifications(ctx context.Context, status, category string, page, perPage int) ([]*model.Notification, int64, error) {
	args := m.Called(ctx, status, category, page, perPage)
	return args.Get(0).([]*model.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, id uint64) (*model.Notification, error) {
	return m.notification(m.Called(ctx, id))
}

func (m *MockNotificationService) Stats(ctx context.Context) (*notification.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(*notification.Stats), args.Error(1)
}

func (m *MockNotificationService) TestEmail(ctx context.Context, req *notification.TestEmailRequest) (*notification.TestEmailResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(*notification.TestEmailResult), args.Error(1)
}

func notificationRouter(svc *MockNotificationService) *gin.Engine {
	h := NewNotificationHandler(svc)
	router := gin.New()
	router.POST("/notifications", h.Send)
	router.GET("/notifications", h.ListNotifications)
	router.GET("/notifications/stats", h.Stats)
	router.GET("/notifications/user/:user_id", h.ListUserNotifications)
	router.GET("/notifications/:id", h.GetNotification)
	router.PUT("/notifications/:id/read", h.MarkRead)
	router.POST("/notifications/:id/retry", h.Retry)
	router.POST("/notifications/retry/:id", h.Retry)
	router.POST("/test-email", h.TestEmail)
	return router
}

func TestNotificationHandler_Send(t *testing.T) {
	t.Run("failed delivery is still created", func(t *testing.T) {
		svc := new(MockNotificationService)
		stored := &model.Notification{ID: 3, UserID: 7, Status: model.NotificationStatusFailed, ErrorMessage: "smtp down"}
		svc.On("Dispatch", mock.Anything, mock.MatchedBy(func(req *notification.SendRequest) bool {
			return req.UserID == 7 && req.Type == "email" && req.Category == "order_confirmation"
		})).Return(&notification.DispatchResult{
			Notification:    stored,
			DeliveryStatus:  model.NotificationStatusFailed,
			DeliveryMessage: "smtp down",
		}, nil)

		w := performRequest(notificationRouter(svc), http.MethodPost, "/notifications",
			`{"user_id":7,"type":"email","message":"Order placed","category":"order_confirmation","order_id":1}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		assert.Equal(t, "failed", body["status"])
		assert.Equal(t, "failed", body["delivery_status"])
		assert.Equal(t, "smtp down", body["delivery_message"])
	})

	t.Run("recipient unresolved", func(t *testing.T) {
		svc := new(MockNotificationService)
		svc.On("Dispatch", mock.Anything, mock.Anything).Return(nil, utils.ErrRecipientUnresolved)

		w := performRequest(notificationRouter(svc), http.MethodPost, "/notifications",
			`{"user_id":7,"type":"email","message":"hi"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "user not found and no email provided", decode(t, w)["error"])
	})

	t.Run("unknown type", func(t *testing.T) {
		w := performRequest(notificationRouter(new(MockNotificationService)), http.MethodPost, "/notifications",
			`{"user_id":7,"type":"pigeon","message":"hi"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestNotificationHandler_Retry(t *testing.T) {
	svc := new(MockNotificationService)
	svc.On("Retry", mock.Anything, uint64(3)).Return(&notification.RetryResult{
		Message:      "Notification retry completed",
		Notification: &model.Notification{ID: 3, Status: model.NotificationStatusSent, RetryCount: 1},
		Success:      true,
	}, nil).Twice()
	svc.On("Retry", mock.Anything, uint64(4)).Return(nil, utils.ErrRetryLimitExceeded)
	router := notificationRouter(svc)

	for _, path := range []string{"/notifications/3/retry", "/notifications/retry/3"} {
		w := performRequest(router, http.MethodPost, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, true, decode(t, w)["success"], path)
	}

	w := performRequest(router, http.MethodPost, "/notifications/4/retry", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "maximum retry attempts exceeded", decode(t, w)["error"])
	svc.AssertExpectations(t)
}

func TestNotificationHandler_ListAndRead(t *testing.T) {
	svc := new(MockNotificationService)
	svc.On("ListNotifications", mock.Anything, "failed", "", 1, 20).Return([]*model.Notification{{ID: 3}}, int64(1), nil)
	svc.On("MarkRead", mock.Anything, uint64(9)).Return(nil, utils.ErrNotificationNotFound)
	router := notificationRouter(svc)

	w := performRequest(router, http.MethodGet, "/notifications?status=failed", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(20), decode(t, w)["pagination"].(map[string]interface{})["per_page"])

	w = performRequest(router, http.MethodPut, "/notifications/9/read", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationHandler_TestEmail(t *testing.T) {
	svc := new(MockNotificationService)
	svc.On("TestEmail", mock.Anything, mock.Anything).Return(&notification.TestEmailResult{
		Message:   "Failed to send test email",
		Recipient: "ada@example.com",
		Details:   "smtp down",
	}, nil)

	w := performRequest(notificationRouter(svc), http.MethodPost, "/test-email",
		`{"email":"ada@example.com","subject":"Hi","category":"general"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "smtp down", decode(t, w)["details"])
}
