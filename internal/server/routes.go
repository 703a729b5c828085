package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"shopease/internal/client"
	"shopease/internal/database"
	"shopease/internal/handler"
	"shopease/internal/middleware"
	"shopease/internal/model"
	redisstore "shopease/internal/redis"
	"shopease/internal/repository"
	"shopease/internal/service/account"
	"shopease/internal/service/catalog"
	"shopease/internal/service/notification"
	"shopease/internal/service/order"
	"shopease/internal/service/payment"
	"shopease/internal/sidechannel"
	internalutils "shopease/internal/utils"
	"shopease/pkg/limiter"
	"shopease/pkg/log"
	"shopease/pkg/snowflake"
	"shopease/pkg/utils"
)

func (a *App) databaseProbe(ctx context.Context) error {
	return database.Ping(ctx, a.db)
}

func (a *App) mountProduct() error {
	catalogService := catalog.NewCatalogService(repository.NewProductRepository(a.db), a.metrics)
	h := handler.NewProductHandler(catalogService)

	r := a.router
	r.GET("/health", handler.NewHealthHandler(a.cfg.Service, a.databaseProbe, nil).Health)
	r.GET("/products", h.ListProducts)
	r.POST("/products", h.CreateProduct)
	r.GET("/products/:id", h.GetProduct)
	r.PUT("/products/:id", h.UpdateProduct)
	r.DELETE("/products/:id", h.DeleteProduct)
	r.POST("/products/:id/reserve", h.Reserve)
	r.POST("/products/:id/release", h.Release)
	return nil
}

func (a *App) mountUser(deps Deps) error {
	rdb := deps.Redis
	if rdb == nil {
		var err error
		if rdb, err = redisstore.New(a.cfg.Redis); err != nil {
			return err
		}
		a.onClose(rdb.Close)
	}

	notifications := client.NewNotifications(a.cfg.Peers.NotificationURL, a.cfg.Peers.NotifyTimeout, a.clientOptions(deps))
	a.runner.Register(sidechannel.TaskNotification, notifyHandler(notifications))

	jwtManager := internalutils.NewJWTManager(a.cfg.Security.JWT.Secret, a.cfg.Security.JWT.Issuer, a.cfg.Security.JWT.Expire)
	accountService := account.NewAccountService(
		repository.NewUserRepository(a.db),
		jwtManager,
		rdb,
		a.runner,
		a.metrics,
		a.cfg.Security,
	)
	warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := accountService.Warm(warmCtx); err != nil {
		log.WithError(err).Warn("Registration filter not warmed, falling back to database checks")
	}

	h := handler.NewAccountHandler(accountService)
	loginLimiter := limiter.NewSlidingWindowLimiter(rdb, "ratelimit:login", a.cfg.RateLimit.Login.Limit, a.cfg.RateLimit.Login.Window)
	auth := middleware.Auth(func(ctx context.Context, token string) (*middleware.UserInfo, error) {
		claims, err := accountService.ValidateToken(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.UserInfo{ID: claims.UserID, Username: claims.Username}, nil
	})
	redisProbe := func(ctx context.Context) error { return redisstore.Health(ctx, rdb) }

	r := a.router
	r.GET("/health", handler.NewHealthHandler(a.cfg.Service, a.databaseProbe, redisProbe).Health)
	r.POST("/register", h.Register)
	r.POST("/login", middleware.RateLimit(loginLimiter, middleware.ClientIPKey), h.Login)
	r.GET("/users", h.ListUsers)
	r.GET("/users/:id", h.GetUser)

	authed := r.Group("", auth)
	authed.POST("/logout", h.Logout)
	authed.GET("/profile", h.GetProfile)
	authed.PUT("/profile", h.UpdateProfile)
	authed.PUT("/profile/password", h.ChangePassword)
	return nil
}

func (a *App) mountOrder(deps Deps) error {
	products := client.NewCatalog(a.cfg.Peers.ProductURL, a.cfg.Peers.LookupTimeout, a.clientOptions(deps))
	orderService, err := order.NewOrderService(repository.NewOrderRepository(a.db), products, a.metrics, a.cfg.Order)
	if err != nil {
		return err
	}
	a.onClose(orderService.Close)

	h := handler.NewOrderHandler(orderService)
	r := a.router
	r.GET("/health", handler.NewHealthHandler(a.cfg.Service, a.databaseProbe, nil).Health)
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/user/:user_id", h.ListUserOrders)
	r.GET("/orders/:id", h.GetOrder)
	r.PUT("/orders/:id/status", h.UpdateStatus)
	r.DELETE("/orders/:id", h.CancelOrder)
	return nil
}

func (a *App) mountPayment(deps Deps) error {
	opts := a.clientOptions(deps)
	orders := client.NewOrders(a.cfg.Peers.OrderURL, a.cfg.Peers.LookupTimeout, opts)
	notifications := client.NewNotifications(a.cfg.Peers.NotificationURL, a.cfg.Peers.NotifyTimeout, opts)
	a.runner.Register(sidechannel.TaskOrderStatus, func(ctx context.Context, payload json.RawMessage) error {
		var msg model.OrderStatusMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return err
		}
		return orders.UpdateStatus(ctx, msg)
	})
	a.runner.Register(sidechannel.TaskNotification, notifyHandler(notifications))

	gateway := deps.Gateway
	if gateway == nil {
		ids, err := snowflake.NewGenerator(1)
		if err != nil {
			return err
		}
		gateway = payment.NewSimulator(a.cfg.Payment, ids, rand.NewSource(time.Now().UnixNano()))
	}

	paymentService := payment.NewPaymentService(
		repository.NewPaymentRepository(a.db),
		gateway,
		a.runner,
		a.metrics,
		a.cfg.Payment.Currency,
	)
	h := handler.NewPaymentHandler(paymentService)

	r := a.router
	r.GET("/health", handler.NewHealthHandler(a.cfg.Service, a.databaseProbe, nil).Health)
	r.POST("/payments", h.ProcessPayment)
	r.GET("/payments", h.ListPayments)
	r.GET("/payments/stats", h.Stats)
	r.GET("/payments/order/:order_id", h.ListOrderPayments)
	r.GET("/payments/user/:user_id", h.ListUserPayments)
	r.GET("/payments/:payment_id", h.GetPayment)
	r.POST("/payments/:payment_id/refund", h.RefundPayment)
	return nil
}

func (a *App) mountNotification(deps Deps) error {
	senders := deps.Senders
	if senders == nil {
		senders = map[string]notification.Sender{
			model.NotificationEmail: notification.NewEmailSender(a.cfg.Notification),
			model.NotificationSMS:   notification.SMSSender{},
			model.NotificationPush:  notification.PushSender{},
			model.NotificationInApp: notification.InAppSender{},
		}
	}
	accounts := client.NewAccounts(a.cfg.Peers.UserURL, a.cfg.Peers.LookupTimeout, a.clientOptions(deps))
	notificationService := notification.NewNotificationService(
		repository.NewNotificationRepository(a.db),
		accounts,
		senders,
		a.metrics,
		a.cfg.Notification.MaxRetries,
	)
	h := handler.NewNotificationHandler(notificationService)

	r := a.router
	r.GET("/health", handler.NewHealthHandler(a.cfg.Service, a.databaseProbe, nil).Health)
	r.POST("/notifications", h.Send)
	r.GET("/notifications", h.ListNotifications)
	r.GET("/notifications/stats", h.Stats)
	r.GET("/notifications/user/:user_id", h.ListUserNotifications)
	r.GET("/notifications/:id", h.GetNotification)
	r.PUT("/notifications/:id/read", h.MarkRead)
	r.POST("/notifications/:id/retry", h.Retry)
	r.POST("/notifications/retry/:id", h.Retry)
	r.POST("/test-email", h.TestEmail)
	return nil
}

func notifyHandler(notifications *client.Notifications) sidechannel.Handler {
	return func(ctx context.Context, payload json.RawMessage) error {
		var msg model.NotificationMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return utils.WrapError(err, utils.KindValidation, "malformed notification payload")
		}
		return notifications.Send(ctx, msg)
	}
}
