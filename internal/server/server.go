package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"shopease/internal/client"
	"shopease/internal/config"
	"shopease/internal/database"
	"shopease/internal/middleware"
	"shopease/internal/monitor"
	"shopease/internal/service/notification"
	"shopease/internal/service/payment"
	"shopease/internal/sidechannel"
	"shopease/pkg/breaker"
	"shopease/pkg/limiter"
	"shopease/pkg/log"
	"shopease/pkg/queue"
)

// Version reported by the tracer and the CLI
var Version = "1.0.0"

// Deps overrides the connections and adapters New would otherwise build from config
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Gateway   payment.Gateway
	Senders   map[string]notification.Sender
	Transport http.RoundTripper
}

// App one running service
type App struct {
	cfg      *config.Config
	db       *gorm.DB
	router   *gin.Engine
	metrics  *monitor.Metrics
	tracer   *monitor.Tracer
	runner   *sidechannel.Runner
	queue    *queue.MemoryQueue
	consumer *sidechannel.Consumer
	closers  []func() error
}

// New builds cfg.Service: connections, repositories, services, handlers and routes
func New(cfg *config.Config, deps Deps) (_ *App, err error) {
	app := &App{cfg: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	app.db = deps.DB
	if app.db == nil {
		if app.db, err = database.Open(cfg.Database); err != nil {
			return nil, err
		}
		db := app.db
		app.onClose(func() error { return database.Close(db) })
	}
	if err = database.AutoMigrate(app.db, cfg.Service); err != nil {
		return nil, err
	}

	app.metrics = monitor.NewMetrics(cfg.Metrics.Namespace, cfg.Service)
	if app.tracer, err = monitor.NewTracer(cfg.Tracing, Version); err != nil {
		return nil, err
	}
	tracer := app.tracer
	app.onClose(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tracer.Shutdown(ctx)
	})

	if cfg.SideEffects.Mode == config.SideEffectAsync {
		app.queue = queue.NewMemoryQueue(cfg.SideEffects.QueueSize)
	}
	if app.queue != nil {
		app.runner = sidechannel.NewRunner(cfg.SideEffects, app.queue, app.metrics)
	} else {
		app.runner = sidechannel.NewRunner(cfg.SideEffects, nil, app.metrics)
	}

	app.router = app.newRouter()

	switch cfg.Service {
	case config.ServiceProduct:
		err = app.mountProduct()
	case config.ServiceUser:
		err = app.mountUser(deps)
	case config.ServiceOrder:
		err = app.mountOrder(deps)
	case config.ServicePayment:
		err = app.mountPayment(deps)
	case config.ServiceNotification:
		err = app.mountNotification(deps)
	default:
		err = fmt.Errorf("unknown service: %s", cfg.Service)
	}
	if err != nil {
		return nil, err
	}

	if app.queue != nil {
		app.consumer = sidechannel.NewConsumer(app.runner, app.queue, 4)
		app.consumer.Start(context.Background())
	}
	return app, nil
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *App) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(a.cfg.Security.CORS.AllowOrigins))
	router.Use(middleware.Metrics(a.metrics))
	router.Use(middleware.Tracing(a.tracer))
	if a.cfg.RateLimit.Enabled {
		keyed := limiter.NewKeyedLimiter(float64(a.cfg.RateLimit.RPS), a.cfg.RateLimit.Burst, a.cfg.RateLimit.TTL)
		router.Use(middleware.RateLimit(keyed, middleware.ClientIPKey))
	}
	router.Use(middleware.Timeout(a.cfg.Server.RequestTimeout))

	if a.cfg.Metrics.Enabled {
		router.GET(a.cfg.Metrics.Path, gin.WrapH(a.metrics.Handler()))
	}
	return router
}

// clientOptions peer client options with a breaker per peer
func (a *App) clientOptions(deps Deps) client.Options {
	opts := client.Options{
		Tracer:    a.tracer,
		Metrics:   a.metrics,
		Transport: deps.Transport,
	}
	if a.cfg.CircuitBreak.Enabled {
		opts.Breakers = breaker.NewManager(breaker.Config{
			MaxRequests: a.cfg.CircuitBreak.MaxRequests,
			Interval:    a.cfg.CircuitBreak.Interval,
			Timeout:     a.cfg.CircuitBreak.Timeout,
			ReadyToTrip: breaker.ConsecutiveFailures(a.cfg.CircuitBreak.MaxFailures),
			// a caller giving up says nothing about the peer
			IsSuccessful: func(err error) bool {
				return errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to breaker.State) {
				log.WithFields(map[string]interface{}{
					"peer": name,
					"from": from.String(),
					"to":   to.String(),
				}).Warn("Circuit breaker state changed")
			},
		})
	}
	return opts
}

// Handler the service's HTTP handler
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves until ctx is done, then shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:           a.cfg.Server.GetAddr(),
		Handler:        a.router,
		ReadTimeout:    a.cfg.Server.ReadTimeout,
		WriteTimeout:   a.cfg.Server.WriteTimeout,
		IdleTimeout:    a.cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"service": a.cfg.Service,
			"addr":    srv.Addr,
			"mode":    a.cfg.Server.Mode,
		}).Info("Starting HTTP server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve %s: %w", a.cfg.Service, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited")
	return nil
}

// Close drains the side effect consumer and releases connections, newest first
func (a *App) Close() error {
	if a.consumer != nil {
		a.consumer.Stop()
		a.consumer = nil
	}
	if a.queue != nil {
		_ = a.queue.Close()
		a.queue = nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
