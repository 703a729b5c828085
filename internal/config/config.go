package config

import (
	"fmt"
	"strings"
	"time"

	"shopease/pkg/log"
)

// Service names accepted by the launcher
const (
	ServiceProduct      = "product"
	ServiceUser         = "user"
	ServiceOrder        = "order"
	ServicePayment      = "payment"
	ServiceNotification = "notification"
)

// Services lists every service in start order
var Services = []string{ServiceProduct, ServiceUser, ServiceOrder, ServicePayment, ServiceNotification}

var defaultPorts = map[string]int{
	ServiceProduct:      5000,
	ServiceUser:         5001,
	ServiceOrder:        5002,
	ServicePayment:      5003,
	ServiceNotification: 5005,
}

// Stock policies of the order workflow
const (
	StockPolicyReserve  = "reserve"
	StockPolicyAdvisory = "advisory"
)

// Side effect execution modes
const (
	SideEffectSync  = "sync"
	SideEffectAsync = "async"
)

// Config is built once per process and handed to constructors
type Config struct {
	Service      string             `mapstructure:"-"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Log          log.Config         `mapstructure:"log"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	CircuitBreak CircuitBreakConfig `mapstructure:"circuit_break"`
	Security     SecurityConfig     `mapstructure:"security"`
	Peers        PeersConfig        `mapstructure:"services"`
	SideEffects  SideEffectConfig   `mapstructure:"side_effects"`
	Order        OrderConfig        `mapstructure:"order"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Notification NotificationConfig `mapstructure:"notification"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql, sqlite
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig represents tracing configuration
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	RPS     int           `mapstructure:"rps"`
	Burst   int           `mapstructure:"burst"`
	TTL     time.Duration `mapstructure:"ttl"`
	// Login throttles POST /login per client IP in Redis
	Login struct {
		Limit  int64         `mapstructure:"limit"`
		Window time.Duration `mapstructure:"window"`
	} `mapstructure:"login"`
}

// CircuitBreakConfig guards calls to peer services
type CircuitBreakConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests uint32        `mapstructure:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFailures uint32        `mapstructure:"max_failures"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	JWT struct {
		Secret string        `mapstructure:"secret"`
		Expire time.Duration `mapstructure:"expire"`
		Issuer string        `mapstructure:"issuer"`
	} `mapstructure:"jwt"`
	MaxLoginAttempts int           `mapstructure:"max_login_attempts"`
	LockDuration     time.Duration `mapstructure:"lock_duration"`
	CORS             struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
}

// PeersConfig holds base URLs of the other services
type PeersConfig struct {
	ProductURL      string        `mapstructure:"product_url"`
	UserURL         string        `mapstructure:"user_url"`
	OrderURL        string        `mapstructure:"order_url"`
	NotificationURL string        `mapstructure:"notification_url"`
	LookupTimeout   time.Duration `mapstructure:"lookup_timeout"`
	NotifyTimeout   time.Duration `mapstructure:"notify_timeout"`
}

// SideEffectConfig controls best-effort calls made after a primary write
type SideEffectConfig struct {
	Mode      string        `mapstructure:"mode"` // sync, async
	Timeout   time.Duration `mapstructure:"timeout"`
	QueueSize int           `mapstructure:"queue_size"`
}

// OrderConfig represents order workflow configuration
type OrderConfig struct {
	StockPolicy       string        `mapstructure:"stock_policy"`
	EnrichmentTTL     time.Duration `mapstructure:"enrichment_ttl"`
	EnrichmentCacheMB int           `mapstructure:"enrichment_cache_mb"`
}

// PaymentConfig represents payment workflow configuration
type PaymentConfig struct {
	GatewaySuccessRate float64       `mapstructure:"gateway_success_rate"`
	GatewayLatency     time.Duration `mapstructure:"gateway_latency"`
	FeeRate            float64       `mapstructure:"fee_rate"`
	Currency           string        `mapstructure:"currency"`
}

// NotificationConfig represents notification dispatcher configuration
type NotificationConfig struct {
	LiveEmail  bool `mapstructure:"live_email"`
	MaxRetries int  `mapstructure:"max_retries"`
	SMTP       struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
		FromName string `mapstructure:"from_name"`
	} `mapstructure:"smtp"`
}

// GetAddr returns the server address
func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GetDSN returns the database DSN for the configured driver
func (d *DatabaseConfig) GetDSN() string {
	if d.Driver == "sqlite" {
		if strings.HasSuffix(d.DBName, ".db") || d.DBName == ":memory:" {
			return d.DBName
		}
		return d.DBName + ".db"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true&loc=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.Loc)
}

// GetAddr returns the Redis address
func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Driver != "mysql" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.Driver == "mysql" && c.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}
	if c.Security.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Order.StockPolicy != StockPolicyReserve && c.Order.StockPolicy != StockPolicyAdvisory {
		return fmt.Errorf("invalid order stock policy: %s", c.Order.StockPolicy)
	}
	if c.SideEffects.Mode != SideEffectSync && c.SideEffects.Mode != SideEffectAsync {
		return fmt.Errorf("invalid side effect mode: %s", c.SideEffects.Mode)
	}
	if c.Payment.GatewaySuccessRate < 0 || c.Payment.GatewaySuccessRate > 1 {
		return fmt.Errorf("gateway success rate must be within [0, 1]")
	}
	if c.Notification.LiveEmail && c.Notification.SMTP.Host == "" {
		return fmt.Errorf("smtp host is required when live email is enabled")
	}
	return nil
}

// ApplyService fills the per-service defaults: listen port, database name, tracer name.
func (c *Config) ApplyService(name string) {
	c.Service = name
	if c.Server.Port == 0 {
		c.Server.Port = defaultPorts[name]
	}
	if c.Database.DBName == "" {
		c.Database.DBName = name + "db"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = name + "-service"
	}
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 20 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Username == "" {
		c.Database.Username = "root"
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.Loc == "" {
		c.Database.Loc = "Local"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 50
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = time.Hour
	}
	if c.Database.ConnMaxIdleTime == 0 {
		c.Database.ConnMaxIdleTime = 10 * time.Minute
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}
	if c.Database.SlowThreshold == 0 {
		c.Database.SlowThreshold = 200 * time.Millisecond
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 50
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 5
	}
	if c.Redis.MaxRetries == 0 {
		c.Redis.MaxRetries = 3
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "shopease"
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "http://localhost:14268/api/traces"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 0.1
	}

	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 100
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 200
	}
	if c.RateLimit.TTL == 0 {
		c.RateLimit.TTL = 10 * time.Minute
	}
	if c.RateLimit.Login.Limit == 0 {
		c.RateLimit.Login.Limit = 20
	}
	if c.RateLimit.Login.Window == 0 {
		c.RateLimit.Login.Window = time.Minute
	}

	if c.CircuitBreak.MaxRequests == 0 {
		c.CircuitBreak.MaxRequests = 1
	}
	if c.CircuitBreak.Interval == 0 {
		c.CircuitBreak.Interval = time.Minute
	}
	if c.CircuitBreak.Timeout == 0 {
		c.CircuitBreak.Timeout = 30 * time.Second
	}
	if c.CircuitBreak.MaxFailures == 0 {
		c.CircuitBreak.MaxFailures = 5
	}

	if c.Security.JWT.Secret == "" {
		c.Security.JWT.Secret = "shopease-dev-secret-change-me"
	}
	if c.Security.JWT.Expire == 0 {
		c.Security.JWT.Expire = 24 * time.Hour
	}
	if c.Security.JWT.Issuer == "" {
		c.Security.JWT.Issuer = "shopease"
	}
	if c.Security.MaxLoginAttempts == 0 {
		c.Security.MaxLoginAttempts = 5
	}
	if c.Security.LockDuration == 0 {
		c.Security.LockDuration = 15 * time.Minute
	}

	if c.Peers.ProductURL == "" {
		c.Peers.ProductURL = "http://localhost:5000"
	}
	if c.Peers.UserURL == "" {
		c.Peers.UserURL = "http://localhost:5001"
	}
	if c.Peers.OrderURL == "" {
		c.Peers.OrderURL = "http://localhost:5002"
	}
	if c.Peers.NotificationURL == "" {
		c.Peers.NotificationURL = "http://localhost:5005"
	}
	if c.Peers.LookupTimeout == 0 {
		c.Peers.LookupTimeout = 5 * time.Second
	}
	if c.Peers.NotifyTimeout == 0 {
		c.Peers.NotifyTimeout = 10 * time.Second
	}

	if c.SideEffects.Mode == "" {
		c.SideEffects.Mode = SideEffectSync
	}
	if c.SideEffects.Timeout == 0 {
		c.SideEffects.Timeout = 15 * time.Second
	}
	if c.SideEffects.QueueSize == 0 {
		c.SideEffects.QueueSize = 1000
	}

	if c.Order.StockPolicy == "" {
		c.Order.StockPolicy = StockPolicyReserve
	}
	if c.Order.EnrichmentTTL == 0 {
		c.Order.EnrichmentTTL = 30 * time.Second
	}
	if c.Order.EnrichmentCacheMB == 0 {
		c.Order.EnrichmentCacheMB = 16
	}

	if c.Payment.GatewaySuccessRate == 0 {
		c.Payment.GatewaySuccessRate = 0.9
	}
	if c.Payment.GatewayLatency == 0 {
		c.Payment.GatewayLatency = time.Second
	}
	if c.Payment.FeeRate == 0 {
		c.Payment.FeeRate = 0.02
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "INR"
	}

	if c.Notification.MaxRetries == 0 {
		c.Notification.MaxRetries = 3
	}
	if c.Notification.SMTP.Port == 0 {
		c.Notification.SMTP.Port = 587
	}
	if c.Notification.SMTP.FromName == "" {
		c.Notification.SMTP.FromName = "ShopEase"
	}
}
