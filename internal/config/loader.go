package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"shopease/pkg/log"
)

// EnvPrefix prefixes every environment override, e.g. SHOPEASE_DATABASE_HOST
const EnvPrefix = "SHOPEASE"

// envKeys are bound explicitly so env overrides work without a config file.
var envKeys = []string{
	"server.host", "server.port", "server.mode",
	"database.driver", "database.host", "database.port", "database.username",
	"database.password", "database.dbname", "database.log_level",
	"redis.host", "redis.port", "redis.password", "redis.db",
	"log.level", "log.format", "log.output", "log.filename",
	"metrics.enabled", "tracing.enabled", "tracing.endpoint", "tracing.sample_rate",
	"rate_limit.enabled", "circuit_break.enabled",
	"security.jwt.secret", "security.jwt.expire",
	"services.product_url", "services.user_url", "services.order_url", "services.notification_url",
	"services.lookup_timeout", "services.notify_timeout",
	"side_effects.mode",
	"order.stock_policy",
	"payment.gateway_success_rate", "payment.gateway_latency", "payment.currency",
	"notification.live_email", "notification.smtp.host", "notification.smtp.port",
	"notification.smtp.username", "notification.smtp.password", "notification.smtp.from",
}

// Loader reads configuration for one service and can watch its file for changes.
type Loader struct {
	v       *viper.Viper
	service string

	mu  sync.RWMutex
	cfg *Config
}

// NewLoader prepares a loader for configPath; an empty path searches the default locations.
func NewLoader(configPath, service string) *Loader {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("/etc/shopease")
		v.AddConfigPath("$HOME/.shopease")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	return &Loader{v: v, service: service}
}

// LoadConfig loads configuration for service from file and environment variables
func LoadConfig(configPath, service string) (*Config, error) {
	return NewLoader(configPath, service).Load()
}

// Load reads the base file, merges config.<env>.yaml next to it and applies env overrides.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if used := l.v.ConfigFileUsed(); used != "" {
		env := os.Getenv(EnvPrefix + "_ENV")
		if env == "" {
			env = "dev"
		}
		envPath := filepath.Join(filepath.Dir(used), fmt.Sprintf("config.%s.yaml", env))
		if _, err := os.Stat(envPath); err == nil {
			l.v.SetConfigFile(envPath)
			if err := l.v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("failed to merge env config %s: %w", envPath, err)
			}
			l.v.SetConfigFile(used)
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ApplyService(l.service)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Current returns the last successfully loaded config
func (l *Loader) Current() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Watch reloads on file changes and hands the new config to onChange.
// Invalid edits are logged and the previous config stays current.
func (l *Loader) Watch(onChange func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.Load()
		if err != nil {
			log.WithError(err).WithField("file", e.Name).Warn("Config reload rejected")
			return
		}
		log.WithField("file", e.Name).Info("Config reloaded")
		if onChange != nil {
			onChange(cfg)
		}
	})
	l.v.WatchConfig()
}
