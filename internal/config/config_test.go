package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsPerService(t *testing.T) {
	tests := []struct {
		service string
		port    int
		dbName  string
	}{
		{ServiceProduct, 5000, "productdb"},
		{ServiceUser, 5001, "userdb"},
		{ServiceOrder, 5002, "orderdb"},
		{ServicePayment, 5003, "paymentdb"},
		{ServiceNotification, 5005, "notificationdb"},
	}

	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			cfg := &Config{}
			cfg.ApplyService(tt.service)
			cfg.SetDefaults()

			assert.Equal(t, tt.port, cfg.Server.Port)
			assert.Equal(t, tt.dbName, cfg.Database.DBName)
			assert.Equal(t, tt.service+"-service", cfg.Tracing.ServiceName)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyService(ServicePayment)
	cfg.SetDefaults()

	assert.Equal(t, 0.9, cfg.Payment.GatewaySuccessRate)
	assert.Equal(t, time.Second, cfg.Payment.GatewayLatency)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.Equal(t, 5*time.Second, cfg.Peers.LookupTimeout)
	assert.Equal(t, 10*time.Second, cfg.Peers.NotifyTimeout)
	assert.Equal(t, SideEffectSync, cfg.SideEffects.Mode)
	assert.Equal(t, StockPolicyReserve, cfg.Order.StockPolicy)
	assert.Equal(t, 3, cfg.Notification.MaxRetries)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.ApplyService(ServiceOrder)
		cfg.SetDefaults()
		return cfg
	}

	cfg := base()
	cfg.Order.StockPolicy = "eventual"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SideEffects.Mode = "later"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Notification.LiveEmail = true
	assert.Error(t, cfg.Validate())
	cfg.Notification.SMTP.Host = "smtp.example.com"
	assert.NoError(t, cfg.Validate())
}

func TestGetDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "mysql", Username: "root", Password: "pw", Host: "db", Port: 3306, DBName: "orderdb", Charset: "utf8mb4", Loc: "Local"}
	assert.Equal(t, "root:pw@tcp(db:3306)/orderdb?charset=utf8mb4&parseTime=true&loc=Local", d.GetDSN())

	d = DatabaseConfig{Driver: "sqlite", DBName: "orderdb"}
	assert.Equal(t, "orderdb.db", d.GetDSN())
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: sqlite
  dbname: orders-test
order:
  stock_policy: advisory
payment:
  gateway_success_rate: 0.5
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.test.yaml"), []byte(`
payment:
  currency: USD
`), 0644))

	t.Setenv("SHOPEASE_ENV", "test")
	t.Setenv("SHOPEASE_SERVER_PORT", "6002")
	t.Setenv("SHOPEASE_SERVICES_PRODUCT_URL", "http://catalog:5000")

	cfg, err := LoadConfig(path, ServiceOrder)
	require.NoError(t, err)

	assert.Equal(t, ServiceOrder, cfg.Service)
	assert.Equal(t, 6002, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "orders-test", cfg.Database.DBName)
	assert.Equal(t, StockPolicyAdvisory, cfg.Order.StockPolicy)
	assert.Equal(t, 0.5, cfg.Payment.GatewaySuccessRate)
	assert.Equal(t, "USD", cfg.Payment.Currency)
	assert.Equal(t, "http://catalog:5000", cfg.Peers.ProductURL)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SHOPEASE_DATABASE_DRIVER", "sqlite")

	cfg, err := LoadConfig("", ServiceNotification)
	require.NoError(t, err)
	assert.Equal(t, 5005, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("side_effects:\n  mode: later\n"), 0644))

	_, err := LoadConfig(path, ServicePayment)
	assert.Error(t, err)
}
