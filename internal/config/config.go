package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// StorefrontConfig is the top-level configuration for the storefront binary.
type StorefrontConfig struct {
	// Server configures the HTTP listener and logging.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Storage selects where cart and session state is persisted.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Catalog optionally replaces the embedded product seed.
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`

	// Checkout holds shipping and tax rates.
	Checkout CheckoutConfig `yaml:"checkout" mapstructure:"checkout"`

	// Orders configures the placed-order journal.
	Orders OrdersConfig `yaml:"orders" mapstructure:"orders"`

	// Telemetry toggles OpenTelemetry exporters.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// DevMode enables development features (debug logging, stdout telemetry).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// HTTPAddr is the address the API listens on.
	// Default: "127.0.0.1:8080".
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"required,hostname_port"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	// AuthAttemptsPerMinute caps sign-in and sign-up attempts per client IP.
	// 0 disables throttling. Default: 10.
	AuthAttemptsPerMinute int `yaml:"auth_attempts_per_minute" mapstructure:"auth_attempts_per_minute" validate:"gte=0"`
}

// StorageConfig configures the key-value store behind the cart and session.
type StorageConfig struct {
	// Backend is "file" (JSON document), "sqlite" or "memory".
	Backend string `yaml:"backend" mapstructure:"backend" validate:"required,storage_backend"`
	// Path is the state file or database location. Ignored for memory.
	Path string `yaml:"path" mapstructure:"path"`
}

// CatalogConfig configures the product catalog source.
type CatalogConfig struct {
	// File is a YAML catalog path. Empty means the embedded seed.
	File string `yaml:"file" mapstructure:"file"`
}

// CheckoutConfig holds the checkout rates.
type CheckoutConfig struct {
	StandardShipping float64 `yaml:"standard_shipping" mapstructure:"standard_shipping" validate:"gte=0"`
	ExpressShipping  float64 `yaml:"express_shipping" mapstructure:"express_shipping" validate:"gte=0"`
	TaxRate          float64 `yaml:"tax_rate" mapstructure:"tax_rate" validate:"gte=0,lte=1"`
}

// OrdersConfig configures the order journal.
type OrdersConfig struct {
	// Dir holds the journal files. Empty means an "orders" directory next to
	// the state file. The memory backend keeps no journal.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// RetentionDays is how long day files are kept. Default: 30.
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days" validate:"gte=0"`
}

// TelemetryConfig configures OpenTelemetry.
type TelemetryConfig struct {
	// Tracing exports spans to stdout.
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`
	// Metrics exports OpenTelemetry metrics to stdout.
	Metrics bool `yaml:"metrics" mapstructure:"metrics"`
}

// SetDevDefaults applies development defaults. Must run after SetDefaults.
func (c *StorefrontConfig) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	c.Server.LogLevel = "debug"
	c.Telemetry.Tracing = true
}

// SetDefaults applies sensible default values to the configuration.
func (c *StorefrontConfig) SetDefaults() {
	// Bind to localhost only; ":8080" must be set explicitly.
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if !viper.IsSet("server.auth_attempts_per_minute") && c.Server.AuthAttemptsPerMinute == 0 {
		c.Server.AuthAttemptsPerMinute = 10
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	if c.Storage.Path == "" {
		switch c.Storage.Backend {
		case BackendSQLite:
			c.Storage.Path = "storefront.db"
		case BackendFile:
			c.Storage.Path = "storefront.json"
		}
	}

	if c.Orders.RetentionDays == 0 {
		c.Orders.RetentionDays = 30
	}

	// viper.IsSet distinguishes "not set" from an explicit zero rate.
	if !viper.IsSet("checkout.standard_shipping") && c.Checkout.StandardShipping == 0 {
		c.Checkout.StandardShipping = 4.99
	}
	if !viper.IsSet("checkout.express_shipping") && c.Checkout.ExpressShipping == 0 {
		c.Checkout.ExpressShipping = 14.99
	}
	if !viper.IsSet("checkout.tax_rate") && c.Checkout.TaxRate == 0 {
		c.Checkout.TaxRate = 0.08
	}
}

// OrdersDir returns where the order journal lives, or "" when there is none.
func (c *StorefrontConfig) OrdersDir() string {
	if c.Orders.Dir != "" {
		return c.Orders.Dir
	}
	if c.Storage.Backend == BackendMemory || c.Storage.Path == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(c.Storage.Path), "orders")
}
