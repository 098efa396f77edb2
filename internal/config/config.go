package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverBadger   = "badger"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Subscriber config.SubscriberConfig `koanf:"subscriber"`
	Metrics    config.MetricsConfig    `koanf:"metrics"`
	Storage    StorageConfig           `koanf:"storage"`
	Catalog    CatalogConfig           `koanf:"catalog"`
	Checkout   CheckoutConfig          `koanf:"checkout"`
}

// StorageConfig selects and configures the cart backend.
type StorageConfig struct {
	Driver string `koanf:"driver"`
	Key    string `koanf:"key"`
	Badger struct {
		Path       string `koanf:"path"`
		SyncWrites bool   `koanf:"syncWrites"`
	} `koanf:"badger"`
	Redis struct {
		URL     string        `koanf:"url"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"redis"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
}

// CatalogConfig points at the product file. An empty file means the bundled catalog.
type CatalogConfig struct {
	File      string `koanf:"file"`
	CacheSize int    `koanf:"cacheSize"`
}

// CheckoutConfig holds the order summary pricing rules.
type CheckoutConfig struct {
	FreeShippingThreshold float64 `koanf:"freeShippingThreshold"`
	ShippingFee           float64 `koanf:"shippingFee"`
	TaxRate               float64 `koanf:"taxRate"`
}

// Remote reports whether the driver talks to a network service.
func (c *StorageConfig) Remote() bool {
	return c.Driver == DriverRedis || c.Driver == DriverPostgres
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Nats.String())
	if c.Nats.Enabled {
		b.WriteString(c.Subscriber.String())
	}
	b.WriteString(c.Metrics.String())

	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  storage.driver: %s\n", c.Storage.Driver))
	b.WriteString(fmt.Sprintf("  storage.key: %s\n", c.Storage.Key))
	switch c.Storage.Driver {
	case DriverBadger:
		b.WriteString(fmt.Sprintf("  storage.badger.path: %s\n", c.Storage.Badger.Path))
		b.WriteString(fmt.Sprintf("  storage.badger.syncWrites: %t\n", c.Storage.Badger.SyncWrites))
	case DriverRedis:
		b.WriteString(fmt.Sprintf("  storage.redis.url: %s\n", config.MaskURL(c.Storage.Redis.URL)))
		b.WriteString(fmt.Sprintf("  storage.redis.timeout: %s\n", c.Storage.Redis.Timeout))
	case DriverPostgres:
		b.WriteString(c.Storage.Database.String())
	}
	if c.Storage.Remote() {
		b.WriteString(c.Storage.Resilience.String())
	}

	b.WriteString("\n--- Catalog ---\n")
	b.WriteString(fmt.Sprintf("  catalog.file: %s\n", orBundled(c.Catalog.File)))
	b.WriteString(fmt.Sprintf("  catalog.cacheSize: %d\n", c.Catalog.CacheSize))

	b.WriteString("\n--- Checkout ---\n")
	b.WriteString(fmt.Sprintf("  checkout.freeShippingThreshold: %v\n", c.Checkout.FreeShippingThreshold))
	b.WriteString(fmt.Sprintf("  checkout.shippingFee: %v\n", c.Checkout.ShippingFee))
	b.WriteString(fmt.Sprintf("  checkout.taxRate: %v\n", c.Checkout.TaxRate))

	return b.String()
}

func orBundled(file string) string {
	if file == "" {
		return "<bundled>"
	}
	return file
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Nats.Validate(); err != nil {
		return err
	}
	if c.Nats.Enabled {
		if err := c.Subscriber.Validate(); err != nil {
			return err
		}
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if c.Catalog.CacheSize < 0 {
		return fmt.Errorf("catalog.cacheSize must not be negative: %d", c.Catalog.CacheSize)
	}
	if err := c.Checkout.Validate(); err != nil {
		return err
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("storage.key is not configured")
	}
	switch c.Driver {
	case DriverMemory:
	case DriverBadger:
		if c.Badger.Path == "" {
			return fmt.Errorf("storage.badger.path is not configured")
		}
	case DriverRedis:
		if !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
			return fmt.Errorf("storage.redis.url must start with 'redis://': %s", config.MaskURL(c.Redis.URL))
		}
		if c.Redis.Timeout <= 0 {
			return fmt.Errorf("storage.redis.timeout is not configured")
		}
	case DriverPostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Driver)
	}
	if c.Remote() {
		if err := c.Resilience.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *CheckoutConfig) Validate() error {
	if c.FreeShippingThreshold < 0 {
		return fmt.Errorf("checkout.freeShippingThreshold must not be negative")
	}
	if c.ShippingFee < 0 {
		return fmt.Errorf("checkout.shippingFee must not be negative")
	}
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		return fmt.Errorf("checkout.taxRate must be in [0, 1): %v", c.TaxRate)
	}
	return nil
}
