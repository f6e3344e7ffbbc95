// Package config resolves storefront settings.
//
// Precedence, lowest first: built-in defaults, an optional YAML file,
// STOREFRONT_* environment variables, then command-line flags (applied by
// the cli package).
package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/stevemurr/storefront/store"
)

// Config is the full settings tree.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Admin    AdminConfig    `yaml:"admin"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type StoreConfig struct {
	Backend     string        `yaml:"backend"`
	DataDir     string        `yaml:"data_dir"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	S3          S3Config      `yaml:"s3"`
	QuotaBytes  int64         `yaml:"quota_bytes"`
	Timeout     time.Duration `yaml:"timeout"`
}

// S3Config uses the SDK's default credential chain unless AccessKeyID is set.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type AdminConfig struct {
	Code       string `yaml:"code"`
	Email      string `yaml:"email"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

type CheckoutConfig struct {
	// ShippingFee is a decimal string, e.g. "10.00".
	ShippingFee string `yaml:"shipping_fee"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

type MetricsConfig struct {
	Namespace  string    `yaml:"namespace"`
	TracerName string    `yaml:"tracer_name"`
	Buckets    []float64 `yaml:"buckets"` // seconds; empty keeps the defaults
}

// Validate rejects bucket lists Prometheus would refuse.
func (m MetricsConfig) Validate() error {
	for i := 1; i < len(m.Buckets); i++ {
		if m.Buckets[i] <= m.Buckets[i-1] {
			return fmt.Errorf("metrics.buckets must be strictly increasing")
		}
	}
	return nil
}

// Backends lists the supported store backends.
var Backends = []string{"json", "sqlite", "memory", "postgres", "s3"}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend: "json",
			DataDir: "./data",
			Timeout: store.DefaultTimeout,
		},
		Admin: AdminConfig{
			Code:     "SECURE_ADMIN_CODE",
			Email:    "admin@example.com",
			Password: "admin123",
			Name:     "Admin User",
		},
		Checkout: CheckoutConfig{ShippingFee: "10.00"},
		Log:      LogConfig{Level: "warn", Format: "text"},
		Metrics:  MetricsConfig{Namespace: "storefront", TracerName: "storefront"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse overlays YAML data onto cfg. Unknown keys are an error.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func applyEnv(c *Config) error {
	c.Store.Backend = env("STOREFRONT_BACKEND", c.Store.Backend)
	c.Store.DataDir = env("STOREFRONT_DATA_DIR", c.Store.DataDir)
	c.Store.PostgresDSN = env("STOREFRONT_POSTGRES_DSN", c.Store.PostgresDSN)
	c.Store.S3.Bucket = env("STOREFRONT_S3_BUCKET", c.Store.S3.Bucket)
	c.Store.S3.Prefix = env("STOREFRONT_S3_PREFIX", c.Store.S3.Prefix)
	c.Store.S3.Region = env("STOREFRONT_S3_REGION", c.Store.S3.Region)
	c.Store.S3.Endpoint = env("STOREFRONT_S3_ENDPOINT", c.Store.S3.Endpoint)
	c.Store.S3.AccessKeyID = env("STOREFRONT_S3_ACCESS_KEY_ID", c.Store.S3.AccessKeyID)
	c.Store.S3.SecretAccessKey = env("STOREFRONT_S3_SECRET_ACCESS_KEY", c.Store.S3.SecretAccessKey)
	c.Admin.Code = env("STOREFRONT_ADMIN_CODE", c.Admin.Code)
	c.Admin.Email = env("STOREFRONT_ADMIN_EMAIL", c.Admin.Email)
	c.Admin.Password = env("STOREFRONT_ADMIN_PASSWORD", c.Admin.Password)
	c.Admin.Name = env("STOREFRONT_ADMIN_NAME", c.Admin.Name)
	c.Checkout.ShippingFee = env("STOREFRONT_SHIPPING_FEE", c.Checkout.ShippingFee)
	c.Log.Level = env("STOREFRONT_LOG_LEVEL", c.Log.Level)
	c.Log.Format = env("STOREFRONT_LOG_FORMAT", c.Log.Format)
	c.Metrics.Namespace = env("STOREFRONT_METRICS_NAMESPACE", c.Metrics.Namespace)
	c.Metrics.TracerName = env("STOREFRONT_TRACER_NAME", c.Metrics.TracerName)

	var err error
	if v := env("STOREFRONT_S3_PATH_STYLE", ""); v != "" {
		if c.Store.S3.PathStyle, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("STOREFRONT_S3_PATH_STYLE: %w", err)
		}
	}
	if v := env("STOREFRONT_QUOTA_BYTES", ""); v != "" {
		if c.Store.QuotaBytes, err = strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("STOREFRONT_QUOTA_BYTES: %w", err)
		}
	}
	if v := env("STOREFRONT_TIMEOUT", ""); v != "" {
		if c.Store.Timeout, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("STOREFRONT_TIMEOUT: %w", err)
		}
	}
	if v := env("STOREFRONT_BCRYPT_COST", ""); v != "" {
		if c.Admin.BcryptCost, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("STOREFRONT_BCRYPT_COST: %w", err)
		}
	}
	return nil
}

// Validate rejects settings the stores cannot run with.
func (c Config) Validate() error {
	known := false
	for _, b := range Backends {
		if c.Store.Backend == b {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown store backend: %q (supported: %s)", c.Store.Backend, strings.Join(Backends, ", "))
	}
	if (c.Store.Backend == "json" || c.Store.Backend == "sqlite") && c.Store.DataDir == "" {
		return fmt.Errorf("data_dir required for %s backend", c.Store.Backend)
	}
	if c.Store.Backend == "postgres" && c.Store.PostgresDSN == "" {
		return fmt.Errorf("postgres_dsn required for postgres backend")
	}
	if c.Store.Backend == "s3" && c.Store.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket required for s3 backend")
	}
	if c.Store.QuotaBytes < 0 {
		return fmt.Errorf("quota_bytes must not be negative")
	}
	if cost := c.Admin.BcryptCost; cost != 0 && (cost < 4 || cost > 31) {
		return fmt.Errorf("bcrypt_cost %d out of range 4..31", cost)
	}
	if _, err := c.ShippingFee(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		return fmt.Errorf("unknown log format %q", f)
	}
	return nil
}

// ShippingFee parses Checkout.ShippingFee.
func (c Config) ShippingFee() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(strings.TrimSpace(c.Checkout.ShippingFee))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid shipping_fee %q: %w", c.Checkout.ShippingFee, err)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("shipping_fee must not be negative")
	}
	return fee, nil
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return l, nil
}

// NewLogger builds the slog logger described by Log, writing to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := c.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// StoreOptions converts Store into the store factory's options.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Backend:     c.Store.Backend,
		DataDir:     c.Store.DataDir,
		PostgresDSN: c.Store.PostgresDSN,
		S3: store.S3Config{
			Bucket:          c.Store.S3.Bucket,
			Prefix:          c.Store.S3.Prefix,
			Region:          c.Store.S3.Region,
			Endpoint:        c.Store.S3.Endpoint,
			PathStyle:       c.Store.S3.PathStyle,
			AccessKeyID:     c.Store.S3.AccessKeyID,
			SecretAccessKey: c.Store.S3.SecretAccessKey,
		},
		Timeout:    c.Store.Timeout,
		QuotaBytes: c.Store.QuotaBytes,
	}
}
