package app

import (
	"net/http"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/jersey-orders/internal/storage/objectstore"
	"github.com/xenking/jersey-orders/pkg/httpmiddleware"
)

// Preview drivers.
const (
	PreviewDriverFS = "fs"
	PreviewDriverS3 = "s3"
)

// Config holds the complete application configuration, loadable from
// environment variables (JERSEY_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8000" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (JERSEY_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	StaticDir   string `default:"static" usage:"Directory served under /static/" flag:"static-dir"`
	TimeZone    string `default:"UTC" usage:"IANA time zone that stats days are counted in" flag:"time-zone"`
	// TrustRequestID keeps well-formed X-Request-ID headers set by a proxy.
	TrustRequestID bool `default:"false" usage:"Keep incoming X-Request-ID headers" flag:"trust-request-id"`
	Preview     PreviewConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// PreviewConfig selects where preview images are written.
type PreviewConfig struct {
	Driver    string `default:"fs" usage:"Preview storage driver: fs or s3"`
	Dir       string `default:"static/images/previews" usage:"Preview directory for the fs driver"`
	URLPrefix string `default:"/static/images/previews" usage:"URL prefix of previews for the fs driver" flag:"preview-url-prefix"`
	S3        objectstore.Config
}

// RedisConfig enables the stats cache when Addr is set.
type RedisConfig struct {
	Addr     string        `default:"" usage:"Redis address, empty disables the stats cache"`
	Password string        `default:"" usage:"Redis password"`
	DB       int           `default:"0" usage:"Redis database number"`
	TTL      time.Duration `default:"15s" usage:"Stats cache TTL"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
// Order creation and the admin API have their own buckets; every other
// path except the health endpoints shares the default one.
type RateLimitConfig struct {
	OrdersMax    int           `default:"30"  usage:"Max order creations per client per window" flag:"rate-limit-orders-max"`
	OrdersWindow time.Duration `default:"1m"  usage:"Order creation window" flag:"rate-limit-orders-window"`
	AdminMax     int           `default:"300" usage:"Max admin API requests per client per window" flag:"rate-limit-admin-max"`
	AdminWindow  time.Duration `default:"1m"  usage:"Admin API window" flag:"rate-limit-admin-window"`
	Max          int           `default:"600" usage:"Max other requests per client per window"`
	Window       time.Duration `default:"1m"  usage:"Default rate limit window"`
	// KeyHeaders are checked in order for the client address before
	// falling back to the connection's remote address.
	KeyHeaders []string `default:"X-Forwarded-For,X-Real-IP" usage:"Headers carrying the client address" flag:"rate-limit-key-headers"`
}

// Paths never rate limited so health checks keep working under load.
var healthPaths = []string{"/health", "/livez", "/readyz"}

// Limits converts the configuration into middleware buckets.
func (c RateLimitConfig) Limits() httpmiddleware.RateLimitConfig {
	return httpmiddleware.RateLimitConfig{
		Rules: []httpmiddleware.RateLimitRule{
			{Name: "orders", Method: http.MethodPost, Prefix: "/api/orders", Max: c.OrdersMax, Window: c.OrdersWindow},
			{Name: "admin", Prefix: "/api/admin/", Max: c.AdminMax, Window: c.AdminWindow},
		},
		Default: httpmiddleware.RateLimitRule{Name: "default", Max: c.Max, Window: c.Window},
		Exempt:  healthPaths,
		KeyFunc: httpmiddleware.ClientKey(c.KeyHeaders...),
	}
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "JERSEY",
		Files:     []string{"config.yaml", "/etc/jersey/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration the server cannot start with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set JERSEY_DATABASE_URL or DATABASE_URL")
	}
	switch c.Preview.Driver {
	case PreviewDriverFS:
		if c.Preview.Dir == "" {
			return errors.New("preview directory is required for the fs driver")
		}
	case PreviewDriverS3:
		if c.Preview.S3.Bucket == "" {
			return errors.New("preview bucket is required for the s3 driver")
		}
	default:
		return errors.Errorf("unknown preview driver %q", c.Preview.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone. An empty zone is UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "time zone %q", c.TimeZone)
	}
	return loc, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's JERSEY_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8000" {
		c.Addr = "0.0.0.0:" + port
	}
}
