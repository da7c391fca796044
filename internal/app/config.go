package app

import (
	"net/url"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Store kinds accepted by StoreConfig.Kind.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// APIConfig describes the remote product API.
type APIConfig struct {
	BaseURL      string        `env:"BASE_URL" flag:"base-url" usage:"Product API root, e.g. http://shop.example"`
	ImageBaseURL string        `env:"IMAGE_BASE_URL" flag:"image-base-url" default:"" usage:"Root for product image paths (defaults to the API root)"`
	Timeout      time.Duration `default:"0s" usage:"Per-request timeout, 0 disables it"`
	Currency     string        `default:"Rs" usage:"Currency label prefixed to prices"`
}

// StoreConfig selects the local preferences store holding the token.
type StoreConfig struct {
	Kind        string `default:"file" usage:"Token store: file, memory, redis or postgres"`
	Path        string `default:"prefs.json" usage:"Preferences file for the file store"`
	RedisAddr   string `env:"REDIS_ADDR" flag:"redis-addr" default:"localhost:6379" usage:"Redis address for the redis store"`
	RedisPrefix string `env:"REDIS_PREFIX" flag:"redis-prefix" default:"prefs:" usage:"Key prefix for the redis store"`
	DatabaseURL string `env:"DATABASE_URL" flag:"database-url" usage:"PostgreSQL connection URL for the postgres store"`
}

// ServerConfig holds the detail-server configuration, loadable from
// environment variables (DETAIL_ prefix), flags, or YAML config files.
type ServerConfig struct {
	Addr      string `default:"0.0.0.0:8080" usage:"Listen address"`
	API       APIConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"60" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// CLIConfig configures the product-detail command.
type CLIConfig struct {
	ProductID int64 `env:"PRODUCT_ID" flag:"product-id" usage:"Product to load"`
	Indent    int   `default:"2" usage:"JSON indentation, 0 for compact output"`
	API       APIConfig
	Store     StoreConfig
}

// TokenConfig configures the token-store command.
type TokenConfig struct {
	Token string `usage:"Token to store"`
	Clear bool   `default:"false" usage:"Remove the stored token"`
	Store StoreConfig
}

// LoadServerConfig loads and validates the detail-server configuration.
func LoadServerConfig() (*ServerConfig, error) {
	return loadServerConfig(false)
}

func loadServerConfig(skipFlags bool) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := load(&cfg, skipFlags); err != nil {
		return nil, err
	}
	cfg.applyPlatformDefaults()
	if err := cfg.API.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadCLIConfig loads and validates the product-detail configuration.
func LoadCLIConfig() (*CLIConfig, error) {
	return loadCLIConfig(false)
}

func loadCLIConfig(skipFlags bool) (*CLIConfig, error) {
	var cfg CLIConfig
	if err := load(&cfg, skipFlags); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadTokenConfig loads and validates the token-store configuration.
func LoadTokenConfig() (*TokenConfig, error) {
	return loadTokenConfig(false)
}

func loadTokenConfig(skipFlags bool) (*TokenConfig, error) {
	var cfg TokenConfig
	if err := load(&cfg, skipFlags); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func load(dst any, skipFlags bool) error {
	loader := aconfig.LoaderFor(dst, aconfig.Config{
		EnvPrefix: "DETAIL",
		SkipFlags: skipFlags,
		Files:     []string{"config.yaml", "/etc/product-detail/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return errors.Wrap(err, "load config")
	}
	return nil
}

// Validate checks that the API root is an absolute http(s) URL.
func (c APIConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("api base URL is required: set DETAIL_API_BASE_URL")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.Wrap(err, "parse api base URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("api base URL %q must be an absolute http(s) URL", c.BaseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" || u.ForceQuery {
		return errors.Errorf("api base URL %q must not carry a query or fragment", c.BaseURL)
	}
	if c.Timeout < 0 {
		return errors.New("api timeout must not be negative")
	}
	return nil
}

// ImageRoot returns the base for image paths.
func (c APIConfig) ImageRoot() string {
	if c.ImageBaseURL != "" {
		return c.ImageBaseURL
	}
	return c.BaseURL
}

// Validate checks that the selected store has what it needs.
func (c StoreConfig) Validate() error {
	switch c.Kind {
	case StoreMemory:
	case StoreFile:
		if c.Path == "" {
			return errors.New("store path is required for the file store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("redis address is required for the redis store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for the postgres store")
		}
	default:
		return errors.Errorf("unknown store kind %q", c.Kind)
	}
	return nil
}

// Validate checks the product id and the nested sections.
func (c CLIConfig) Validate() error {
	if c.ProductID <= 0 {
		return errors.Errorf("product id must be positive, got %d: set --product-id", c.ProductID)
	}
	if c.Indent < 0 {
		return errors.New("indent must not be negative")
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	return c.Store.Validate()
}

// Validate checks that exactly one action was requested.
func (c TokenConfig) Validate() error {
	if c.Clear == (c.Token != "") {
		return errors.New("set exactly one of --token or --clear")
	}
	if c.Store.Kind == StoreMemory {
		return errors.New("the memory store cannot persist a token")
	}
	return c.Store.Validate()
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT to the DETAIL_-prefixed
// configuration.
func (c *ServerConfig) applyPlatformDefaults() {
	if c.Store.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Store.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
