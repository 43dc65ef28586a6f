package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"

	// DevelopmentAPIURL is the API base used when nothing else is configured
	// in development mode.
	DevelopmentAPIURL = "http://localhost:8000/api"
	// ProductionAPIPath is resolved against Service.Origin in production mode.
	ProductionAPIPath = "/api"

	envPrefix = "DATA_VALIDATOR"
)

var singleConfig *Config = nil

type Config struct {
	Service  *svcConfig
	Poll     *pollConfig
	Storage  *storageConfig
	Watch    *watchConfig
	Database *dbConfig
	Auth     *authConfig
}

type svcConfig struct {
	APIURL      string        `envconfig:"DATA_VALIDATOR_API_URL" default:""`
	Origin      string        `envconfig:"DATA_VALIDATOR_ORIGIN" default:""`
	Environment string        `envconfig:"DATA_VALIDATOR_ENV" default:"development"`
	LogLevel    string        `envconfig:"DATA_VALIDATOR_LOG_LEVEL" default:"warn"`
	Token       string        `envconfig:"DATA_VALIDATOR_TOKEN" default:""`
	HTTPTimeout time.Duration `envconfig:"DATA_VALIDATOR_HTTP_TIMEOUT" default:"30s"`
	DevDelay    bool          `envconfig:"DATA_VALIDATOR_DEV_DELAY" default:"true"`
	DevDelayMin time.Duration `envconfig:"DATA_VALIDATOR_DEV_DELAY_MIN" default:"100ms"`
	DevDelayMax time.Duration `envconfig:"DATA_VALIDATOR_DEV_DELAY_MAX" default:"300ms"`
}

type pollConfig struct {
	Initial     time.Duration `envconfig:"DATA_VALIDATOR_POLL_INITIAL" default:"250ms"`
	MaxInterval time.Duration `envconfig:"DATA_VALIDATOR_POLL_MAX_INTERVAL" default:"2s"`
	Timeout     time.Duration `envconfig:"DATA_VALIDATOR_POLL_TIMEOUT" default:"30s"`
}

type storageConfig struct {
	Endpoint  string `envconfig:"DATA_VALIDATOR_S3_ENDPOINT" default:""`
	AccessKey string `envconfig:"DATA_VALIDATOR_S3_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"DATA_VALIDATOR_S3_SECRET_KEY" default:""`
	UseSSL    bool   `envconfig:"DATA_VALIDATOR_S3_USE_SSL" default:"true"`
}

// dbConfig selects the dev-server store: empty keeps it in memory,
// otherwise "sqlite:<path>" or a postgres:// URL.
type dbConfig struct {
	DSN string `envconfig:"DATA_VALIDATOR_DB_DSN" default:""`
}

type authConfig struct {
	Type    string `envconfig:"DATA_VALIDATOR_AUTH_TYPE" default:"none"`
	Secret  string `envconfig:"DATA_VALIDATOR_AUTH_SECRET" default:""`
	JWKSURL string `envconfig:"DATA_VALIDATOR_AUTH_JWKS_URL" default:""`
}

type watchConfig struct {
	Interval       time.Duration `envconfig:"DATA_VALIDATOR_WATCH_INTERVAL" default:"5m"`
	MetricsAddress string        `envconfig:"DATA_VALIDATOR_METRICS_ADDRESS" default:":9464"`
	EventsSink     string        `envconfig:"DATA_VALIDATOR_EVENTS_SINK" default:""`
}

// New reads the configuration from the environment once and returns the
// cached value afterwards.
func New() (*Config, error) {
	if singleConfig == nil {
		cfg, err := Load()
		if err != nil {
			return nil, err
		}
		singleConfig = cfg
	}
	return singleConfig, nil
}

// Load reads the configuration from the environment without caching.
func Load() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Service.Environment {
	case EnvironmentDevelopment, EnvironmentProduction:
	default:
		return fmt.Errorf("%s_ENV must be %q or %q, got %q", envPrefix, EnvironmentDevelopment, EnvironmentProduction, c.Service.Environment)
	}
	if c.Service.DevDelayMin > c.Service.DevDelayMax {
		return fmt.Errorf("dev delay min %s is greater than max %s", c.Service.DevDelayMin, c.Service.DevDelayMax)
	}
	if c.Poll.Initial <= 0 || c.Poll.MaxInterval <= 0 || c.Poll.Timeout <= 0 {
		return fmt.Errorf("poll durations must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Service.Environment == EnvironmentDevelopment
}

// APIBaseURL resolves the API base: explicit URL first, then the default of
// the current environment.
func (c *Config) APIBaseURL() (string, error) {
	if c.Service.APIURL != "" {
		return strings.TrimRight(c.Service.APIURL, "/"), nil
	}
	if c.IsDevelopment() {
		return DevelopmentAPIURL, nil
	}
	if c.Service.Origin == "" {
		return "", fmt.Errorf("%s_ORIGIN is required to resolve %s in production", envPrefix, ProductionAPIPath)
	}
	origin, err := url.Parse(c.Service.Origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", c.Service.Origin, err)
	}
	return strings.TrimRight(origin.ResolveReference(&url.URL{Path: ProductionAPIPath}).String(), "/"), nil
}
