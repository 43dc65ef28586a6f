package client

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/data-validator/data-validator/internal/util"
	"github.com/data-validator/data-validator/pkg/version"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/yaml"
)

const (
	// TestRootDirEnvKey is the environment variable key used to set the file system root when testing.
	TestRootDirEnvKey = "DATA_VALIDATOR_TEST_ROOT_DIR"
)

// Config holds the information needed to connect to a data-validator API.
type Config struct {
	Service Service `json:"service"`

	// testRootDir is the root directory for test files.
	testRootDir string `json:"-"`
}

// Service contains information how to connect to and authenticate with the API.
type Service struct {
	// Server is the API base URL, including the /api prefix.
	Server string `json:"server"`
	Token  string `json:"token,omitempty"`
	// Timeout bounds every request, e.g. "45s". Zero keeps the default.
	Timeout util.Duration `json:"timeout,omitempty"`
}

func (c *Config) Equal(c2 *Config) bool {
	if c == c2 {
		return true
	}
	if c == nil || c2 == nil {
		return false
	}
	return c.Service == c2.Service
}

func NewDefault() *Config {
	c := &Config{}

	if value := os.Getenv(TestRootDirEnvKey); value != "" {
		c.testRootDir = filepath.Clean(value)
	}

	return c
}

// Clientset groups the resource clients sharing one transport.
type Clientset struct {
	Transport  *Transport
	Datasets   *DatasetClient
	Validation *ValidationClient
	Health     *HealthClient
}

func NewClientset(t *Transport) *Clientset {
	return &Clientset{
		Transport:  t,
		Datasets:   NewDatasetClient(t),
		Validation: NewValidationClient(t),
		Health:     NewHealthClient(t),
	}
}

// NewFromConfig returns a clientset talking to the configured server. A
// timeout in the config wins over the given one.
func NewFromConfig(config *Config, timeout time.Duration, opts ...Option) (*Clientset, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Service.Timeout > 0 {
		timeout = config.Service.Timeout.Duration()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := []Option{
		WithHTTPClient(newHTTPClient(timeout)),
		WithHeader("User-Agent", UserAgent()),
	}
	if config.Service.Token != "" {
		base = append(base, WithToken(config.Service.Token))
	}
	return NewClientset(NewTransport(config.Service.Server, append(base, opts...)...)), nil
}

// UserAgent identifies dvctl and its version to the API.
func UserAgent() string {
	return fmt.Sprintf("dvctl/%s", version.Get().GitVersion)
}

// DefaultClientConfigPath returns the default path to the client config file.
func DefaultClientConfigPath() string {
	return filepath.Join(homedir.HomeDir(), ".data-validator", "client.yaml")
}

func (c *Config) path(filename string) string {
	if c.testRootDir == "" {
		return filename
	}
	return filepath.Join(c.testRootDir, filename)
}

func ParseConfigFile(filename string) (*Config, error) {
	config := NewDefault()
	contents, err := os.ReadFile(config.path(filename))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(contents, config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// WriteConfig writes a client config file using the given parameters.
func WriteConfig(filename string, server string, token string) error {
	config := NewDefault()
	config.Service = Service{
		Server: server,
		Token:  token,
	}
	if err := config.Validate(); err != nil {
		return err
	}
	return config.Persist(filename)
}

func (c *Config) Persist(filename string) error {
	contents, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	filename = c.path(filename)
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.WriteFile(filename, contents, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	validationErrors := validateService(c.Service)
	if len(validationErrors) > 0 {
		return fmt.Errorf("invalid configuration: %v", utilerrors.NewAggregate(validationErrors).Error())
	}
	return nil
}

func validateService(service Service) []error {
	validationErrors := make([]error, 0)
	if len(service.Server) == 0 {
		validationErrors = append(validationErrors, fmt.Errorf("no server found"))
		return validationErrors
	}
	u, err := url.Parse(service.Server)
	if err != nil {
		validationErrors = append(validationErrors, fmt.Errorf("invalid server format %q: %w", service.Server, err))
		return validationErrors
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		validationErrors = append(validationErrors, fmt.Errorf("invalid server format %q: scheme must be http or https", service.Server))
	}
	if len(u.Hostname()) == 0 {
		validationErrors = append(validationErrors, fmt.Errorf("invalid server format %q: no hostname", service.Server))
	}
	return validationErrors
}
