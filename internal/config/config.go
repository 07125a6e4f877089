package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
)

// Config is the application configuration.
type Config struct {
	Environment string        `yaml:"environment"`
	Logging     LoggingConfig `yaml:"logging"`
	Server      ServerConfig  `yaml:"server"`
	Journal     JournalConfig `yaml:"journal"`
	Forward     ForwardConfig `yaml:"forward"`

	// Render is built from the render section when the file is loaded.
	Render RenderConfig `yaml:"-"`

	source MapSource
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the demo HTTP server.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsPath string `yaml:"metrics_path"`
}

// JournalConfig configures the SQLite fault journal.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Path          string        `yaml:"path"`
	Retention     time.Duration `yaml:"retention"`
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// ForwardConfig configures NATS JetStream forwarding.
type ForwardConfig struct {
	Enabled    bool          `yaml:"enabled"`
	URL        string        `yaml:"url"`
	Subject    string        `yaml:"subject"`
	Backoff    string        `yaml:"backoff"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	MaxRetries int           `yaml:"max_retries"`
}

// Source returns the flattened document the config was loaded from.
func (c *Config) Source() Source {
	if c.source == nil {
		return MapSource{}
	}
	return c.source
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	return parse(nil)
}

// Load reads path, expanding ${VAR} references before parsing. Env files are
// loaded first so they can feed the expansion.
func Load(path string) (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to load env file").Build()
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ferrors.ConfigError(fmt.Sprintf("configuration file not found: %s", path)).Build()
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", path).
			Build()
	}
	return parse([]byte(os.ExpandEnv(string(data))))
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").Build()
	}
	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").Build()
	}
	cfg.source = NewMapSource(doc)

	render, err := NewRenderConfig(cfg.source)
	if err != nil {
		return nil, err
	}
	cfg.Render = render
	cfg.applyDefaults()
	return &cfg, nil
}

// Defaults for infrastructure sections.
const (
	DefaultAddr          = ":8080"
	DefaultMetricsPath   = "/metrics"
	DefaultJournalPath   = "faults.db"
	DefaultRetention     = 7 * 24 * time.Hour
	DefaultPruneInterval = time.Hour
	DefaultSubject       = "faultline.faults"
)

func (c *Config) applyDefaults() {
	c.Environment = string(c.Render.Environment)
	c.Logging.Level = string(NormalizeLogLevel(c.Logging.Level))
	c.Logging.Format = string(NormalizeLogFormat(c.Logging.Format))
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
	if c.Journal.Path == "" {
		c.Journal.Path = DefaultJournalPath
	}
	if c.Journal.Retention <= 0 {
		c.Journal.Retention = DefaultRetention
	}
	if c.Journal.PruneInterval <= 0 {
		c.Journal.PruneInterval = DefaultPruneInterval
	}
	if c.Forward.Subject == "" {
		c.Forward.Subject = DefaultSubject
	}
}

// Init writes an example configuration file to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path)).Build()
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to write config file").Build()
	}
	return nil
}

const exampleConfig = `environment: ${FAULTLINE_ENV}
logging:
  level: info
  format: text
render:
  mode: full
  display: false
  convert_recoverable_to_fatal: false
  debug_panel: true
  snippet_radius: 5
  log:
    enabled: true
    threshold: ALL
  templates:
    full: templates/full.html
    overlay: templates/overlay.html
  fallback_template: templates/error.html
server:
  addr: ":8080"
  metrics_path: /metrics
journal:
  enabled: false
  path: faults.db
  retention: 168h
  prune_interval: 1h
forward:
  enabled: false
  url: nats://127.0.0.1:4222
  subject: faultline.faults
  backoff: exponential
  retry_delay: 200ms
  max_retries: 3
`
