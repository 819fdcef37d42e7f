// ABOUTME: Configuration loading and parsing for the relay binaries
// ABOUTME: YAML with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration shared by the connector and the
// interceptor. Each binary reads the sections it needs.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Dialogflow DialogflowConfig `yaml:"dialogflow"`
	CORS       CORSConfig       `yaml:"cors"`
	Dedupe     DedupeConfig     `yaml:"dedupe"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// RedisConfig locates the shared registry and routing channel database.
type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port dial address.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig holds session token and registration-check configuration.
type AuthConfig struct {
	// Option selects the registration credential check: "skip" or
	// "salesforce".
	Option string `yaml:"option"`

	// JWTSecret is the HS256 signing secret, typically injected via
	// ${VAR} expansion. JWTSecretPath reads it from a mounted secret
	// file instead; the inline value wins when both are set.
	JWTSecret     string `yaml:"jwt_secret"`
	JWTSecretPath string `yaml:"jwt_secret_path"`

	// SalesforceUserInfoURL overrides the token validation endpoint for
	// the salesforce option.
	SalesforceUserInfoURL string `yaml:"salesforce_userinfo_url"`

	TokenLifetime time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TokenLifetimeRaw string `yaml:"token_lifetime"`
}

// Secret resolves the signing secret from the inline value or the secret
// file.
func (a AuthConfig) Secret() ([]byte, error) {
	if a.JWTSecret != "" {
		return []byte(a.JWTSecret), nil
	}
	if a.JWTSecretPath == "" {
		return nil, fmt.Errorf("auth.jwt_secret or auth.jwt_secret_path is required")
	}
	data, err := os.ReadFile(a.JWTSecretPath)
	if err != nil {
		return nil, fmt.Errorf("reading jwt secret file: %w", err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return nil, fmt.Errorf("jwt secret file %s is empty", a.JWTSecretPath)
	}
	return []byte(secret), nil
}

// DialogflowConfig identifies the conversational backend deployment.
// ProjectID is also the project claim stamped into session tokens;
// Enabled additionally mounts the authenticated API proxy, which needs
// application default credentials at startup.
type DialogflowConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ProjectID string `yaml:"project_id"`
}

// CORSConfig lists the origins allowed to reach the connector.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DedupeConfig bounds the interceptor's redelivery suppression window.
type DedupeConfig struct {
	MaxSize int           `yaml:"max_size"`
	TTL     time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TTLRaw string `yaml:"ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a configuration file from the given path and returns a
// parsed Config. Environment variables in the format ${VAR_NAME} are
// expanded. Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in values the file may omit.
func (c *Config) applyDefaults() {
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Auth.Option == "" {
		c.Auth.Option = "skip"
	}
	if c.Auth.TokenLifetimeRaw == "" {
		c.Auth.TokenLifetimeRaw = "60m"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if c.Dedupe.MaxSize == 0 {
		c.Dedupe.MaxSize = 10000
	}
	if c.Dedupe.TTLRaw == "" {
		c.Dedupe.TTLRaw = "10m"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure
// encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	switch c.Auth.Option {
	case "skip", "salesforce":
	default:
		return fmt.Errorf("auth.option must be \"skip\" or \"salesforce\", got %q", c.Auth.Option)
	}

	if c.Dialogflow.Enabled && c.Dialogflow.ProjectID == "" {
		return fmt.Errorf("dialogflow.project_id is required when dialogflow.enabled is set")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration
// values.
func parseDurations(cfg *Config) error {
	var err error

	cfg.Auth.TokenLifetime, err = time.ParseDuration(cfg.Auth.TokenLifetimeRaw)
	if err != nil {
		return fmt.Errorf("parsing token_lifetime %q: %w", cfg.Auth.TokenLifetimeRaw, err)
	}

	cfg.Dedupe.TTL, err = time.ParseDuration(cfg.Dedupe.TTLRaw)
	if err != nil {
		return fmt.Errorf("parsing dedupe ttl %q: %w", cfg.Dedupe.TTLRaw, err)
	}

	return nil
}
