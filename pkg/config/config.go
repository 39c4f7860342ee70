package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/weftworks/weft/pkg/logger"
)

// ============================================================================
// TOP-LEVEL CONFIG
// ============================================================================

// Config is the root configuration for a weft process.
//
// The same file drives both the server (`weft serve`) and the client
// commands (`weft card`, `weft invoke`, `weft health`); each side reads
// only its own section.
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Logging logger.Config `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SetDefaults applies defaults to all sections.
func (c *Config) SetDefaults() {
	c.Agent.SetDefaults()
	c.Server.SetDefaults()
	c.Client.SetDefaults()
	c.Logging.SetDefaults()
	c.Metrics.SetDefaults()
}

// Validate checks the full configuration tree.
func (c *Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// ============================================================================
// AGENT IDENTITY
// ============================================================================

// AgentConfig describes the agent identity published on the agent card.
type AgentConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
	Provider    string `yaml:"provider"`
	DocsURL     string `yaml:"docs_url"`

	// InputModes and OutputModes override the default text/json modalities.
	InputModes  []string `yaml:"input_modes"`
	OutputModes []string `yaml:"output_modes"`
}

func (c *AgentConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "weft-agent"
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
}

func (c *AgentConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// ============================================================================
// SERVER
// ============================================================================

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// BaseURL is the externally visible URL advertised on the agent card.
	// Defaults to http://<host>:<port>.
	BaseURL string `yaml:"base_url"`

	// CardMaxAge controls the Cache-Control max-age on the agent card.
	CardMaxAge time.Duration `yaml:"card_max_age"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Auth ServerAuthConfig `yaml:"auth"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("http://%s:%d", c.Host, c.Port)
	}
	if c.CardMaxAge == 0 {
		c.CardMaxAge = 5 * time.Minute
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	// WriteTimeout stays zero by default: SSE responses can outlive any
	// fixed write deadline.
}

func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", c.Port)
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url %q: %w", c.BaseURL, err)
	}
	return c.Auth.Validate()
}

// ServerAuthConfig configures JWT validation on incoming requests.
type ServerAuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	JWKSURL  string `yaml:"jwks_url"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

func (c *ServerAuthConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.JWKSURL == "" {
		return fmt.Errorf("jwks_url is required when auth is enabled")
	}
	return nil
}

// ============================================================================
// CLIENT
// ============================================================================

// ClientConfig configures outbound agent connections.
type ClientConfig struct {
	// BaseURL is the default remote agent to talk to.
	BaseURL string `yaml:"base_url"`

	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`

	// CardTTL controls how long fetched agent cards stay cached.
	CardTTL time.Duration `yaml:"card_ttl"`

	// PoolSize bounds concurrent connections to a single agent.
	PoolSize int `yaml:"pool_size"`

	Auth ClientAuthConfig `yaml:"auth"`
}

func (c *ClientConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.CardTTL == 0 {
		c.CardTTL = 5 * time.Minute
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
}

func (c *ClientConfig) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("pool_size must be at least 1, got %d", c.PoolSize)
	}
	return c.Auth.Validate()
}

// ClientAuthConfig selects the credential scheme for outbound requests.
type ClientAuthConfig struct {
	// Scheme is one of: bearer, api_key, oauth2, basic.
	Scheme string `yaml:"scheme"`

	// Token carries the bearer/api_key/oauth2 credential.
	// Supports ${VAR} expansion so secrets stay out of config files.
	Token string `yaml:"token"`

	// Header overrides the api_key header name (default X-API-Key).
	Header string `yaml:"header"`

	// Username/Password are used by the basic scheme.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func (c *ClientAuthConfig) Validate() error {
	switch c.Scheme {
	case "", "bearer", "api_key", "oauth2", "basic":
		return nil
	default:
		return fmt.Errorf("unknown auth scheme %q", c.Scheme)
	}
}

// ============================================================================
// METRICS
// ============================================================================

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func (c *MetricsConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
