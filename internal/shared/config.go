package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/peai/internal/validation"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Chat     ChatConfig     `toml:"chat"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig contains HTTP server settings. Timeouts are in seconds.
type ServerConfig struct {
	Host            string  `toml:"host"`
	Port            int     `toml:"port" validate:"min=1,max=65535"`
	BaseURL         string  `toml:"base_url" validate:"required,http_url"`
	ReadTimeout     int     `toml:"read_timeout" validate:"gte=0"`
	WriteTimeout    int     `toml:"write_timeout" validate:"gte=0"`
	IdleTimeout     int     `toml:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout int     `toml:"shutdown_timeout" validate:"gte=0"`
	RateLimitRPS    float64 `toml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst  int     `toml:"rate_limit_burst" validate:"gte=0"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `toml:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains the identity provider credentials and session settings.
type AuthConfig struct {
	Provider        string   `toml:"provider" validate:"oneof=auth0"`
	Domain          string   `toml:"domain"`
	ClientID        string   `toml:"client_id"`
	ClientSecret    string   `toml:"client_secret"`
	RedirectURI     string   `toml:"redirect_uri"`
	Scopes          []string `toml:"scopes"`
	SessionKey      string   `toml:"session_key" validate:"omitempty,hexadecimal,len=64"`
	SessionTTLHours int      `toml:"session_ttl_hours" validate:"min=1"`
	CookieSecure    bool     `toml:"cookie_secure"`
}

// CatalogConfig points at the lesson fixture and names the course it describes.
type CatalogConfig struct {
	Path        string `toml:"path"`
	Course      string `toml:"course" validate:"required"`
	Title       string `toml:"title" validate:"required"`
	Description string `toml:"description"`
}

// ChatConfig selects and tunes the Q&A responder.
type ChatConfig struct {
	Provider          string  `toml:"provider" validate:"oneof=mock gemini"`
	APIKey            string  `toml:"api_key"`
	Model             string  `toml:"model"`
	LatencyMS         int     `toml:"latency_ms" validate:"gte=0"`
	FailureRate       float64 `toml:"failure_rate" validate:"gte=0,lte=1"`
	MessagesPerMinute int     `toml:"messages_per_minute" validate:"gte=0"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=debug info warn error fatal"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Seconds converts a config value in seconds into a [time.Duration].
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// SessionTTL returns the configured session lifetime.
func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLHours) * time.Hour
}

// Latency returns the configured mock responder delay.
func (c ChatConfig) Latency() time.Duration {
	return time.Duration(c.LatencyMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults from the embedded example config,
// and secrets set in the environment override the file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv()
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// LoadOrDefault loads the config at path when it exists and falls back to [DefaultConfig] otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		config := DefaultConfig()
		config.ApplyEnv()
		return config, nil
	}
	return LoadConfig(path)
}

// ApplyEnv overrides secrets from PEAI_AUTH_CLIENT_SECRET, PEAI_SESSION_KEY and GEMINI_API_KEY.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PEAI_AUTH_CLIENT_SECRET"); v != "" {
		c.Auth.ClientSecret = v
	}
	if v := os.Getenv("PEAI_SESSION_KEY"); v != "" {
		c.Auth.SessionKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Chat.APIKey = v
	}
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if err := validation.New().Validate(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Chat.Provider == "gemini" && c.Chat.APIKey == "" {
		return fmt.Errorf("%w: chat.api_key is required for the gemini provider", ErrMissingCredentials)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(config *Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
