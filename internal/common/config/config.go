// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Steam     SteamConfig     `mapstructure:"steam"`
	AppTicket AppTicketConfig `mapstructure:"app_ticket"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// Development reports whether the service runs with the sandbox settlement
// endpoints and verbose error bodies.
func (a AppConfig) Development() bool {
	return a.Environment == "development" || a.Environment == "test"
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SteamConfig holds the settlement API credentials and call options.
type SteamConfig struct {
	WebKey   string `mapstructure:"webkey"`
	BaseURL  string `mapstructure:"base_url"`
	Currency string `mapstructure:"currency"`
	Locale   string `mapstructure:"locale"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds, per outbound call
}

// AppTicketConfig holds the ownership ticket verification settings.
type AppTicketConfig struct {
	Key    string `mapstructure:"key"`     // hex-encoded decryption key
	AppID  uint32 `mapstructure:"app_id"`  // expected application id
	MaxAge int    `mapstructure:"max_age"` // milliseconds since ticket issuance
}

// CatalogConfig points at the static product definition file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
