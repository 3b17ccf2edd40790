// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like STEAM_WEBKEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overrides, ignored when absent
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Steam.WebKey == "" {
		if val := os.Getenv("STEAM_WEBKEY"); val != "" {
			cfg.Steam.WebKey = val
		}
	}
	if cfg.Steam.Currency == "" {
		if val := os.Getenv("STEAM_CURRENCY"); val != "" {
			cfg.Steam.Currency = val
		}
	}
	if cfg.Steam.Locale == "" {
		if val := os.Getenv("STEAM_ITEM_LOCALE"); val != "" {
			cfg.Steam.Locale = val
		}
	}

	if cfg.AppTicket.Key == "" {
		if val := os.Getenv("STEAM_APP_TICKET_KEY"); val != "" {
			cfg.AppTicket.Key = val
		}
	}
	if cfg.AppTicket.AppID == 0 {
		if val := os.Getenv("STEAM_APP_ID"); val != "" {
			if id, err := strconv.ParseUint(val, 10, 32); err == nil {
				cfg.AppTicket.AppID = uint32(id)
			}
		}
	}
	if cfg.AppTicket.MaxAge == 0 {
		if val := os.Getenv("STEAM_APP_TICKET_TIMEOUT"); val != "" {
			if ms, err := strconv.Atoi(val); err == nil {
				cfg.AppTicket.MaxAge = ms
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "steam-microtxn"
	}

	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15000
	}

	// Settlement call defaults
	if cfg.Steam.BaseURL == "" {
		cfg.Steam.BaseURL = "https://partner.steam-api.com"
	}
	if cfg.Steam.Currency == "" {
		cfg.Steam.Currency = "USD"
	}
	if cfg.Steam.Locale == "" {
		cfg.Steam.Locale = "en"
	}
	if cfg.Steam.Timeout == 0 {
		cfg.Steam.Timeout = 10000
	}

	if cfg.AppTicket.MaxAge == 0 {
		cfg.AppTicket.MaxAge = 3600000
	}

	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "configs/products.json"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Steam.WebKey == "" {
		return fmt.Errorf("steam.webkey is required")
	}

	if cfg.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}

	// The ticket routes only work with a key and an expected app id; a key
	// without the id would accept tickets from any application.
	if cfg.AppTicket.Key != "" && cfg.AppTicket.AppID == 0 {
		return fmt.Errorf("app_ticket.app_id is required when app_ticket.key is set")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
