package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
app:
  name: steam-microtxn
  environment: development
steam:
  webkey: test-webkey
app_ticket:
  key: "4242424242424242424242424242424242424242424242424242424242424242"
  app_id: 480
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "test-webkey", cfg.Steam.WebKey)
	assert.True(t, cfg.App.Development())
	assert.Equal(t, uint32(480), cfg.AppTicket.AppID)

	// Defaults fill everything the file left out.
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "https://partner.steam-api.com", cfg.Steam.BaseURL)
	assert.Equal(t, "USD", cfg.Steam.Currency)
	assert.Equal(t, "en", cfg.Steam.Locale)
	assert.Equal(t, 3600000, cfg.AppTicket.MaxAge)
	assert.Equal(t, "configs/products.json", cfg.Catalog.Path)
}

func TestLoadFromFile_MissingWebKey(t *testing.T) {
	path := writeConfigFile(t, `
app:
  environment: production
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steam.webkey is required")
}

func TestLoadFromFile_TicketKeyWithoutAppID(t *testing.T) {
	path := writeConfigFile(t, `
steam:
  webkey: test-webkey
app_ticket:
  key: "42"
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_ticket.app_id is required")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("STEAM_WEBKEY", "env-webkey")
	t.Setenv("STEAM_APP_ID", "730")
	t.Setenv("STEAM_APP_TICKET_KEY", "4242")
	t.Setenv("STEAM_APP_TICKET_TIMEOUT", "60000")

	path := writeConfigFile(t, `
app:
  environment: production
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "env-webkey", cfg.Steam.WebKey)
	assert.Equal(t, uint32(730), cfg.AppTicket.AppID)
	assert.Equal(t, "4242", cfg.AppTicket.Key)
	assert.Equal(t, 60000, cfg.AppTicket.MaxAge)
	assert.False(t, cfg.App.Development())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 10*time.Second, GetDuration(10000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
