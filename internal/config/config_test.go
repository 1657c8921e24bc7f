package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(filepath.Join(dir, "missing.json"), "", nil)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.Development())
	assert.Equal(t, "https://api.airtable.com", cfg.AirtableURL)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.True(t, cfg.AutoMigrate)
}

func TestLoad_Layering(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "basemap.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"port": "9000",
		"env": "production",
		"stripePriceId": "price_json",
		"geminiModel": "gemini-json"
	}`), 0o600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		"BASEMAP_STRIPE_PRICE_ID=price_dotenv\nBASEMAP_SUPABASE_URL=https://proj.supabase.co\nBASEMAP_LOG_LEVEL=warn\n",
	), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("BASEMAP_STRIPE_PRICE_ID")
		os.Unsetenv("BASEMAP_SUPABASE_URL")
	})
	// process env wins over .env
	t.Setenv("BASEMAP_LOG_LEVEL", "debug")

	cfg, err := load(jsonPath, envPath, []string{"-port", "7000", "--app-url=https://basemap.dev/"})
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.False(t, cfg.Development())
	assert.Equal(t, "price_dotenv", cfg.StripePriceID)
	assert.Equal(t, "https://proj.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "gemini-json", cfg.GeminiModel)
	assert.Equal(t, "https://basemap.dev", cfg.AppURL)
}

func TestLoad_ConfigFlag(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "other.json")
	require.NoError(t, os.WriteFile(other, []byte(`{"exportDir":"out","autoMigrate":false}`), 0o600))

	cfg, err := load(filepath.Join(dir, "basemap.json"), "", []string{"-config=" + other})
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.ExportDir)
	assert.False(t, cfg.AutoMigrate)
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basemap.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := load(path, "", nil)
	assert.Error(t, err)
}
