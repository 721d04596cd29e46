package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "leakstopper.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "anthropic", cfg.Message.Provider)
	assert.Equal(t, "SaaS", cfg.Message.Sector)
	assert.Equal(t, 400, cfg.Message.MaxChars)
	assert.Equal(t, 3, cfg.Message.Concurrency)
	assert.InDelta(t, 1.0, cfg.Message.RequestsPerSecond, 0.001)
	assert.Equal(t, 90, cfg.Engine.ThresholdDays)
	assert.InDelta(t, 0.0, cfg.Engine.MinSpending, 0.001)
	assert.Equal(t, "all", cfg.Engine.RiskLevel)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/leakstopper
message:
  provider: gemini
  company_name: Acme Health
  sector: Pharma
engine:
  threshold_days: 60
  min_spending: 250.5
  risk_level: high
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/leakstopper", cfg.Store.DatabaseURL)
	assert.Equal(t, "gemini", cfg.Message.Provider)
	assert.Equal(t, "Acme Health", cfg.Message.CompanyName)
	assert.Equal(t, "Pharma", cfg.Message.Sector)
	assert.Equal(t, 60, cfg.Engine.ThresholdDays)
	assert.InDelta(t, 250.5, cfg.Engine.MinSpending, 0.001)
	assert.Equal(t, "high", cfg.Engine.RiskLevel)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LEAKSTOPPER_ANTHROPIC_KEY", "sk-test-key")
	t.Setenv("LEAKSTOPPER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test-key", cfg.Anthropic.Key)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	assert.Error(t, err)
}
