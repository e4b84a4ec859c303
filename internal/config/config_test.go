package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 50, cfg.Retrieval.ChunkOverlap)
	assert.Equal(t, OverlapUnitWords, cfg.Retrieval.OverlapUnit)
	assert.Equal(t, 5, cfg.Retrieval.DefaultLimit)
	assert.Equal(t, 30, cfg.Ingest.WebTimeoutSeconds)
	assert.Equal(t, ProviderGemini, cfg.Provider.Kind)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes())
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	path := writeFile(t, "config.toml", `
[app]
port = 9000

[provider]
kind = "openai"

[retrieval]
chunk_size = 300
overlap_unit = "characters"
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("CHUNK_OVERLAP", "20")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.HTTPAddr())
	assert.Equal(t, ProviderOpenAI, cfg.Provider.Kind)
	assert.Equal(t, 300, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 20, cfg.Retrieval.ChunkOverlap)
	assert.Equal(t, OverlapUnitCharacters, cfg.Retrieval.OverlapUnit)
}

func TestLoad_DotEnvFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	envPath := writeFile(t, ".env", "SECONDBRAIN_TEST_DB=notes\n")
	t.Setenv("ENV_FILE", envPath)
	t.Cleanup(func() { _ = os.Unsetenv("SECONDBRAIN_TEST_DB") })

	_, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "notes", os.Getenv("SECONDBRAIN_TEST_DB"))
}

func TestValidate(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Provider.Kind = "mystery"
		assert.ErrorContains(t, cfg.Validate(), "unknown provider kind")
	})

	t.Run("bad overlap unit", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Retrieval.OverlapUnit = "tokens"
		assert.ErrorContains(t, cfg.Validate(), "overlap_unit")
	})

	t.Run("auth needs hash", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Auth.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "password_hash")
	})

	t.Run("limits", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Retrieval.MaxLimit = 2
		assert.Error(t, cfg.Validate())
	})

	t.Run("defaults valid", func(t *testing.T) {
		assert.NoError(t, defaultConfig().Validate())
	})
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.Password = "secret"
	assert.Equal(t, "root:secret@tcp(127.0.0.1:3306)/secondbrain?parseTime=true&loc=Local&charset=utf8mb4", cfg.MySQLDSN())
}
