package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"authenticity-survey/internal/keys"
	"authenticity-survey/internal/models"
	"authenticity-survey/internal/store_client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SURVEY_STORE", "http://store.internal:9000")

	path := writeConfig(t, `
survey:
  image_count: 40
  images_to_show: 5
  reasons:
    ai: [Warped hands]
    real: [Film grain]
key:
  strategy: prefixed
  suffix_length: 12
store:
  url: ${SURVEY_STORE}
  timeout: 5s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 40, cfg.Survey.ImageCount)
	assert.Equal(t, 5, cfg.Survey.ImagesToShow)
	assert.Equal(t, "http://store.internal:9000", cfg.Store.URL)
	assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "8003", cfg.Server.Port, "unset values fall back to defaults")

	vocab, err := cfg.Vocabulary()
	require.NoError(t, err)
	assert.Equal(t, []models.ReasonTag{"Warped hands"}, vocab.Tags(models.FamilyAI))

	issuer := cfg.IssuerConfig()
	assert.Equal(t, keys.StrategyPrefixed, issuer.Strategy)
	assert.Equal(t, 12, issuer.SuffixLength)
}

func TestLoadConfig_UnsetEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("SURVEY_STORE", "")

	cfg, err := LoadConfig(writeConfig(t, "store:\n  url: ${SURVEY_STORE}\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8003", cfg.Store.URL)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "survey: [not, a, map]\n"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 200, cfg.Survey.ImageCount)
	assert.Equal(t, 10, cfg.Survey.ImagesToShow)
	assert.Equal(t, "sqlite", cfg.Database.Type)

	client := cfg.StoreClientConfig()
	assert.Equal(t, store_client.PatternAppend, client.WritePattern)
	assert.Equal(t, 30*time.Second, client.Timeout)

	vocab, err := cfg.Vocabulary()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAIReasons, vocab.Tags(models.FamilyAI))
	assert.Equal(t, models.DefaultRealReasons, vocab.Tags(models.FamilyReal))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sample larger than universe", func(c *Config) { c.Survey.ImagesToShow = 201 }},
		{"negative sample", func(c *Config) { c.Survey.ImagesToShow = -1 }},
		{"overlapping families", func(c *Config) { c.Survey.Reasons.Real = []string{"Illogical shadows"} }},
		{"empty family", func(c *Config) { c.Survey.Reasons.Real = nil }},
		{"unknown key strategy", func(c *Config) { c.Key.Strategy = "sequential" }},
		{"short alphabet", func(c *Config) { c.Key.Alphabet = "ABC" }},
		{"unknown database", func(c *Config) { c.Database.Type = "mysql" }},
		{"postgres without url", func(c *Config) { c.Database.Type = "postgres" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), models.ErrInvalidConfiguration)
		})
	}
}
