package config

import (
	"fmt"
	"os"
	"time"

	"authenticity-survey/internal/keys"
	"authenticity-survey/internal/models"
	"authenticity-survey/internal/store_client"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration for both the store server and the rater CLI
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Type string `yaml:"type"` // "sqlite" or "postgres"
		Path string `yaml:"path"` // SQLite file
		URL  string `yaml:"url"`  // PostgreSQL URL
	} `yaml:"database"`

	RateLimit struct {
		RequestsPerMinute int `yaml:"requests_per_minute"`
	} `yaml:"rate_limit"`

	Survey struct {
		ImageCount   int    `yaml:"image_count"`
		ImagesToShow int    `yaml:"images_to_show"`
		ImagePath    string `yaml:"image_path"` // printf pattern taking the item id
		Reasons      struct {
			AI   []string `yaml:"ai"`
			Real []string `yaml:"real"`
		} `yaml:"reasons"`
	} `yaml:"survey"`

	Key struct {
		Strategy     string `yaml:"strategy"` // "code" or "prefixed"
		Alphabet     string `yaml:"alphabet"`
		Prefix       string `yaml:"prefix"`
		SuffixLength int    `yaml:"suffix_length"`
	} `yaml:"key"`

	Store struct {
		URL          string        `yaml:"url"`
		WritePattern string        `yaml:"write_pattern"` // "append" or "replace" (deprecated)
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"store"`
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	// Expand environment variables in connection settings
	c.Database.Path = os.ExpandEnv(c.Database.Path)
	c.Database.URL = os.ExpandEnv(c.Database.URL)
	c.Store.URL = os.ExpandEnv(c.Store.URL)

	if c.Server.Port == "" {
		c.Server.Port = "8003"
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}

	if c.Database.Path == "" {
		c.Database.Path = "./data/submissions.db"
	}

	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = 120
	}

	if c.Survey.ImageCount == 0 {
		c.Survey.ImageCount = 200
	}

	if c.Survey.ImagesToShow == 0 {
		c.Survey.ImagesToShow = 10
	}

	if c.Survey.ImagePath == "" {
		c.Survey.ImagePath = "data/images/%d.png"
	}

	if len(c.Survey.Reasons.AI) == 0 && len(c.Survey.Reasons.Real) == 0 {
		c.Survey.Reasons.AI = tagStrings(models.DefaultAIReasons)
		c.Survey.Reasons.Real = tagStrings(models.DefaultRealReasons)
	}

	if c.Key.Strategy == "" {
		c.Key.Strategy = string(keys.StrategyCode)
	}

	if c.Store.URL == "" {
		c.Store.URL = "http://localhost:8003"
	}

	if c.Store.WritePattern == "" {
		c.Store.WritePattern = string(store_client.PatternAppend)
	}

	if c.Store.Timeout == 0 {
		c.Store.Timeout = 30 * time.Second
	}
}

// Validate checks everything a rating session depends on
func (c *Config) Validate() error {
	if c.Survey.ImagesToShow < 1 || c.Survey.ImagesToShow > c.Survey.ImageCount {
		return fmt.Errorf("%w: images_to_show must be between 1 and image_count (%d), got %d",
			models.ErrInvalidConfiguration, c.Survey.ImageCount, c.Survey.ImagesToShow)
	}
	if _, err := c.Vocabulary(); err != nil {
		return err
	}
	if _, err := keys.NewIssuer(c.IssuerConfig()); err != nil {
		return err
	}
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unsupported database type %q", models.ErrInvalidConfiguration, c.Database.Type)
	}
	if c.Database.Type == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("%w: database.url is required for postgres", models.ErrInvalidConfiguration)
	}
	return nil
}

// Vocabulary builds the reason tag vocabulary
func (c *Config) Vocabulary() (*models.Vocabulary, error) {
	return models.NewVocabulary(reasonTags(c.Survey.Reasons.AI), reasonTags(c.Survey.Reasons.Real))
}

// IssuerConfig maps the key section onto keys.Config
func (c *Config) IssuerConfig() keys.Config {
	return keys.Config{
		Strategy:     keys.Strategy(c.Key.Strategy),
		Alphabet:     c.Key.Alphabet,
		Prefix:       c.Key.Prefix,
		SuffixLength: c.Key.SuffixLength,
	}
}

// StoreClientConfig maps the store section onto store_client.Config
func (c *Config) StoreClientConfig() store_client.Config {
	return store_client.Config{
		BaseURL:      c.Store.URL,
		Timeout:      c.Store.Timeout,
		WritePattern: store_client.WritePattern(c.Store.WritePattern),
	}
}

func reasonTags(in []string) []models.ReasonTag {
	out := make([]models.ReasonTag, len(in))
	for i, s := range in {
		out[i] = models.ReasonTag(s)
	}
	return out
}

func tagStrings(in []models.ReasonTag) []string {
	out := make([]string, len(in))
	for i, t := range in {
		out[i] = string(t)
	}
	return out
}
