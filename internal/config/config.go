package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Ranjiththeeti/harass/internal/llm"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	// Providers are tried in order; a provider whose circuit is open is skipped
	Providers []llm.ProviderConfig `yaml:"providers"`

	Classifier struct {
		Timeout  time.Duration `yaml:"timeout"`
		Keywords []string      `yaml:"keywords"`
	} `yaml:"classifier"`

	Database struct {
		Type string `yaml:"type"` // "sqlite", "postgres" or "mongo"
		Path string `yaml:"path"` // SQLite file path
		URL  string `yaml:"url"`  // PostgreSQL DSN or MongoDB URI
		Name string `yaml:"name"` // MongoDB database name
	} `yaml:"database"`

	Redis struct {
		Addr              string `yaml:"addr"`
		Password          string `yaml:"password"`
		DB                int    `yaml:"db"`
		RequestsPerMinute int    `yaml:"requests_per_minute"`
	} `yaml:"redis"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "console" or "json"
	} `yaml:"log"`
}

// LoadConfig loads configuration from YAML file. Variables from a .env file in
// the working directory are loaded first so ${VAR} references can use them.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

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

	config.expandEnv()
	config.setDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) expandEnv() {
	for i := range c.Providers {
		c.Providers[i].APIKey = os.ExpandEnv(c.Providers[i].APIKey)
		c.Providers[i].BaseURL = os.ExpandEnv(c.Providers[i].BaseURL)
	}
	c.Database.URL = os.ExpandEnv(c.Database.URL)
	c.Redis.Addr = os.ExpandEnv(c.Redis.Addr)
	c.Redis.Password = os.ExpandEnv(c.Redis.Password)

	// CORS_ORIGINS wins over the file, like the frontend deployments expect
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8001"
	}

	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}

	if c.Classifier.Timeout == 0 {
		c.Classifier.Timeout = 30 * time.Second
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}

	if c.Database.Path == "" {
		c.Database.Path = "./data/messages.db"
	}

	if c.Database.Name == "" {
		c.Database.Name = "harassment_detection"
	}

	if c.Redis.RequestsPerMinute == 0 {
		c.Redis.RequestsPerMinute = 30
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

func (c *Config) validate() error {
	switch c.Database.Type {
	case "sqlite":
	case "postgres", "mongo":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for %s", c.Database.Type)
		}
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
