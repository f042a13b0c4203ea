package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the relay server configuration. Values load from an
// optional YAML file first, then environment variables override.
type Config struct {
	Port string `yaml:"port"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Database DatabaseConfig `yaml:"database"`
	Video    struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"video"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the Postgres connection URL.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func loadConfig(path string) (*Config, error) {
	config := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(config)
	return config, nil
}

func applyEnv(config *Config) {
	config.Port = getEnv("PORT", defaultString(config.Port, "8080"))
	config.NATS.URL = getEnv("NATS_URL", defaultString(config.NATS.URL, "nats://localhost:4222"))

	config.Database.Host = getEnv("DB_HOST", defaultString(config.Database.Host, "localhost"))
	config.Database.Port = getEnvAsInt("DB_PORT", defaultInt(config.Database.Port, 5432))
	config.Database.User = getEnv("DB_USER", defaultString(config.Database.User, "postgres"))
	config.Database.Password = getEnv("DB_PASSWORD", defaultString(config.Database.Password, "postgres"))
	config.Database.Database = getEnv("DB_NAME", defaultString(config.Database.Database, "thirty"))
	config.Database.SSLMode = getEnv("DB_SSLMODE", defaultString(config.Database.SSLMode, "disable"))

	config.Video.BaseURL = getEnv("VIDEO_API_URL", defaultString(config.Video.BaseURL, "https://api.daily.co/v1"))
	config.Video.APIKey = getEnv("VIDEO_API_KEY", config.Video.APIKey)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func defaultString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func defaultInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}
