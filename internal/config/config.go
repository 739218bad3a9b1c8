// Package config provides configuration for the fake Amplitude server
package config

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all configuration for the fake server
type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	Log    LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds the credentials the fake accepts
type AuthConfig struct {
	APIKey    string
	SecretKey string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level logrus.Level
}

// Load loads configuration from environment with defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("AMPLITUDE_FAKE_ADDR", ":8089"),
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			APIKey:    os.Getenv("AMPLITUDE_FAKE_API_KEY"),
			SecretKey: os.Getenv("AMPLITUDE_FAKE_SECRET_KEY"),
		},
		Log: LogConfig{
			Level: parseLevel(getEnv("AMPLITUDE_FAKE_LOG_LEVEL", "info")),
		},
	}
}

func parseLevel(s string) logrus.Level {
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
