package amplitude

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the optional settings of a Client.
//
// The default identifiers may be given under either spelling; the camelCase
// field wins when both are set.
type Config struct {
	SecretKey     string `yaml:"secretKey"`
	TokenEndpoint string `yaml:"tokenEndpoint"`

	UserID         string `yaml:"userId"`
	UserIDSnake    string `yaml:"user_id"`
	DeviceID       string `yaml:"deviceId"`
	DeviceIDSnake  string `yaml:"device_id"`
	SessionID      string `yaml:"sessionId"`
	SessionIDSnake string `yaml:"session_id"`

	// GenerateInsertIDs makes Track fill a random insert_id on events that have none.
	GenerateInsertIDs bool `yaml:"generateInsertIds"`

	// Timeout applies to the default HTTP client only.
	Timeout time.Duration `yaml:"timeout"`

	Logger     logrus.FieldLogger    `yaml:"-"`
	Registerer prometheus.Registerer `yaml:"-"`
}

// DefaultConfig returns a default client configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}

// LoadConfig reads a YAML client configuration from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) tokenEndpoint() string {
	if c.TokenEndpoint != "" {
		return c.TokenEndpoint
	}
	return getEnv(TokenEndpointEnv, DefaultTokenEndpoint)
}

func (c *Config) defaults() Defaults {
	return Defaults{
		UserID:    firstNonEmpty(c.UserID, c.UserIDSnake),
		DeviceID:  firstNonEmpty(c.DeviceID, c.DeviceIDSnake),
		SessionID: firstNonEmpty(c.SessionID, c.SessionIDSnake),
	}
}

func (c *Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
