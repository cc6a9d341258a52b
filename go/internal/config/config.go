package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the race server settings. Values come from an optional YAML file
// and are then overridden by environment variables.
type Config struct {
	Port            string   `yaml:"port"`
	LogLevel        string   `yaml:"log_level"`
	LogFormat       string   `yaml:"log_format"`
	MinParticipants int      `yaml:"min_participants"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	Paragraphs      []string `yaml:"paragraphs"`

	NATS      NATSConfig      `yaml:"nats"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// NATSConfig configures the race event publisher. An empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// WebSocketConfig holds connection timings and limits
type WebSocketConfig struct {
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	SendBufferSize int           `yaml:"send_buffer_size"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:            "8000",
		LogLevel:        "info",
		LogFormat:       "console",
		MinParticipants: 2,
		AllowedOrigins:  []string{"*"},
		NATS: NATSConfig{
			Subject: "race.events",
		},
		WebSocket: WebSocketConfig{
			WriteTimeout:   10 * time.Second,
			ReadTimeout:    60 * time.Second,
			PingInterval:   30 * time.Second,
			MaxMessageSize: 1024,
			SendBufferSize: 256,
		},
	}
}

// Load reads path (if non-empty), applies environment overrides and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("RACE_PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.MinParticipants = getEnvAsInt("RACE_MIN_PARTICIPANTS", c.MinParticipants)
	if origins := getEnv("RACE_ALLOWED_ORIGINS", ""); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Subject = getEnv("NATS_SUBJECT", c.NATS.Subject)

	c.WebSocket.WriteTimeout = getEnvAsDuration("WS_WRITE_TIMEOUT", c.WebSocket.WriteTimeout)
	c.WebSocket.ReadTimeout = getEnvAsDuration("WS_READ_TIMEOUT", c.WebSocket.ReadTimeout)
	c.WebSocket.PingInterval = getEnvAsDuration("WS_PING_INTERVAL", c.WebSocket.PingInterval)
	c.WebSocket.MaxMessageSize = int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", int(c.WebSocket.MaxMessageSize)))
	c.WebSocket.SendBufferSize = getEnvAsInt("WS_SEND_BUFFER_SIZE", c.WebSocket.SendBufferSize)
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.MinParticipants < 2 {
		errs = append(errs, fmt.Errorf("min_participants must be at least 2, got %d", c.MinParticipants))
	}
	if c.Paragraphs != nil && len(c.Paragraphs) == 0 {
		errs = append(errs, errors.New("paragraphs must not be empty when set"))
	}
	for i, p := range c.Paragraphs {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("paragraph %d is blank", i))
		}
	}
	if c.WebSocket.WriteTimeout <= 0 || c.WebSocket.ReadTimeout <= 0 || c.WebSocket.PingInterval <= 0 {
		errs = append(errs, errors.New("websocket timings must be positive"))
	}
	if c.WebSocket.PingInterval >= c.WebSocket.ReadTimeout {
		errs = append(errs, errors.New("websocket ping_interval must be shorter than read_timeout"))
	}
	if c.WebSocket.MaxMessageSize <= 0 || c.WebSocket.SendBufferSize <= 0 {
		errs = append(errs, errors.New("websocket limits must be positive"))
	}
	return errors.Join(errs...)
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
