package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"roundbets/database"
)

// Event sink selectors for EVENT_SINK
const (
	EventSinkNone  = "none"
	EventSinkNATS  = "nats"
	EventSinkKafka = "kafka"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP configuration
	HTTPAddr    string
	MetricsAddr string

	// Session store configuration
	RedisAddr  string
	SessionTTL time.Duration

	// Ledger configuration
	AdminEmails     []string
	StartingCredits int64

	// Event fan-out configuration
	EventSink         string
	NATSServers       string
	NATSSubjectPrefix string
	KafkaBrokers      []string
	KafkaTopic        string

	// Discord announcements, disabled when the token is empty
	DiscordToken     string
	DiscordChannelID string

	// Environment
	Environment string // "development", "production" or "test"
	LogLevel    string
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = Load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL combines the base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":8080"),
		MetricsAddr: getEnvWithDefault("METRICS_ADDR", ":9090"),

		RedisAddr:  getEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		SessionTTL: 7 * 24 * time.Hour,

		AdminEmails:     splitList(os.Getenv("ADMIN_EMAILS")),
		StartingCredits: 100,

		EventSink:         strings.ToLower(getEnvWithDefault("EVENT_SINK", EventSinkNone)),
		NATSServers:       getEnvWithDefault("NATS_SERVERS", "nats://localhost:4222"),
		NATSSubjectPrefix: getEnvWithDefault("NATS_SUBJECT_PREFIX", "roundbets"),
		KafkaBrokers:      splitList(getEnvWithDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:        getEnvWithDefault("KAFKA_TOPIC", "roundbets.events"),

		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
	}

	if credits := os.Getenv("STARTING_CREDITS"); credits != "" {
		parsed, err := strconv.ParseInt(credits, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("STARTING_CREDITS must be a positive integer, got %q", credits)
		}
		config.StartingCredits = parsed
	}

	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		parsed, err := time.ParseDuration(ttl)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("SESSION_TTL must be a positive duration, got %q", ttl)
		}
		config.SessionTTL = parsed
	}

	switch config.EventSink {
	case EventSinkNone, EventSinkNATS, EventSinkKafka:
	default:
		return nil, fmt.Errorf("EVENT_SINK must be one of none, nats, kafka, got %q", config.EventSink)
	}

	if config.DiscordToken != "" && config.DiscordChannelID == "" {
		return nil, fmt.Errorf("DISCORD_CHANNEL_ID is required when DISCORD_TOKEN is set")
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma separated value, dropping blanks
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SetTestConfig sets a test configuration instance.
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing.
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:     "test",
		AdminEmails:     []string{"admin@example.com"},
		StartingCredits: 100,
		SessionTTL:      time.Hour,
		EventSink:       EventSinkNone,
		LogLevel:        "debug",
	}
}
