package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the server needs from its environment so main
// stays lean. Defaults are development-friendly; production overrides via env.
type Config struct {
	Addr          string `env:"FEDREMIT_ADDR" envDefault:":8080"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisURL      string `env:"REDIS_URL"`
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`

	Registry RegistryConfig     `envPrefix:"REGISTRY_"`
	Kafka    KafkaConfig        `envPrefix:"KAFKA_"`
	Notify   NotificationConfig `envPrefix:"NOTIFY_"`

	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1h"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// NotificationConfig identifies the executive contact for critical-tier
// escalations.
type NotificationConfig struct {
	ExecutiveName  string `env:"EXECUTIVE_NAME" envDefault:"CLC Executive Office"`
	ExecutiveEmail string `env:"EXECUTIVE_EMAIL" envDefault:"executive@clc.example"`
	ExecutivePhone string `env:"EXECUTIVE_PHONE"`
}

// RegistryConfig configures the external affiliate registry integration.
type RegistryConfig struct {
	BaseURL       string        `env:"BASE_URL"`
	BearerToken   string        `env:"BEARER_TOKEN"`
	WebhookSecret string        `env:"WEBHOOK_SECRET"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"10s"`
	MaxAttempts   int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	// SyncDelay spaces sequential syncAll calls to stay under the upstream
	// rate ceiling (~10 req/s).
	SyncDelay time.Duration `env:"SYNC_DELAY" envDefault:"100ms"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

// KafkaConfig configures the optional audit event sink. Empty brokers disables it.
type KafkaConfig struct {
	Brokers    []string `env:"BROKERS" envSeparator:","`
	AuditTopic string   `env:"AUDIT_TOPIC" envDefault:"fedremit.audit.events"`
}

// FromEnv parses configuration from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
