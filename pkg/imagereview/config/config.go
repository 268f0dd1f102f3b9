// Package config loads the review workers' environment configuration. All
// values are resolved once at process start and treated as immutable for the
// process lifetime.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds every environment-provided setting the worker daemon needs:
// queue/topic/table identity, the file-type policy, and the email addresses.
type Config struct {
	Region string `env:"AWS_REGION" env-default:"us-east-1"`

	// Record store. TABLE_NAME selects DynamoDB; DATABASE_URL selects
	// Postgres; neither selects the in-memory store (local development).
	TableName   string `env:"TABLE_NAME"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Queue topology. The intake DLQ doubles as the reaper's source queue.
	IntakeQueueURL   string `env:"INTAKE_QUEUE_URL"`
	IntakeDLQURL     string `env:"INTAKE_DLQ_URL"`
	MetadataQueueURL string `env:"METADATA_QUEUE_URL"`
	StatusQueueURL   string `env:"STATUS_QUEUE_URL"`
	NotifyQueueURL   string `env:"NOTIFY_QUEUE_URL"`

	// NotifyTopicARN is where the status worker publishes notifications.
	NotifyTopicARN string `env:"STATUS_NOTIFY_TOPIC_ARN"`

	// File-type policy for the intake validator.
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS" env-default:".jpeg,.png"`

	// Email endpoints for the notification worker.
	FromEmail string `env:"FROM_EMAIL"`
	ToEmail   string `env:"TO_EMAIL"`

	// Dispatcher tuning.
	BatchSize      int           `env:"BATCH_SIZE" env-default:"10"`
	WaitTime       time.Duration `env:"WAIT_TIME" env-default:"20s"`
	HandlerTimeout time.Duration `env:"HANDLER_TIMEOUT" env-default:"10s"`

	// HTTPAddr serves /healthz and /metrics.
	HTTPAddr string `env:"HTTP_ADDR" env-default:":8080"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("BATCH_SIZE must be at least 1")
	}
	return &cfg, nil
}

// AllowedExtensionList returns the normalized (lowercase, dot-prefixed)
// extension allowlist.
func (c *Config) AllowedExtensionList() []string {
	exts := make([]string, 0, len(c.AllowedExtensions))
	for _, ext := range c.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}
