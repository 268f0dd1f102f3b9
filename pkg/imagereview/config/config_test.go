package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, []string{".jpeg", ".png"}, cfg.AllowedExtensions)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 20*time.Second, cfg.WaitTime)
	assert.Equal(t, 10*time.Second, cfg.HandlerTimeout)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("TABLE_NAME", "image-table")
	t.Setenv("INTAKE_QUEUE_URL", "https://sqs.example/intake")
	t.Setenv("ALLOWED_EXTENSIONS", ".jpeg,.png,.webp")
	t.Setenv("BATCH_SIZE", "5")
	t.Setenv("WAIT_TIME", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "image-table", cfg.TableName)
	assert.Equal(t, "https://sqs.example/intake", cfg.IntakeQueueURL)
	assert.Equal(t, []string{".jpeg", ".png", ".webp"}, cfg.AllowedExtensions)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.WaitTime)
}

func TestLoadRejectsBadBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestAllowedExtensionList(t *testing.T) {
	cfg := &Config{AllowedExtensions: []string{"JPEG", " .png ", "", "gif"}}
	assert.Equal(t, []string{".jpeg", ".png", ".gif"}, cfg.AllowedExtensionList())
}
