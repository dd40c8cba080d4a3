package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("WORKER_CONCURRENCY", "")
	t.Setenv("EXPIRATION_SCHEDULE", "")

	cfg := LoadConfig()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 10, cfg.WorkerConcurrency)
	assert.Equal(t, "@every 00h05m00s", cfg.ExpirationSchedule)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("WORKER_CONCURRENCY", "4")
	t.Setenv("R2_ENDPOINT", "http://localhost:9000")
	t.Setenv("FEED_BASE_URL", "https://feeds.example.com")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, "http://localhost:9000", cfg.R2.Endpoint)
	assert.Equal(t, "https://feeds.example.com", cfg.FeedBaseURL)
}

func TestGetEnvIntRejectsInvalid(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "many")
	assert.Equal(t, 10, getEnvInt("WORKER_CONCURRENCY", 10))

	t.Setenv("WORKER_CONCURRENCY", "-2")
	assert.Equal(t, 10, getEnvInt("WORKER_CONCURRENCY", 10))
}
