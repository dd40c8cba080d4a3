package config

import (
	"os"
	"strconv"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	// Endpoint overrides the Cloudflare account endpoint, e.g. for a local S3.
	Endpoint string
}

type Config struct {
	Port               string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	PostgresURI        string
	RedisURI           string
	FrontendURL        string
	FeedBaseURL        string
	R2                 R2
	SecretKey          string
	CookieName         string
	ExpirationSchedule string
	WorkerConcurrency  int
}

func LoadConfig() *Config {
	return &Config{
		Port:               getEnv("PORT", "3000"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		RedisURI:           getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		FeedBaseURL:        getEnv("FEED_BASE_URL", "http://localhost:3000/feeds"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			Endpoint:   getEnv("R2_ENDPOINT", ""),
		},
		SecretKey:          getEnv("SECRET_KEY", ""),
		CookieName:         getEnv("COOKIE_NAME", "feedqueue_session"),
		ExpirationSchedule: getEnv("EXPIRATION_SCHEDULE", "@every 00h05m00s"),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil && value > 0 {
		return value
	}
	return defaultValue
}
