package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	Addr          string
	MongoURI      string
	MongoDatabase string
	JWTSecret     string
	AccessTTL     time.Duration
	CORSOrigin    string
	// Scheduler credential expected in X-Cron-Secret
	CronSecret string
	// Redis - empty keeps the single-server in-memory hub
	RedisURL string
	ServerID string
	// Object storage for attachments - empty endpoint disables uploads
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MaxUploadBytes int64
	// Day boundaries for the deadline scanner
	DeadlineLocation *time.Location
	UserCacheTTL     time.Duration
}

func Load() Config {
	return Config{
		Addr:             ":" + getenv("PORT", "8080"),
		MongoURI:         getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:    getenv("MONGODB_DATABASE", "boardtalk"),
		JWTSecret:        getenv("JWT_SECRET", ""),
		AccessTTL:        time.Duration(getenvInt("ACCESS_TTL_SECONDS", 900)) * time.Second,
		CORSOrigin:       getenv("CORS_ORIGIN", "http://localhost:3000"),
		CronSecret:       getenv("CRON_SECRET", ""),
		RedisURL:         getenv("REDIS_URL", ""),
		ServerID:         getenv("SERVER_ID", "server-1"),
		MinioEndpoint:    getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey:   getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:   getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:      getenv("MINIO_BUCKET", "chat-files"),
		MinioUseSSL:      getenvBool("MINIO_USE_SSL", false),
		MaxUploadBytes:   int64(getenvInt("MAX_UPLOAD_BYTES", 10<<20)),
		DeadlineLocation: getenvLocation("DEADLINE_TIMEZONE", time.UTC),
		UserCacheTTL:     time.Duration(getenvInt("USER_CACHE_TTL_SECONDS", 60)) * time.Second,
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvLocation(key string, fallback *time.Location) *time.Location {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	loc, err := time.LoadLocation(value)
	if err != nil {
		return fallback
	}
	return loc
}
