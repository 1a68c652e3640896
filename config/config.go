// Package config loads pipeline configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// GetEnvInt retrieves an integer environment variable with a fallback value
func GetEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvDuration retrieves a duration environment variable with a fallback value
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Config holds the runtime configuration for the API server and the workers
type Config struct {
	ListenAddr string
	RedisURL   string
	AMQPURL    string

	// Worker pool sizes per stage
	ExtractionWorkers     int
	ChunkingWorkers       int
	TranslationWorkers    int
	ReconstructionWorkers int

	// PopTimeout bounds the blocking wait on a stage queue
	PopTimeout time.Duration

	// ChunkSize is the target chunk size for the splitter, in characters
	ChunkSize int

	UploadDir string
	OutputDir string

	// Janitor settings; JanitorInterval <= 0 disables the sweep
	JanitorInterval time.Duration
	JobTTL          time.Duration
	ArchiveDSN      string

	OpenAIAPIKey string
}

// Load builds a Config from environment variables
func Load() Config {
	return Config{
		ListenAddr: GetEnv("LISTEN_ADDR", ":8080"),
		RedisURL:   GetEnv("REDIS_URL", "redis://localhost:6379/0"),
		AMQPURL:    GetEnv("AMQP_URL", ""),

		ExtractionWorkers:     GetEnvInt("EXTRACTION_WORKERS", 4),
		ChunkingWorkers:       GetEnvInt("CHUNKING_WORKERS", 2),
		TranslationWorkers:    GetEnvInt("TRANSLATION_WORKERS", 4),
		ReconstructionWorkers: GetEnvInt("RECONSTRUCTION_WORKERS", 1),

		PopTimeout: GetEnvDuration("QUEUE_POP_TIMEOUT", 5*time.Second),
		ChunkSize:  GetEnvInt("CHUNK_SIZE", 3000),

		UploadDir: GetEnv("UPLOAD_DIR", "storage/uploads"),
		OutputDir: GetEnv("OUTPUT_DIR", "storage/output"),

		JanitorInterval: GetEnvDuration("JANITOR_INTERVAL", 0),
		JobTTL:          GetEnvDuration("JOB_TTL", 24*time.Hour),
		ArchiveDSN:      GetEnv("ARCHIVE_DSN", ""),

		OpenAIAPIKey: GetEnv("OPENAI_API_KEY", ""),
	}
}
