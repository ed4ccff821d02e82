package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port               string
	DatabaseURL        string
	Env                string
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	ExtractAPIBaseURL  string
	ExtractAPITokenURL string
	BatchSize          int
	MonthlyQuota       int
	ArtifactRetention  int
	StaleJobThreshold  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        dbURL,
		Env:                env,
		ObjectStoreType:    normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:          getEnv("AWS_REGION", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", "debug-artifacts"),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", ""),
		ExtractAPIBaseURL:  getEnv("EXTRACT_API_BASE_URL", "https://pdf-services.adobe.io"),
		ExtractAPITokenURL: getEnv("EXTRACT_API_TOKEN_URL", "https://pdf-services.adobe.io/token"),
		BatchSize:          getEnvInt("PROCESS_BATCH_SIZE", 5),
		MonthlyQuota:       getEnvInt("MONTHLY_EXTRACT_QUOTA", 500),
		ArtifactRetention:  getEnvInt("ARTIFACT_RETENTION_COUNT", 50),
		StaleJobThreshold:  getEnvDuration("STALE_JOB_THRESHOLD", 15*time.Minute),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config env %s invalid int, using default %d", key, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config env %s invalid duration, using default %s", key, def)
		return def
	}
	return val
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
