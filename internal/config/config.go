package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Kafka
	KafkaBrokers string

	// API Configuration
	APIPort string
	APIHost string

	// PIM source system
	PIMBaseURL   string
	PIMAPIKey    string
	PIMPassword  string
	PIMRateLimit int // requests per 10 seconds

	// Storefront CMS destination
	StorefrontBaseURL      string
	StorefrontToken        string
	StorefrontSiteID       string
	StorefrontCollectionID string
	StorefrontRateLimit    int // requests per minute

	// Sync policy
	UpdateOnlyMode           bool
	EnableProductCreation    bool
	EnableAutoPublish        bool
	EnableDynamicCollections bool
	CollectionStrategy       string

	// Sync tuning
	PageSize              int
	BatchSize             int
	MaxConcurrentEntities int
	PublishBatchSize      int
	RetryAttempts         int
	RequestTimeoutSeconds int

	// Field mapping document
	FieldMappingFile string

	// Environment
	Env      string
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	return &Config{
		DatabaseURL:              getEnv("DATABASE_URL", "sqlite://pimsync.db"),
		RedisURL:                 getEnv("REDIS_URL", "redis://localhost:6379"),
		KafkaBrokers:             getEnv("KAFKA_BROKERS", "localhost:9092"),
		APIPort:                  getEnv("API_PORT", "8080"),
		APIHost:                  getEnv("API_HOST", "0.0.0.0"),
		PIMBaseURL:               getEnv("PIM_BASE_URL", "https://pim.example.com/api/v1"),
		PIMAPIKey:                getEnv("PIM_API_KEY", ""),
		PIMPassword:              getEnv("PIM_API_PASSWORD", ""),
		PIMRateLimit:             getEnvAsInt("PIM_RATE_LIMIT", 50),
		StorefrontBaseURL:        getEnv("STOREFRONT_BASE_URL", "https://api.storefront.example.com/v2"),
		StorefrontToken:          getEnv("STOREFRONT_TOKEN", ""),
		StorefrontSiteID:         getEnv("STOREFRONT_SITE_ID", ""),
		StorefrontCollectionID:   getEnv("STOREFRONT_COLLECTION_ID", ""),
		StorefrontRateLimit:      getEnvAsInt("STOREFRONT_RATE_LIMIT", 60),
		UpdateOnlyMode:           getEnvAsBool("UPDATE_ONLY_MODE", true),
		EnableProductCreation:    getEnvAsBool("ENABLE_PRODUCT_CREATION", false),
		EnableAutoPublish:        getEnvAsBool("ENABLE_AUTO_PUBLISH", true),
		EnableDynamicCollections: getEnvAsBool("ENABLE_DYNAMIC_COLLECTIONS", false),
		CollectionStrategy:       getEnv("COLLECTION_MAPPING_STRATEGY", "category"),
		PageSize:                 getEnvAsInt("SYNC_PAGE_SIZE", 50),
		BatchSize:                getEnvAsInt("SYNC_BATCH_SIZE", 25),
		MaxConcurrentEntities:    getEnvAsInt("MAX_CONCURRENT_ENTITIES", 3),
		PublishBatchSize:         getEnvAsInt("PUBLISH_BATCH_SIZE", 50),
		RetryAttempts:            getEnvAsInt("RETRY_ATTEMPTS", 3),
		RequestTimeoutSeconds:    getEnvAsInt("API_TIMEOUT", 30),
		FieldMappingFile:         getEnv("FIELD_MAPPING_FILE", "field_mappings.json"),
		Env:                      getEnv("ENV", "development"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
	}, nil
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
