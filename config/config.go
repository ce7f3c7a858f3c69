package config

import (
	"fmt"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"fern-api"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"30"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL (commerce database, read-only, plus the fern schema for sync_runs)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"commerce"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Search engine (Meilisearch)
	SearchHost             string        `env:"SEARCH_HOST" env-default:"http://localhost:7700"`
	SearchAPIKey           string        `env:"SEARCH_API_KEY" env-default:""`
	SearchTimeout          time.Duration `env:"SEARCH_TIMEOUT" env-default:"10s"`
	SearchWaitForTasks     bool          `env:"SEARCH_WAIT_FOR_TASKS" env-default:"false"`
	SearchProductsIndex    string        `env:"SEARCH_PRODUCTS_INDEX" env-default:"products"`
	SearchCategoriesIndex  string        `env:"SEARCH_CATEGORIES_INDEX" env-default:"categories"`
	SearchBrandsIndex      string        `env:"SEARCH_BRANDS_INDEX" env-default:"brands"`
	SearchApplySettings    bool          `env:"SEARCH_APPLY_SETTINGS" env-default:"true"`
	SearchSettingsFilePath string        `env:"SEARCH_SETTINGS_FILE_PATH" env-default:""`

	// CMS (Strapi)
	CMSBaseURL              string        `env:"CMS_BASE_URL" env-default:"http://localhost:1337"`
	CMSAPIToken             string        `env:"CMS_API_TOKEN" env-default:""`
	CMSTimeout              time.Duration `env:"CMS_TIMEOUT" env-default:"10s"`
	CMSProductCollection    string        `env:"CMS_PRODUCT_COLLECTION" env-default:"products"`
	CMSCategoryCollection   string        `env:"CMS_CATEGORY_COLLECTION" env-default:"categories"`
	CMSBrandCollection      string        `env:"CMS_BRAND_COLLECTION" env-default:"brands"`
	CMSForeignKeyField      string        `env:"CMS_FOREIGN_KEY_FIELD" env-default:"medusa_id"`
	CMSWebhookSecret        string        `env:"CMS_WEBHOOK_SECRET" env-default:""`
	CMSWebhookForeignKeyExp string        `env:"CMS_WEBHOOK_FOREIGN_KEY_EXPRESSION" env-default:"entry.medusa_id"`

	// Redis (indexer dead letter stream)
	RedisEnabled   bool   `env:"REDIS_ENABLED" env-default:"true"`
	RedisHost      string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort      int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword  string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB        int    `env:"REDIS_DB" env-default:"0"`
	RedisDLQStream string `env:"REDIS_DLQ_STREAM" env-default:"fern:dlq"`
	RedisPoolSize  int    `env:"REDIS_POOL_SIZE" env-default:"10"`

	// Auth (admin sync routes)
	AuthEnabled   bool   `env:"AUTH_ENABLED" env-default:"false"`
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	AuthClientID  string `env:"AUTH_CLIENT_ID" env-default:""`
	AuthAdminRole string `env:"AUTH_ADMIN_ROLE" env-default:""`

	// Kafka consumer (commerce lifecycle events and CMS events)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaCommerceTopic   string   `env:"KAFKA_COMMERCE_TOPIC" env-default:"commerce.entity-events"`
	KafkaCMSTopic        string   `env:"KAFKA_CMS_TOPIC" env-default:"cms.enrichment-events"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"fern-indexer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka producer (CMS webhooks are forwarded to KafkaCMSTopic when enabled)
	KafkaProducerEnabled bool   `env:"KAFKA_PRODUCER_ENABLED" env-default:"true"`
	KafkaBatchSize       int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout    int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks    int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression     string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingEndpoint string `env:"TRACING_ENDPOINT" env-default:"localhost:4317"`
	TracingProtocol string `env:"TRACING_PROTOCOL" env-default:"grpc"`
	TracingInsecure bool   `env:"TRACING_INSECURE" env-default:"true"`

	// Sync
	SyncDefaultLimit int `env:"SYNC_DEFAULT_LIMIT" env-default:"50"`
	SyncMaxLimit     int `env:"SYNC_MAX_LIMIT" env-default:"1000"`
	SyncConcurrency  int `env:"SYNC_CONCURRENCY" env-default:"8"`
}

// Load reads an optional .env file and binds the environment onto Config.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// a missing .env is normal outside local development
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return cfg, nil
}

// DatabaseDSN builds the lib/pq connection string.
func (c Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}
