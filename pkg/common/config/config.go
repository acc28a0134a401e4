package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	MaxUploadBytes int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers        []string
	KafkaGroupID        string
	UploadEventsTopic   string
	AssessmentTopic     string
	KnowledgeIndexTopic string

	// OIDC (admin routes)
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCAdminGroup   string
	OIDCRedirectURL  string

	// LLM
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModelName      string
	LLMEmbeddingModel string
	LLMEmbeddingDim   int
	LLMRequestTimeout time.Duration

	// Drug catalog
	DrugCatalogPath string

	// Evidence retrieval
	EvidenceResultLimit int

	// Patient cost summary cache
	CostSummaryCacheTTL time.Duration

	// Rate limiting
	RateLimitRPS   int
	RateLimitBurst int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1*1024*1024)),
		MaxUploadBytes: int64(getIntEnv("MAX_UPLOAD_BYTES", 32*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "dermacost"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "dermacost123"),
		PostgresDB:       getEnv("POSTGRES_DB", "dermacost"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:        getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:        getEnv("KAFKA_GROUP_ID", "dermacost-platform"),
		UploadEventsTopic:   getEnv("UPLOAD_EVENTS_TOPIC", "dermacost.uploads"),
		AssessmentTopic:     getEnv("ASSESSMENT_EVENTS_TOPIC", "dermacost.assessments"),
		KnowledgeIndexTopic: getEnv("KNOWLEDGE_INDEX_TOPIC", "dermacost.knowledge-index"),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCAdminGroup:   getEnv("OIDC_ADMIN_GROUP", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", ""),

		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModelName:      getEnv("LLM_MODEL_NAME", "gpt-4"),
		LLMEmbeddingModel: getEnv("LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
		LLMEmbeddingDim:   getIntEnv("LLM_EMBEDDING_DIM", 1536),
		LLMRequestTimeout: getDuration("LLM_REQUEST_TIMEOUT", 30*time.Second),

		DrugCatalogPath: getEnv("DRUG_CATALOG_PATH", ""),

		EvidenceResultLimit: getIntEnv("EVIDENCE_RESULT_LIMIT", 3),

		CostSummaryCacheTTL: getDuration("COST_SUMMARY_CACHE_TTL", 5*time.Minute),

		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
