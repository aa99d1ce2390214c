package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        int

	// open ai
	OpenAIKey            string
	OpenAIEmbeddingModel string
	OpenAIChatModel      string
	EmbeddingDimension   int

	// rag config
	ChunkSize           int
	ChunkOverlap        int
	TopKResults         int
	OversampleFactor    int
	SimilarityThreshold float64
	ContextTokenBudget  int
	HistoryWindow       int

	// behavior when retrieval finds nothing: answer from general knowledge
	// or decline with a fixed notice
	AnswerWithoutContext bool

	// external call policy
	ExternalTimeout  time.Duration
	RetryAttempts    int
	RetryBaseDelay   time.Duration
	EmbedBatchSize   int
	EmbedConcurrency int
}

func Load() *Config {
	godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		port = 8080
	}

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        port,

		// OpenAI
		OpenAIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		OpenAIChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingDimension:   getEnvInt("EMBEDDING_DIMENSION", 1536),

		// RAG Config
		ChunkSize:           getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:        getEnvInt("CHUNK_OVERLAP", 200),
		TopKResults:         getEnvInt("TOP_K_RESULTS", 6),
		OversampleFactor:    getEnvInt("OVERSAMPLE_FACTOR", 3),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.5),
		ContextTokenBudget:  getEnvInt("CONTEXT_TOKEN_BUDGET", 3000),
		HistoryWindow:       getEnvInt("HISTORY_WINDOW", 10),

		AnswerWithoutContext: getEnvBool("ANSWER_WITHOUT_CONTEXT", true),

		// external call policy
		ExternalTimeout:  getEnvDuration("EXTERNAL_TIMEOUT", 30*time.Second),
		RetryAttempts:    getEnvInt("RETRY_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
		EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", 64),
		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 4),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
