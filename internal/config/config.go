package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Search    SearchConfig
	Ai        AIConfig
	Regulator RegulatorConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	RedisURL           string
	NatsURL            string
	JWTSecret          string
}

type DatabaseConfig struct {
	Connection   string
	MaxIdleConns int
	MaxOpenConns int
}

// SearchConfig covers the hosted search service and the per-domain index
// names the retrieval layer fans out to.
type SearchConfig struct {
	Endpoint                string
	APIKey                  string
	APIVersion              string
	HelpGuidesIndex         string
	PricingIndex            string
	RegulatorIndex          string
	RegulatorSemanticConfig string
	WebsiteChunkIndex       string
	WebsiteEdgeIndex        string
}

type AIConfig struct {
	LLMProvider   string // "openai" or "ollama"
	LLMModel      string
	LLMBaseURL    string
	LLMAPIKey     string
	OllamaBaseURL string
}

// RegulatorConfig points at the external operational-guidance service used
// for regulator-operations queries.
type RegulatorConfig struct {
	BaseURL  string
	Username string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			NatsURL:            getEnv("NATS_URL", ""),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection:   getEnv("DB_CONNECTION_STRING", ""),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		},
		Search: SearchConfig{
			Endpoint:                getEnv("SEARCH_ENDPOINT", ""),
			APIKey:                  getEnv("SEARCH_API_KEY", ""),
			APIVersion:              getEnv("SEARCH_API_VERSION", "2023-11-01"),
			HelpGuidesIndex:         getEnv("SEARCH_HELP_GUIDES_INDEX", "help-guides"),
			PricingIndex:            getEnv("SEARCH_PRICING_INDEX", "pricing"),
			RegulatorIndex:          getEnv("SEARCH_REGULATOR_INDEX", "regulator-data"),
			RegulatorSemanticConfig: getEnv("SEARCH_REGULATOR_SEMANTIC_CONFIG", "default"),
			WebsiteChunkIndex:       getEnv("SEARCH_WEBSITE_CHUNK_INDEX", "website-chunks"),
			WebsiteEdgeIndex:        getEnv("SEARCH_WEBSITE_EDGE_INDEX", "website-edges"),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "openai"),
			LLMModel:      getEnv("LLM_MODEL", "gpt-4o-mini"),
			LLMBaseURL:    getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:     getEnv("LLM_API_KEY", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Regulator: RegulatorConfig{
			BaseURL:  getEnv("REGULATOR_API_BASE_URL", ""),
			Username: getEnv("REGULATOR_API_USERNAME", "user"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
