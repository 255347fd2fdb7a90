// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.tayai/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, model, temperature, max tokens, embedder
//   - Storage: PostgreSQL connection and vector store selection (storage.go)
//   - Retrieval: chunk size, top-k, score threshold
//   - Usage: per-tier monthly message limits
//   - Server: HTTP address, CORS, rate limiting
//
// Sensitive values (passwords, API keys) are masked in MarshalJSON and
// never appear in logs. Validation lives in validation.go and returns
// sentinel errors checkable with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top_k")

	// ErrInvalidScoreThreshold indicates the similarity threshold is out of range.
	ErrInvalidScoreThreshold = errors.New("invalid score threshold")

	// ErrInvalidVectorStore indicates the vector store backend is not supported.
	ErrInvalidVectorStore = errors.New("invalid vector store")

	// ErrInvalidTierLimit indicates a tier message limit is invalid.
	ErrInvalidTierLimit = errors.New("invalid tier limit")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
)

// Vector store backend identifiers used in Config.VectorStore.
const (
	VectorStorePostgres = "postgres"
	VectorStoreMemory   = "memory"
)

const (
	// DefaultEmbedderModel is the default OpenAI embedding model.
	// text-embedding-3-small outputs 1536 dimensions, matching the
	// pgvector schema in db/migrations.
	DefaultEmbedderModel = "text-embedding-3-small"

	// DefaultMaxHistoryMessages is the number of prior conversation
	// messages included in each completion request.
	DefaultMaxHistoryMessages = 10
)

// Config stores application configuration.
// Sensitive fields are explicitly masked in MarshalJSON(); when adding a
// new password or key field, update MarshalJSON as well.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "openai" (default), "googleai", "ollama"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gpt-4o-mini", "gemini-2.5-flash", "llama3.3"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Embedding configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Conversation history configuration
	MaxHistoryMessages int `mapstructure:"max_history_messages" json:"max_history_messages"`

	// Chunking and retrieval configuration
	ChunkSize      int     `mapstructure:"chunk_size" json:"chunk_size"`
	RetrievalTopK  int     `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`
	ScoreThreshold float64 `mapstructure:"score_threshold" json:"score_threshold"`

	// Vector store backend: "postgres" (default) or "memory"
	VectorStore string `mapstructure:"vector_store" json:"vector_store"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Usage limits per subscription tier (monthly messages, 0 = unlimited)
	TierLimits map[string]int `mapstructure:"tier_limits" json:"tier_limits"`

	// Usage status cache TTL
	UsageCacheTTL time.Duration `mapstructure:"usage_cache_ttl" json:"usage_cache_ttl"`

	// HTTP server configuration
	ServerAddr     string   `mapstructure:"server_addr" json:"server_addr"`
	CORSOrigins    []string `mapstructure:"cors_origins" json:"cors_origins"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
	TrustProxy     bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Forwarded-For (set behind reverse proxy)

	// Observability configuration (OTLP trace export, empty endpoint disables)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	Environment  string `mapstructure:"environment" json:"environment"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"` // "debug", "info", "warn", "error"
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".tayai")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderOpenAI)
	viper.SetDefault("model_name", "gpt-4o-mini")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 1000)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("max_history_messages", DefaultMaxHistoryMessages)

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Chunking and retrieval defaults
	viper.SetDefault("chunk_size", 500)
	viper.SetDefault("retrieval_top_k", 5)
	viper.SetDefault("score_threshold", 0.7)

	// Vector store defaults
	viper.SetDefault("vector_store", VectorStorePostgres)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "tayai")
	viper.SetDefault("postgres_password", "tayai_dev_password")
	viper.SetDefault("postgres_db_name", "tayai")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Tier defaults: messages per calendar month, 0 means unlimited
	viper.SetDefault("tier_limits", map[string]int{
		"basic":   50,
		"premium": 200,
		"vip":     0,
	})
	viper.SetDefault("usage_cache_ttl", time.Hour)

	// HTTP server defaults
	viper.SetDefault("server_addr", ":8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("rate_limit_rps", 10.0)
	viper.SetDefault("rate_limit_burst", 20)
	viper.SetDefault("trust_proxy", false)

	// Observability defaults
	viper.SetDefault("otlp_endpoint", "")
	viper.SetDefault("environment", "dev")

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variable overrides explicitly.
// Provider API keys (OPENAI_API_KEY, GEMINI_API_KEY) are read directly by
// the Genkit plugins, not via Viper; Validate checks their presence based
// on the selected provider.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "TAYAI_PROVIDER")
	mustBind("model_name", "TAYAI_MODEL_NAME")
	mustBind("embedder_model", "TAYAI_EMBEDDER_MODEL")
	mustBind("ollama_host", "TAYAI_OLLAMA_HOST")
	mustBind("vector_store", "TAYAI_VECTOR_STORE")
	mustBind("server_addr", "TAYAI_SERVER_ADDR")
	mustBind("cors_origins", "TAYAI_CORS_ORIGINS")
	mustBind("trust_proxy", "TAYAI_TRUST_PROXY")
	mustBind("otlp_endpoint", "TAYAI_OTLP_ENDPOINT")
	mustBind("environment", "TAYAI_ENVIRONMENT")
	mustBind("log_level", "TAYAI_LOG_LEVEL")
	mustBind("log_json", "TAYAI_LOG_JSON")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matches against real secret content.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets show
// the first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "openai/gpt-4o-mini", "googleai/gemini-2.5-flash", "ollama/llama3.3".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderGoogleAI:
		return ProviderGoogleAI + "/" + c.ModelName
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	default:
		return ProviderOpenAI + "/" + c.ModelName
	}
}

// TierLimit returns the monthly message limit for a subscription tier.
// Unknown tiers fall back to the basic tier limit; 0 means unlimited.
func (c *Config) TierLimit(tier string) int {
	if limit, ok := c.TierLimits[strings.ToLower(tier)]; ok {
		return limit
	}
	return c.TierLimits["basic"]
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
