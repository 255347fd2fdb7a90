package config

import (
	"errors"
	"testing"
	"time"
)

// validBaseConfig returns a Config with all required fields set for the
// given provider.
func validBaseConfig(provider string) *Config {
	cfg := &Config{
		Provider:           provider,
		ModelName:          "gpt-4o-mini",
		Temperature:        0.7,
		MaxTokens:          1000,
		EmbedderModel:      DefaultEmbedderModel,
		MaxHistoryMessages: 10,
		ChunkSize:          500,
		RetrievalTopK:      5,
		ScoreThreshold:     0.7,
		VectorStore:        VectorStorePostgres,
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresUser:       "tayai",
		PostgresPassword:   "test_password",
		PostgresDBName:     "tayai",
		PostgresSSLMode:    "disable",
		TierLimits:         map[string]int{"basic": 50, "premium": 200, "vip": 0},
		UsageCacheTTL:      time.Hour,
		ServerAddr:         ":8080",
	}
	switch provider {
	case ProviderGoogleAI:
		cfg.ModelName = "gemini-2.5-flash"
	case ProviderOllama:
		cfg.ModelName = "llama3.3"
		cfg.OllamaHost = "http://localhost:11434"
	}
	return cfg
}

// setEnvForProvider sets the required API key for the given provider.
func setEnvForProvider(t *testing.T, provider string) {
	t.Helper()
	switch provider {
	case ProviderOpenAI:
		t.Setenv("OPENAI_API_KEY", "test-openai-key")
	case ProviderGoogleAI:
		t.Setenv("GEMINI_API_KEY", "test-gemini-key")
	}
}

func TestValidateSuccess(t *testing.T) {
	for _, provider := range []string{ProviderOpenAI, ProviderGoogleAI, ProviderOllama} {
		t.Run(provider, func(t *testing.T) {
			setEnvForProvider(t, provider)
			cfg := validBaseConfig(provider)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() = %v, want ErrConfigNil", err)
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := validBaseConfig(ProviderOpenAI)
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Validate() = %v, want ErrMissingAPIKey", err)
	}
}

func TestValidateUnknownProvider(t *testing.T) {
	cfg := validBaseConfig(ProviderOpenAI)
	cfg.Provider = "anthropic"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidProvider) {
		t.Errorf("Validate() = %v, want ErrInvalidProvider", err)
	}
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty model", func(c *Config) { c.ModelName = "" }, ErrInvalidModelName},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, ErrInvalidTemperature},
		{"temperature negative", func(c *Config) { c.Temperature = -0.1 }, ErrInvalidTemperature},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }, ErrInvalidMaxTokens},
		{"empty embedder", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidEmbedderModel},
		{"chunk size too small", func(c *Config) { c.ChunkSize = 10 }, ErrInvalidChunkSize},
		{"chunk size too large", func(c *Config) { c.ChunkSize = 100000 }, ErrInvalidChunkSize},
		{"zero top k", func(c *Config) { c.RetrievalTopK = 0 }, ErrInvalidTopK},
		{"threshold above one", func(c *Config) { c.ScoreThreshold = 1.5 }, ErrInvalidScoreThreshold},
		{"unknown vector store", func(c *Config) { c.VectorStore = "pinecone" }, ErrInvalidVectorStore},
		{"negative tier limit", func(c *Config) { c.TierLimits["basic"] = -1 }, ErrInvalidTierLimit},
		{"empty postgres host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"postgres port out of range", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
		{"empty postgres db", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"empty postgres password", func(c *Config) { c.PostgresPassword = "" }, ErrInvalidPostgresPassword},
		{"short postgres password", func(c *Config) { c.PostgresPassword = "short" }, ErrInvalidPostgresPassword},
		{"deprecated ssl mode", func(c *Config) { c.PostgresSSLMode = "prefer" }, ErrInvalidPostgresSSLMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvForProvider(t, ProviderOpenAI)
			cfg := validBaseConfig(ProviderOpenAI)
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMemoryStoreSkipsPostgres(t *testing.T) {
	setEnvForProvider(t, ProviderOpenAI)

	cfg := validBaseConfig(ProviderOpenAI)
	cfg.VectorStore = VectorStoreMemory
	cfg.PostgresHost = ""
	cfg.PostgresPassword = ""

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with memory store = %v, want nil", err)
	}
}
