package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taysluxe/tayai/db"
	"github.com/taysluxe/tayai/internal/chat"
	"github.com/taysluxe/tayai/internal/chunk"
	"github.com/taysluxe/tayai/internal/config"
	"github.com/taysluxe/tayai/internal/embed"
	"github.com/taysluxe/tayai/internal/knowledge"
	"github.com/taysluxe/tayai/internal/log"
	"github.com/taysluxe/tayai/internal/observability"
	"github.com/taysluxe/tayai/internal/rag"
	"github.com/taysluxe/tayai/internal/usage"
	"github.com/taysluxe/tayai/internal/vecindex"
)

// Setup creates the full server stack: tracing, database, Genkit,
// vector index, and the chat/knowledge/usage services.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg.PostgresHost == "" {
		return nil, errors.New("server mode requires postgresql configuration")
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelCleanup(ctx, cfg, logger)

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder
	a.Embed = embed.New(embedder, logger.With("component", "embed"))

	index, err := provideVectorIndex(cfg, pool, logger)
	if err != nil {
		return nil, err
	}

	splitter := chunk.New(cfg.ChunkSize)
	a.Retriever = rag.NewRetriever(a.Embed, index, logger.With("component", "retriever"))
	a.Indexer = rag.NewIndexer(splitter, a.Embed, index, logger.With("component", "indexer"))

	store := knowledge.NewStore(pool, logger.With("component", "knowledge"))
	a.Knowledge = knowledge.NewService(store, a.Indexer, logger.With("component", "knowledge"))

	a.Usage = usage.New(pool, cfg, logger.With("component", "usage"))

	chatStore := chat.NewStore(pool, logger.With("component", "chat"))
	a.Chat = chat.NewService(g, cfg, nil, a.Retriever, chatStore, a.Usage,
		logger.With("component", "chat"))

	return a, nil
}

// SetupLite wires only the model pipeline: Genkit, embedder, and an
// in-memory vector index. No database, no persistence. Used by CLI
// commands that answer a single message.
func SetupLite(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder
	a.Embed = embed.New(embedder, logger.With("component", "embed"))

	index, err := vecindex.NewMemory(logger.With("component", "vecindex"))
	if err != nil {
		return nil, err
	}

	splitter := chunk.New(cfg.ChunkSize)
	a.Retriever = rag.NewRetriever(a.Embed, index, logger.With("component", "retriever"))
	a.Indexer = rag.NewIndexer(splitter, a.Embed, index, logger.With("component", "indexer"))

	return a, nil
}

// provideOtelCleanup sets up tracing before Genkit initialization so
// the TracerProvider is ready when flows start.
func provideOtelCleanup(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	shutdown, err := observability.SetupTracing(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
		ServiceName: observability.DefaultServiceName,
	}, logger)
	if err != nil {
		logger.Warn("tracing setup failed", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured AI provider.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama has no auto-discovery; register model and embedder.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderGoogleAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		logger.Info("initialized Genkit with googleai provider", "model", cfg.ModelName)

	default: // openai
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider
// plugin. Each provider registers embedders differently.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		// Keyed by server address, registered in provideGenkit.
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderGoogleAI:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	default: // openai auto-registers embedders in Init()
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	}
}

// provideDBPool runs migrations and creates the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideVectorIndex selects the vector backend from configuration.
func provideVectorIndex(cfg *config.Config, pool *pgxpool.Pool, logger log.Logger) (rag.VectorIndex, error) {
	switch cfg.VectorStore {
	case config.VectorStoreMemory:
		return vecindex.NewMemory(logger.With("component", "vecindex"))
	default:
		return vecindex.NewPostgres(pool, logger.With("component", "vecindex")), nil
	}
}
