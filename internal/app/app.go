// Package app provides application initialization and dependency
// wiring.
//
// App is the container that holds every long-lived component: Genkit,
// the database pool, the vector index, and the domain services built
// on top of them. Setup wires the full server stack; SetupLite wires
// only the model pipeline for database-free CLI use.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taysluxe/tayai/internal/chat"
	"github.com/taysluxe/tayai/internal/config"
	"github.com/taysluxe/tayai/internal/embed"
	"github.com/taysluxe/tayai/internal/knowledge"
	"github.com/taysluxe/tayai/internal/log"
	"github.com/taysluxe/tayai/internal/rag"
	"github.com/taysluxe/tayai/internal/usage"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool // nil in lite mode

	Embed     *embed.Gateway
	Retriever *rag.Retriever
	Indexer   *rag.Indexer

	Knowledge *knowledge.Service // nil in lite mode
	Usage     *usage.Tracker     // nil in lite mode
	Chat      *chat.Service      // nil in lite mode

	otelCleanup func()
}

// Close gracefully releases all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
