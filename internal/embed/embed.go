// Package embed wraps a Genkit embedder behind a small gateway that the
// indexing and retrieval layers depend on.
//
// The gateway normalizes provider failures into *provider.Error so callers
// can treat OpenAI, Google AI and Ollama embedders uniformly.
package embed

import (
	"context"
	"errors"

	"github.com/firebase/genkit/go/ai"

	"github.com/taysluxe/tayai/internal/log"
	"github.com/taysluxe/tayai/internal/provider"
)

// ErrEmptyInput indicates there was no text to embed.
var ErrEmptyInput = errors.New("empty embedding input")

// ErrNoEmbedding indicates the provider returned no vector for an input.
var ErrNoEmbedding = errors.New("provider returned no embedding")

// Gateway converts text into embedding vectors using a Genkit embedder.
type Gateway struct {
	embedder ai.Embedder
	logger   log.Logger
}

// New creates an embedding gateway.
func New(embedder ai.Embedder, logger log.Logger) *Gateway {
	return &Gateway{embedder: embedder, logger: logger}
}

// Embed returns the embedding vector for a single text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding vector per input text, in input order.
// All texts are sent in a single provider request.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, provider.Errorf(provider.Embedding, "embed", ErrEmptyInput)
	}

	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, provider.Errorf(provider.Embedding, "embed", ErrEmptyInput)
		}
		docs[i] = ai.DocumentFromText(text, nil)
	}

	resp, err := g.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		g.logger.Error("embedding request failed", "count", len(texts), "error", err)
		return nil, provider.Errorf(provider.Embedding, "embed", err)
	}

	if len(resp.Embeddings) != len(texts) {
		g.logger.Error("embedding count mismatch",
			"want", len(texts), "got", len(resp.Embeddings))
		return nil, provider.Errorf(provider.Embedding, "embed", ErrNoEmbedding)
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Embedding) == 0 {
			return nil, provider.Errorf(provider.Embedding, "embed", ErrNoEmbedding)
		}
		vectors[i] = emb.Embedding
	}

	g.logger.Debug("embedded texts", "count", len(texts), "dimension", len(vectors[0]))
	return vectors, nil
}
