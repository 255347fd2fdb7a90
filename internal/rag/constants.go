// Package rag constants.go defines shared constants and the provider
// interfaces for RAG operations.
package rag

import (
	"context"

	"github.com/taysluxe/tayai/internal/vecindex"
)

// Retrieval defaults, overridable per call via SearchOption.
const (
	// DefaultTopK is the number of matches requested from the index.
	DefaultTopK = 5

	// DefaultScoreThreshold is the minimum cosine similarity a match
	// needs to survive filtering.
	DefaultScoreThreshold = 0.7
)

// Metadata keys written by the Indexer and read by the Retriever.
const (
	// MetaContent carries the chunk text.
	MetaContent = "content"

	// MetaTitle and MetaCategory describe the parent content and drive
	// context formatting.
	MetaTitle    = "title"
	MetaCategory = "category"

	// MetaParentID links a chunk back to its parent content id.
	MetaParentID = "parent_id"

	// MetaChunkIndex and MetaTotalChunks position a chunk within its
	// parent.
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"

	// MetaSource names the namespace a vector belongs to.
	MetaSource = "source"
)

// SourceKnowledgeBase is the namespace for managed knowledge content.
const SourceKnowledgeBase = "knowledge_base"

// Embedder converts text to embedding vectors.
// Satisfied by *embed.Gateway.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the similarity store the RAG layer reads and writes.
// Satisfied by *vecindex.Postgres and *vecindex.Memory.
type VectorIndex interface {
	Upsert(ctx context.Context, records []vecindex.Record) error
	Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]vecindex.Match, error)
	Delete(ctx context.Context, ids []string, filter map[string]string) error
	Describe(ctx context.Context) (vecindex.Stats, error)
}
