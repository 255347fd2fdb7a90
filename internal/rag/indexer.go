package rag

import (
	"context"
	"fmt"

	"github.com/taysluxe/tayai/internal/chunk"
	"github.com/taysluxe/tayai/internal/log"
	"github.com/taysluxe/tayai/internal/vecindex"
)

// Indexer writes content into the vector index.
//
// Indexing is best-effort: failures are logged and reported as a false
// success flag rather than an error, because the content remains in its
// primary store and can be reindexed later.
type Indexer struct {
	splitter *chunk.Splitter
	embedder Embedder
	index    VectorIndex
	logger   log.Logger
}

// NewIndexer creates an Indexer using the given splitter.
func NewIndexer(splitter *chunk.Splitter, embedder Embedder, index VectorIndex, logger log.Logger) *Indexer {
	return &Indexer{splitter: splitter, embedder: embedder, index: index, logger: logger}
}

// ChunkID returns the vector id of chunk i of a parent content id.
func ChunkID(contentID string, i int) string {
	return fmt.Sprintf("%s_chunk_%d", contentID, i)
}

// Index embeds content and upserts it under contentID.
//
// When chunked, content is split and each chunk is stored as its own
// record (id "{contentID}_chunk_{i}") with chunk position and parent id
// in metadata. All chunk texts are embedded in a single batch call.
// When not chunked, a single record is stored under contentID.
//
// Returns whether indexing succeeded and the list of stored vector ids.
// Empty content yields (false, nil) without touching any provider.
func (ix *Indexer) Index(ctx context.Context, content string, metadata map[string]any, contentID string, chunked bool) (bool, []string) {
	if !chunked {
		vector, err := ix.embedder.Embed(ctx, content)
		if err != nil {
			ix.logger.Error("indexing failed: embedding", "content_id", contentID, "error", err)
			return false, nil
		}

		record := vecindex.Record{
			ID:       contentID,
			Values:   vector,
			Metadata: mergeMetadata(metadata, map[string]any{MetaContent: content}),
		}
		if err := ix.index.Upsert(ctx, []vecindex.Record{record}); err != nil {
			ix.logger.Error("indexing failed: upsert", "content_id", contentID, "error", err)
			return false, nil
		}
		return true, []string{contentID}
	}

	title := ""
	if metadata != nil {
		title, _ = metadata[MetaTitle].(string)
	}
	chunks := ix.splitter.Split(content, title)
	if len(chunks) == 0 {
		ix.logger.Warn("nothing to index", "content_id", contentID)
		return false, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		ix.logger.Error("indexing failed: batch embedding",
			"content_id", contentID, "chunks", len(chunks), "error", err)
		return false, nil
	}

	records := make([]vecindex.Record, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = ChunkID(contentID, c.Index)
		records[i] = vecindex.Record{
			ID:     ids[i],
			Values: vectors[i],
			Metadata: mergeMetadata(metadata, map[string]any{
				MetaContent:     c.Text,
				MetaChunkIndex:  c.Index,
				MetaTotalChunks: c.Total,
				MetaParentID:    contentID,
			}),
		}
	}

	if err := ix.index.Upsert(ctx, records); err != nil {
		ix.logger.Error("indexing failed: upsert",
			"content_id", contentID, "chunks", len(records), "error", err)
		return false, nil
	}

	ix.logger.Info("indexed content", "content_id", contentID, "chunks", len(records))
	return true, ids
}

// Delete removes all vectors belonging to contentID: chunk records via
// the parent_id filter plus the bare id for unchunked content. Deleting
// absent content is a no-op success.
func (ix *Indexer) Delete(ctx context.Context, contentID string) bool {
	err := ix.index.Delete(ctx, []string{contentID}, map[string]string{MetaParentID: contentID})
	if err != nil {
		ix.logger.Error("delete failed", "content_id", contentID, "error", err)
		return false
	}
	return true
}

// Update replaces the indexed vectors for contentID with freshly chunked
// content. Delete and re-index are separate index operations; if the
// re-index fails the caller can retry via a full reindex.
func (ix *Indexer) Update(ctx context.Context, content string, metadata map[string]any, contentID string) bool {
	if !ix.Delete(ctx, contentID) {
		return false
	}
	ok, _ := ix.Index(ctx, content, metadata, contentID, true)
	return ok
}

// SearchSimilar runs a raw similarity search and returns the matches
// unformatted. Unlike Retriever.Retrieve this propagates provider
// errors; it backs the admin search surface where failures must be
// visible.
func (ix *Indexer) SearchSimilar(ctx context.Context, query string, topK int, filter map[string]string) ([]vecindex.Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vector, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return ix.index.Query(ctx, vector, topK, filter)
}

// Stats returns index statistics, degrading to zero stats when the
// provider call fails.
func (ix *Indexer) Stats(ctx context.Context) vecindex.Stats {
	stats, err := ix.index.Describe(ctx)
	if err != nil {
		ix.logger.Warn("index stats unavailable", "error", err)
		return vecindex.Stats{Namespaces: map[string]int{}}
	}
	return stats
}

// mergeMetadata copies base and overlays extra without mutating either.
func mergeMetadata(base, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
