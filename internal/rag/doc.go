// Package rag implements retrieval-augmented generation over the vector
// index.
//
// The package has two halves:
//
//   - Indexer: the write path. Content is chunked (internal/chunk),
//     embedded in one batch (internal/embed) and upserted into the vector
//     index, one record per chunk with the chunk text carried in
//     metadata. Indexing failures degrade: the caller gets a false flag,
//     never an error, because content stays available in its primary
//     store and can be reindexed.
//
//   - Retriever: the read path. A query is embedded, the index is
//     searched, matches below the score threshold are dropped and the
//     survivors are formatted into a single context block for prompt
//     injection. Retrieval also degrades: any provider failure yields an
//     empty context bundle, and the chat layer answers from the persona
//     alone.
//
// Both halves depend on consumer-defined Embedder and VectorIndex
// interfaces so tests run against in-memory fakes.
package rag
