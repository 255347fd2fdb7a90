// Package vecindex provides vector index gateways for similarity search.
//
// Two implementations share one contract: Postgres (pgvector, the
// production store) and Memory (chromem-go, for dev mode and tests).
// Both normalize failures into *provider.Error with provider
// "vector-index" and leave retry policy to callers.
package vecindex

import "time"

// Dimension is the embedding dimension of the index, matching the
// vector(1536) column in db/migrations and text-embedding-3-small output.
const Dimension = 1536

// UpsertBatchSize caps the number of records sent to the store in one
// physical batch. Larger inputs are paged transparently.
const UpsertBatchSize = 100

// queryTimeout bounds a single similarity search.
const queryTimeout = 10 * time.Second

// Record is a vector with its identity and metadata, as stored in the index.
// Upserting an existing ID fully replaces both values and metadata.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Match is a similarity search hit. Score is cosine similarity in [0, 1],
// higher is more similar.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Stats describes the index contents. Namespaces groups vector counts by
// the metadata "source" value.
type Stats struct {
	TotalVectorCount int
	Dimension        int
	Namespaces       map[string]int
}

// matchesFilter reports whether metadata satisfies every equality
// predicate in filter. Non-string metadata values are compared by their
// string form.
func matchesFilter(metadata map[string]any, filter map[string]string) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if s, ok := got.(string); ok {
			if s != want {
				return false
			}
			continue
		}
		if stringify(got) != want {
			return false
		}
	}
	return true
}
