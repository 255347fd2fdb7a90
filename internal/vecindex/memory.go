package vecindex

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/taysluxe/tayai/internal/log"
	"github.com/taysluxe/tayai/internal/provider"
)

// Memory is an in-process vector index backed by chromem-go.
// It serves dev mode and tests where PostgreSQL is unavailable.
//
// chromem stores metadata as strings, so the original metadata values
// are kept alongside in records and returned on query.
type Memory struct {
	collection *chromem.Collection

	mu      sync.RWMutex
	records map[string]map[string]any
	logger  log.Logger
}

// NewMemory creates an empty in-memory vector index.
func NewMemory(logger log.Logger) (*Memory, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection("vectors", nil, nil)
	if err != nil {
		return nil, provider.Errorf(provider.VectorIndex, "init", err)
	}
	return &Memory{
		collection: collection,
		records:    make(map[string]map[string]any),
		logger:     logger,
	}, nil
}

// Upsert inserts or fully replaces the given records.
func (m *Memory) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs := make([]chromem.Document, 0, len(records))
	var replaced []string
	for _, rec := range records {
		if _, ok := m.records[rec.ID]; ok {
			replaced = append(replaced, rec.ID)
		}
		docs = append(docs, chromem.Document{
			ID:        rec.ID,
			Content:   contentFromMetadata(rec.ID, rec.Metadata),
			Metadata:  stringifyMetadata(rec.Metadata),
			Embedding: rec.Values,
		})
	}

	// Re-adding an existing ID must replace, so drop stale copies first.
	if len(replaced) > 0 {
		if err := m.collection.Delete(ctx, nil, nil, replaced...); err != nil {
			return provider.Errorf(provider.VectorIndex, "upsert", err)
		}
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return provider.Errorf(provider.VectorIndex, "upsert", err)
	}

	for _, rec := range records {
		m.records[rec.ID] = rec.Metadata
	}

	m.logger.Debug("upserted vectors", "count", len(records))
	return nil
}

// Query returns the topK most similar vectors by cosine similarity,
// optionally restricted by an equality metadata filter.
func (m *Memory) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// chromem rejects NResults above the candidate count.
	candidates := m.collection.Count()
	if len(filter) > 0 {
		candidates = 0
		for _, metadata := range m.records {
			if matchesFilter(metadata, filter) {
				candidates++
			}
		}
	}
	n := min(topK, candidates)
	if n <= 0 {
		return nil, nil
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       n,
		Where:          filter,
	})
	if err != nil {
		return nil, provider.Errorf(provider.VectorIndex, "query", err)
	}

	matches := make([]Match, 0, len(results))
	for _, res := range results {
		matches = append(matches, Match{
			ID:       res.ID,
			Score:    float64(res.Similarity),
			Metadata: m.records[res.ID],
		})
	}
	return matches, nil
}

// Delete removes vectors by id and/or by metadata filter.
func (m *Memory) Delete(ctx context.Context, ids []string, filter map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	victims := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := m.records[id]; ok {
			victims = append(victims, id)
		}
	}
	if len(filter) > 0 {
		for id, metadata := range m.records {
			if matchesFilter(metadata, filter) {
				victims = append(victims, id)
			}
		}
	}
	if len(victims) == 0 {
		return nil
	}

	if err := m.collection.Delete(ctx, nil, nil, victims...); err != nil {
		return provider.Errorf(provider.VectorIndex, "delete", err)
	}
	for _, id := range victims {
		delete(m.records, id)
	}
	return nil
}

// Describe returns index statistics with vector counts grouped by the
// metadata "source" value.
func (m *Memory) Describe(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		TotalVectorCount: len(m.records),
		Dimension:        Dimension,
		Namespaces:       make(map[string]int),
	}
	for _, metadata := range m.records {
		if source, ok := metadata["source"].(string); ok {
			stats.Namespaces[source]++
		}
	}
	return stats, nil
}

// contentFromMetadata picks the document content chromem associates with
// a vector. The stored chunk text is used when present so exported
// collections stay inspectable.
func contentFromMetadata(id string, metadata map[string]any) string {
	if text, ok := metadata["content"].(string); ok && text != "" {
		return text
	}
	return id
}

func stringifyMetadata(metadata map[string]any) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for key, value := range metadata {
		out[key] = stringify(value)
	}
	return out
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
