package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/taysluxe/tayai/internal/log"
	"github.com/taysluxe/tayai/internal/vecindex"
)

// fakeEmbedder implements Embedder for testing.
type fakeEmbedder struct {
	embedErr   error
	batchErr   error
	embedCalls int
	batchCalls int
	lastBatch  []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	f.lastBatch = texts
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i), 1, 0}
	}
	return vectors, nil
}

// fakeIndex implements VectorIndex for testing.
type fakeIndex struct {
	upsertErr   error
	queryErr    error
	deleteErr   error
	describeErr error

	matches []vecindex.Match
	stats   vecindex.Stats

	upserted      []vecindex.Record
	lastTopK      int
	lastFilter    map[string]string
	deletedIDs    []string
	deletedFilter map[string]string
}

func (f *fakeIndex) Upsert(ctx context.Context, records []vecindex.Record) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, records...)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]vecindex.Match, error) {
	f.lastTopK = topK
	f.lastFilter = filter
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.matches, nil
}

func (f *fakeIndex) Delete(ctx context.Context, ids []string, filter map[string]string) error {
	f.deletedIDs = ids
	f.deletedFilter = filter
	return f.deleteErr
}

func (f *fakeIndex) Describe(ctx context.Context) (vecindex.Stats, error) {
	if f.describeErr != nil {
		return vecindex.Stats{}, f.describeErr
	}
	return f.stats, nil
}

func scoredMatch(id string, score float64, title, category string) vecindex.Match {
	return vecindex.Match{
		ID:    id,
		Score: score,
		Metadata: map[string]any{
			MetaContent:  "content of " + id,
			MetaTitle:    title,
			MetaCategory: category,
		},
	}
}

func TestRetrieveThresholdFiltering(t *testing.T) {
	index := &fakeIndex{matches: []vecindex.Match{
		scoredMatch("a", 0.9, "Doc A", "styling"),
		scoredMatch("b", 0.75, "Doc B", "business"),
		scoredMatch("c", 0.5, "Doc C", "styling"),
		scoredMatch("d", 0.3, "Doc D", "faq"),
	}}
	r := NewRetriever(&fakeEmbedder{}, index, log.NewNop())

	bundle, err := r.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}

	if bundle.TotalMatches != 2 {
		t.Errorf("TotalMatches = %d, want 2", bundle.TotalMatches)
	}
	if bundle.AverageScore != 0.825 {
		t.Errorf("AverageScore = %v, want 0.825", bundle.AverageScore)
	}
	if len(bundle.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(bundle.Sources))
	}
	if bundle.Sources[0].ChunkID != "a" || bundle.Sources[1].ChunkID != "b" {
		t.Errorf("sources = %+v", bundle.Sources)
	}
	if strings.Contains(bundle.Context, "Doc C") || strings.Contains(bundle.Context, "Doc D") {
		t.Error("below-threshold matches leaked into context")
	}
}

func TestRetrieveFormatting(t *testing.T) {
	index := &fakeIndex{matches: []vecindex.Match{
		scoredMatch("a", 0.9, "Curl Basics", "styling"),
		scoredMatch("b", 0.8, "Pricing 101", ""),
		{ID: "c", Score: 0.75, Metadata: map[string]any{MetaContent: "bare content"}},
	}}
	r := NewRetriever(&fakeEmbedder{}, index, log.NewNop())

	bundle, err := r.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}

	sections := strings.Split(bundle.Context, "\n\n---\n\n")
	if len(sections) != 3 {
		t.Fatalf("got %d sections, want 3: %q", len(sections), bundle.Context)
	}
	if sections[0] != "**Curl Basics** (styling)\ncontent of a" {
		t.Errorf("full heading section = %q", sections[0])
	}
	if sections[1] != "**Pricing 101**\ncontent of b" {
		t.Errorf("no-category section = %q", sections[1])
	}
	if sections[2] != "bare content" {
		t.Errorf("no-title section = %q", sections[2])
	}

	// The source entry for untitled content is still named, even
	// though the context section has no heading.
	if len(bundle.Sources) != 3 {
		t.Fatalf("got %d sources, want 3", len(bundle.Sources))
	}
	if bundle.Sources[2].Title != "Unknown" {
		t.Errorf("untitled source Title = %q, want %q", bundle.Sources[2].Title, "Unknown")
	}
}

func TestRetrieveNoSurvivors(t *testing.T) {
	index := &fakeIndex{matches: []vecindex.Match{
		scoredMatch("a", 0.6, "Doc A", "styling"),
	}}
	r := NewRetriever(&fakeEmbedder{}, index, log.NewNop())

	bundle, err := r.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}
	if bundle.Context != "" || bundle.TotalMatches != 0 || bundle.AverageScore != 0 {
		t.Errorf("expected empty bundle, got %+v", bundle)
	}
}

func TestRetrieveDegradesOnEmbedError(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{embedErr: errors.New("provider down")}, &fakeIndex{}, log.NewNop())

	bundle, err := r.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("Retrieve() = %v, want nil (degraded)", err)
	}
	if bundle.Context != "" || bundle.TotalMatches != 0 {
		t.Errorf("expected empty bundle, got %+v", bundle)
	}
}

func TestRetrieveDegradesOnQueryError(t *testing.T) {
	index := &fakeIndex{queryErr: errors.New("index down")}
	r := NewRetriever(&fakeEmbedder{}, index, log.NewNop())

	bundle, err := r.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("Retrieve() = %v, want nil (degraded)", err)
	}
	if bundle.TotalMatches != 0 {
		t.Errorf("expected empty bundle, got %+v", bundle)
	}
}

func TestRetrieveOptions(t *testing.T) {
	index := &fakeIndex{}
	r := NewRetriever(&fakeEmbedder{}, index, log.NewNop())

	_, err := r.Retrieve(context.Background(), "query",
		WithTopK(3),
		WithScoreThreshold(0.5),
		WithFilter("category", "styling"),
		WithSource(SourceKnowledgeBase),
	)
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}

	if index.lastTopK != 3 {
		t.Errorf("topK = %d, want 3", index.lastTopK)
	}
	if index.lastFilter["category"] != "styling" || index.lastFilter[MetaSource] != SourceKnowledgeBase {
		t.Errorf("filter = %v", index.lastFilter)
	}
}

func TestRetrieveCustomThreshold(t *testing.T) {
	index := &fakeIndex{matches: []vecindex.Match{
		scoredMatch("a", 0.6, "Doc A", "styling"),
	}}
	r := NewRetriever(&fakeEmbedder{}, index, log.NewNop())

	bundle, err := r.Retrieve(context.Background(), "query", WithScoreThreshold(0.5))
	if err != nil {
		t.Fatalf("Retrieve() = %v", err)
	}
	if bundle.TotalMatches != 1 {
		t.Errorf("TotalMatches = %d, want 1 at lowered threshold", bundle.TotalMatches)
	}
}

func TestRound3(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.8251, 0.825},
		{0.9996, 1.0},
		{1.0 / 3.0, 0.333},
		{0, 0},
	}
	for _, tt := range tests {
		if got := round3(tt.in); got != tt.want {
			t.Errorf("round3(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// Ensure fakes satisfy the interfaces.
var (
	_ Embedder    = (*fakeEmbedder)(nil)
	_ VectorIndex = (*fakeIndex)(nil)
)
