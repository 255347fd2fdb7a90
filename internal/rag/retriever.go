package rag

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/taysluxe/tayai/internal/log"
)

// sectionSeparator joins formatted matches into one context block.
const sectionSeparator = "\n\n---\n\n"

// ContextBundle is the result of a retrieval: the formatted context block
// and the metadata the chat layer surfaces back to the user.
type ContextBundle struct {
	// Context is the joined, formatted match text. Empty when nothing
	// survived the score threshold.
	Context string

	// Sources lists the surviving matches in score order.
	Sources []Source

	// TotalMatches is the number of surviving matches.
	TotalMatches int

	// AverageScore is the mean similarity of survivors, rounded to
	// three decimals. Zero when there are none.
	AverageScore float64
}

// Source identifies where a piece of retrieved context came from.
type Source struct {
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	ChunkID  string  `json:"chunk_id"`
}

type searchConfig struct {
	topK      int
	threshold float64
	filter    map[string]string
}

// SearchOption configures a single Retrieve call.
type SearchOption func(*searchConfig)

// WithTopK overrides the number of matches requested from the index.
func WithTopK(k int) SearchOption {
	return func(cfg *searchConfig) {
		if k > 0 {
			cfg.topK = k
		}
	}
}

// WithScoreThreshold overrides the minimum similarity for a match to be
// included.
func WithScoreThreshold(threshold float64) SearchOption {
	return func(cfg *searchConfig) {
		cfg.threshold = threshold
	}
}

// WithFilter restricts retrieval to vectors whose metadata key equals
// value. Repeated options AND together.
func WithFilter(key, value string) SearchOption {
	return func(cfg *searchConfig) {
		if cfg.filter == nil {
			cfg.filter = make(map[string]string)
		}
		cfg.filter[key] = value
	}
}

// WithSource restricts retrieval to a single namespace, e.g.
// SourceKnowledgeBase.
func WithSource(source string) SearchOption {
	return WithFilter(MetaSource, source)
}

// Retriever embeds queries and assembles retrieved context for prompt
// injection.
type Retriever struct {
	embedder Embedder
	index    VectorIndex
	logger   log.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder Embedder, index VectorIndex, logger log.Logger) *Retriever {
	return &Retriever{embedder: embedder, index: index, logger: logger}
}

// Retrieve finds content relevant to query and formats it for prompt
// injection.
//
// Retrieval never fails the caller: provider errors are logged and an
// empty bundle is returned, so the chat layer degrades to answering
// without knowledge base context.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...SearchOption) (ContextBundle, error) {
	cfg := searchConfig{topK: DefaultTopK, threshold: DefaultScoreThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("retrieval degraded: query embedding failed", "error", err)
		return ContextBundle{}, nil
	}

	matches, err := r.index.Query(ctx, vector, cfg.topK, cfg.filter)
	if err != nil {
		r.logger.Warn("retrieval degraded: index query failed", "error", err)
		return ContextBundle{}, nil
	}

	var (
		sections []string
		sources  []Source
		scoreSum float64
	)
	for _, m := range matches {
		if m.Score < cfg.threshold {
			continue
		}
		// Untitled content still gets a named source entry; only the
		// formatted context drops the heading.
		title := metaString(m.Metadata, MetaTitle)
		if title == "" {
			title = "Unknown"
		}
		sections = append(sections, formatMatch(m.Metadata))
		sources = append(sources, Source{
			Title:    title,
			Category: metaString(m.Metadata, MetaCategory),
			Score:    round3(m.Score),
			ChunkID:  m.ID,
		})
		scoreSum += m.Score
	}

	if len(sections) == 0 {
		r.logger.Debug("no matches above threshold",
			"query_length", len(query), "candidates", len(matches), "threshold", cfg.threshold)
		return ContextBundle{}, nil
	}

	bundle := ContextBundle{
		Context:      strings.Join(sections, sectionSeparator),
		Sources:      sources,
		TotalMatches: len(sections),
		AverageScore: round3(scoreSum / float64(len(sections))),
	}
	r.logger.Debug("retrieved context",
		"matches", bundle.TotalMatches, "avg_score", bundle.AverageScore)
	return bundle, nil
}

// formatMatch renders one match as a context section:
// "**{title}** ({category})\n{content}". Missing title drops the heading
// line entirely; missing category drops the parenthetical.
func formatMatch(metadata map[string]any) string {
	content := metaString(metadata, MetaContent)
	title := metaString(metadata, MetaTitle)
	if title == "" {
		return content
	}

	heading := "**" + title + "**"
	if category := metaString(metadata, MetaCategory); category != "" {
		heading += " (" + category + ")"
	}
	return heading + "\n" + content
}

func metaString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	if s, ok := metadata[key].(string); ok {
		return s
	}
	if v, ok := metadata[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
