package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taysluxe/tayai/internal/log"
	"github.com/taysluxe/tayai/internal/rag"
	"github.com/taysluxe/tayai/internal/vecindex"
)

// Repository is the persistence contract Service depends on.
// Satisfied by *Store.
type Repository interface {
	Insert(ctx context.Context, title, content, category string, tags []string) (Item, error)
	Get(ctx context.Context, id uuid.UUID) (Item, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (Item, error)
	SetVectorID(ctx context.Context, id uuid.UUID, vectorID string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, category string, activeOnly bool, limit, offset int) ([]Item, error)
	Categories(ctx context.Context) (map[string]int, error)
	Counts(ctx context.Context) (total, active int, err error)
}

// Indexer is the vector side of content lifecycle.
// Satisfied by *rag.Indexer.
type Indexer interface {
	Index(ctx context.Context, content string, metadata map[string]any, contentID string, chunked bool) (bool, []string)
	Delete(ctx context.Context, contentID string) bool
	Update(ctx context.Context, content string, metadata map[string]any, contentID string) bool
	SearchSimilar(ctx context.Context, query string, topK int, filter map[string]string) ([]vecindex.Match, error)
	Stats(ctx context.Context) vecindex.Stats
}

// CreateInput holds the fields for a new knowledge item.
type CreateInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// ErrInvalidInput marks caller mistakes, as opposed to infrastructure
// failures.
var ErrInvalidInput = errors.New("invalid input")

// Validate checks required fields.
func (in CreateInput) Validate() error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Content == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if in.Category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	return nil
}

// SearchResult is one hit from semantic search over the knowledge base.
type SearchResult struct {
	ChunkID  string  `json:"chunk_id"`
	Score    float64 `json:"score"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Content  string  `json:"content"`
}

// Stats summarizes the knowledge base and its vector index.
type Stats struct {
	TotalItems  int            `json:"total_items"`
	ActiveItems int            `json:"active_items"`
	Index       vecindex.Stats `json:"index"`
}

// ReindexReport counts the outcome of a full reindex.
type ReindexReport struct {
	Indexed int      `json:"indexed"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// BulkResult reports per-item outcomes of a bulk create.
type BulkResult struct {
	Created []Item   `json:"created"`
	Errors  []string `json:"errors,omitempty"`
}

// Service coordinates knowledge rows with their vectors.
type Service struct {
	repo    Repository
	indexer Indexer
	logger  log.Logger
}

// NewService creates a knowledge service.
func NewService(repo Repository, indexer Indexer, logger log.Logger) *Service {
	return &Service{repo: repo, indexer: indexer, logger: logger}
}

// VectorContentID returns the vector namespace id for a knowledge row.
func VectorContentID(id uuid.UUID) string {
	return "kb_" + id.String()
}

func indexMetadata(item Item) map[string]any {
	return map[string]any{
		rag.MetaTitle:    item.Title,
		rag.MetaCategory: item.Category,
		"id":             item.ID.String(),
		rag.MetaSource:   rag.SourceKnowledgeBase,
	}
}

// Create inserts a knowledge item and indexes its content.
// The row is the source of truth: an indexing failure is logged but the
// item is still created, recoverable later via ReindexAll.
func (s *Service) Create(ctx context.Context, in CreateInput) (Item, error) {
	if err := in.Validate(); err != nil {
		return Item{}, err
	}

	item, err := s.repo.Insert(ctx, in.Title, in.Content, in.Category, in.Tags)
	if err != nil {
		return Item{}, err
	}

	contentID := VectorContentID(item.ID)
	if ok, _ := s.indexer.Index(ctx, item.Content, indexMetadata(item), contentID, true); ok {
		if err := s.repo.SetVectorID(ctx, item.ID, contentID); err != nil {
			s.logger.Warn("indexed but failed to persist vector id",
				"id", item.ID, "error", err)
		} else {
			item.VectorID = contentID
		}
	} else {
		s.logger.Warn("knowledge item created without vectors, reindex later", "id", item.ID)
	}

	return item, nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Item, error) {
	return s.repo.Get(ctx, id)
}

// Update applies a partial update and reindexes when searchable fields
// changed.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (Item, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}

	item, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return Item{}, err
	}

	searchableChanged := item.Content != before.Content ||
		item.Title != before.Title ||
		item.Category != before.Category
	if searchableChanged {
		contentID := VectorContentID(item.ID)
		if s.indexer.Update(ctx, item.Content, indexMetadata(item), contentID) {
			if item.VectorID == "" {
				if err := s.repo.SetVectorID(ctx, item.ID, contentID); err == nil {
					item.VectorID = contentID
				}
			}
		} else {
			s.logger.Warn("reindex after update failed", "id", item.ID)
		}
	}

	return item, nil
}

// Delete removes an item's vectors and then its row.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if !s.indexer.Delete(ctx, VectorContentID(item.ID)) {
		s.logger.Warn("vector delete failed, row kept for retry", "id", item.ID)
		return fmt.Errorf("deleting vectors for %s", item.ID)
	}

	return s.repo.Delete(ctx, id)
}

// List returns items with optional category filter.
func (s *Service) List(ctx context.Context, category string, activeOnly bool, limit, offset int) ([]Item, error) {
	return s.repo.List(ctx, category, activeOnly, limit, offset)
}

// BulkCreate creates items one by one, collecting per-item failures
// instead of aborting the batch.
func (s *Service) BulkCreate(ctx context.Context, inputs []CreateInput) BulkResult {
	var result BulkResult
	for i, in := range inputs {
		item, err := s.Create(ctx, in)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("item %d (%s): %v", i, in.Title, err))
			continue
		}
		result.Created = append(result.Created, item)
	}
	return result
}

// ReindexAll rebuilds vectors for every active item.
func (s *Service) ReindexAll(ctx context.Context) (ReindexReport, error) {
	var report ReindexReport

	// Page through all active items.
	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		items, err := s.repo.List(ctx, "", true, pageSize, offset)
		if err != nil {
			return report, err
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			contentID := VectorContentID(item.ID)
			if !s.indexer.Update(ctx, item.Content, indexMetadata(item), contentID) {
				report.Failed++
				report.Errors = append(report.Errors, item.ID.String())
				continue
			}
			report.Indexed++
			if item.VectorID == "" {
				if err := s.repo.SetVectorID(ctx, item.ID, contentID); err != nil {
					s.logger.Warn("failed to persist vector id during reindex",
						"id", item.ID, "error", err)
				}
			}
		}

		if len(items) < pageSize {
			break
		}
	}

	s.logger.Info("reindex complete", "indexed", report.Indexed, "failed", report.Failed)
	return report, nil
}

// Categories returns active item counts per category.
func (s *Service) Categories(ctx context.Context) (map[string]int, error) {
	return s.repo.Categories(ctx)
}

// Stats combines row counts with index statistics. Index describe
// failures degrade to zero stats inside the indexer.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, active, err := s.repo.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalItems:  total,
		ActiveItems: active,
		Index:       s.indexer.Stats(ctx),
	}, nil
}

// Search runs semantic search over indexed knowledge, optionally
// restricted to one category.
func (s *Service) Search(ctx context.Context, query string, topK int, category string) ([]SearchResult, error) {
	filter := map[string]string{rag.MetaSource: rag.SourceKnowledgeBase}
	if category != "" {
		filter[rag.MetaCategory] = category
	}

	matches, err := s.indexer.SearchSimilar(ctx, query, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SearchResult{
			ChunkID:  m.ID,
			Score:    m.Score,
			Title:    metaString(m.Metadata, rag.MetaTitle),
			Category: metaString(m.Metadata, rag.MetaCategory),
			Content:  metaString(m.Metadata, rag.MetaContent),
		})
	}
	return results, nil
}

func metaString(metadata map[string]any, key string) string {
	if s, ok := metadata[key].(string); ok {
		return s
	}
	return ""
}
