// Package knowledge manages the knowledge base: relational content rows
// and their derived vectors in the index.
//
// Store is the pgx-backed persistence layer for the knowledge_base
// table. Service composes Store with the RAG indexer and keeps the two
// in sync: rows are the source of truth, vectors are derived state that
// can always be rebuilt via ReindexAll.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taysluxe/tayai/internal/log"
)

// ErrNotFound indicates the requested knowledge item does not exist.
var ErrNotFound = errors.New("knowledge item not found")

// Item is one knowledge base entry.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	IsActive  bool      `json:"is_active"`
	VectorID  string    `json:"vector_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch describes a partial update. Nil fields are left unchanged.
type Patch struct {
	Title    *string
	Content  *string
	Category *string
	Tags     []string
	IsActive *bool
}

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists knowledge items in the knowledge_base table.
type Store struct {
	db     Querier
	logger log.Logger
}

// NewStore creates a knowledge store.
func NewStore(db Querier, logger log.Logger) *Store {
	return &Store{db: db, logger: logger}
}

const itemColumns = `id, title, content, category, tags, is_active, COALESCE(vector_id, ''), created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.Title, &item.Content, &item.Category,
		&item.Tags, &item.IsActive, &item.VectorID, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("scanning knowledge item: %w", err)
	}
	return item, nil
}

// Insert creates a new knowledge item and returns it with generated
// fields populated.
func (s *Store) Insert(ctx context.Context, title, content, category string, tags []string) (Item, error) {
	if tags == nil {
		tags = []string{}
	}
	row := s.db.QueryRow(ctx, `
INSERT INTO knowledge_base (title, content, category, tags)
VALUES ($1, $2, $3, $4)
RETURNING `+itemColumns, title, content, category, tags)

	item, err := scanItem(row)
	if err != nil {
		return Item{}, fmt.Errorf("inserting knowledge item: %w", err)
	}
	return item, nil
}

// Get returns the item with the given id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Item, error) {
	row := s.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM knowledge_base WHERE id = $1`, id)
	return scanItem(row)
}

// Update applies a partial update and returns the updated item.
func (s *Store) Update(ctx context.Context, id uuid.UUID, patch Patch) (Item, error) {
	row := s.db.QueryRow(ctx, `
UPDATE knowledge_base
SET title      = COALESCE($2, title),
    content    = COALESCE($3, content),
    category   = COALESCE($4, category),
    tags       = COALESCE($5, tags),
    is_active  = COALESCE($6, is_active),
    updated_at = now()
WHERE id = $1
RETURNING `+itemColumns,
		id, patch.Title, patch.Content, patch.Category, patch.Tags, patch.IsActive)
	return scanItem(row)
}

// SetVectorID records the vector index id derived for an item.
func (s *Store) SetVectorID(ctx context.Context, id uuid.UUID, vectorID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE knowledge_base SET vector_id = $2, updated_at = now() WHERE id = $1`, id, vectorID)
	if err != nil {
		return fmt.Errorf("setting vector id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an item.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM knowledge_base WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting knowledge item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns items, newest first. Empty category means all categories;
// activeOnly restricts to active items.
func (s *Store) List(ctx context.Context, category string, activeOnly bool, limit, offset int) ([]Item, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + itemColumns + ` FROM knowledge_base WHERE ($1 = '' OR category = $1)`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing knowledge items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing knowledge items: %w", err)
	}
	return items, nil
}

// Categories returns active item counts grouped by category.
func (s *Store) Categories(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.Query(ctx, `
SELECT category, count(*)
FROM knowledge_base
WHERE is_active
GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("counting categories: %w", err)
		}
		counts[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	return counts, nil
}

// Counts returns total and active row counts.
func (s *Store) Counts(ctx context.Context) (total, active int, err error) {
	err = s.db.QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE is_active) FROM knowledge_base`).
		Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("counting knowledge items: %w", err)
	}
	return total, active, nil
}
