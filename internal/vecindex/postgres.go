package vecindex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/taysluxe/tayai/internal/log"
	"github.com/taysluxe/tayai/internal/provider"
)

// Querier is the subset of pgxpool.Pool the Postgres index needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Postgres is a vector index backed by PostgreSQL with the pgvector
// extension. Vectors live in the vectors table created by db/migrations.
type Postgres struct {
	db     Querier
	logger log.Logger
}

// NewPostgres creates a Postgres-backed vector index.
func NewPostgres(db Querier, logger log.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

const upsertSQL = `
INSERT INTO vectors (id, embedding, metadata)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE
SET embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata,
    updated_at = now()`

// Upsert inserts or fully replaces the given records.
// Records are written in batches of UpsertBatchSize.
func (p *Postgres) Upsert(ctx context.Context, records []Record) error {
	for start := 0; start < len(records); start += UpsertBatchSize {
		end := min(start+UpsertBatchSize, len(records))

		batch := &pgx.Batch{}
		for _, rec := range records[start:end] {
			metadataJSON, err := json.Marshal(rec.Metadata)
			if err != nil {
				return provider.Errorf(provider.VectorIndex, "upsert",
					fmt.Errorf("marshal metadata for %q: %w", rec.ID, err))
			}
			batch.Queue(upsertSQL, rec.ID, pgvector.NewVector(rec.Values), metadataJSON)
		}

		results := p.db.SendBatch(ctx, batch)
		var execErr error
		for range end - start {
			if _, err := results.Exec(); err != nil && execErr == nil {
				execErr = err
			}
		}
		if err := results.Close(); err != nil && execErr == nil {
			execErr = err
		}
		if execErr != nil {
			return provider.Errorf(provider.VectorIndex, "upsert", execErr)
		}
	}

	p.logger.Debug("upserted vectors", "count", len(records))
	return nil
}

// Query returns the topK most similar vectors by cosine similarity,
// optionally restricted to vectors whose metadata contains every
// key/value pair in filter.
func (p *Postgres) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]Match, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := pgvector.NewVector(vector)

	var rows pgx.Rows
	var err error
	if len(filter) > 0 {
		// Filter values are marshaled, never interpolated; @> with a
		// parameter is injection-safe.
		filterJSON, marshalErr := json.Marshal(filter)
		if marshalErr != nil {
			return nil, provider.Errorf(provider.VectorIndex, "query", marshalErr)
		}
		rows, err = p.db.Query(queryCtx, `
SELECT id, 1 - (embedding <=> $1) AS score, metadata
FROM vectors
WHERE metadata @> $2
ORDER BY embedding <=> $1
LIMIT $3`, query, filterJSON, topK)
	} else {
		rows, err = p.db.Query(queryCtx, `
SELECT id, 1 - (embedding <=> $1) AS score, metadata
FROM vectors
ORDER BY embedding <=> $1
LIMIT $2`, query, topK)
	}
	if err != nil {
		return nil, provider.Errorf(provider.VectorIndex, "query", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var metadataJSON []byte
		if err := rows.Scan(&m.ID, &m.Score, &metadataJSON); err != nil {
			return nil, provider.Errorf(provider.VectorIndex, "query", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
				return nil, provider.Errorf(provider.VectorIndex, "query", err)
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, provider.Errorf(provider.VectorIndex, "query", err)
	}

	return matches, nil
}

// Delete removes vectors by id and/or by metadata filter as one logical
// operation. Missing ids are a no-op; empty ids and filter delete nothing.
func (p *Postgres) Delete(ctx context.Context, ids []string, filter map[string]string) error {
	if len(ids) > 0 {
		if _, err := p.db.Exec(ctx, `DELETE FROM vectors WHERE id = ANY($1)`, ids); err != nil {
			return provider.Errorf(provider.VectorIndex, "delete", err)
		}
	}

	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return provider.Errorf(provider.VectorIndex, "delete", err)
		}
		if _, err := p.db.Exec(ctx, `DELETE FROM vectors WHERE metadata @> $1`, filterJSON); err != nil {
			return provider.Errorf(provider.VectorIndex, "delete", err)
		}
	}

	return nil
}

// Describe returns index statistics with vector counts grouped by the
// metadata "source" value.
func (p *Postgres) Describe(ctx context.Context) (Stats, error) {
	stats := Stats{Dimension: Dimension, Namespaces: make(map[string]int)}

	if err := p.db.QueryRow(ctx, `SELECT count(*) FROM vectors`).Scan(&stats.TotalVectorCount); err != nil {
		return Stats{}, provider.Errorf(provider.VectorIndex, "describe", err)
	}

	rows, err := p.db.Query(ctx, `
SELECT metadata->>'source', count(*)
FROM vectors
WHERE metadata ? 'source'
GROUP BY 1`)
	if err != nil {
		return Stats{}, provider.Errorf(provider.VectorIndex, "describe", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ns string
		var count int
		if err := rows.Scan(&ns, &count); err != nil {
			return Stats{}, provider.Errorf(provider.VectorIndex, "describe", err)
		}
		stats.Namespaces[ns] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, provider.Errorf(provider.VectorIndex, "describe", err)
	}

	return stats, nil
}
