// Package usage enforces per-tier monthly message quotas.
//
// Usage is tracked per user per calendar month (UTC). A small
// in-process TTL cache sits in front of Postgres so quota checks on
// the hot chat path avoid a round trip per message; the cache entry is
// invalidated whenever usage is recorded.
package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taysluxe/tayai/internal/config"
	"github.com/taysluxe/tayai/internal/log"
)

// DefaultCacheTTL bounds staleness of cached usage counts.
const DefaultCacheTTL = time.Hour

// Status describes a user's quota position for the current period.
type Status struct {
	UserID       string    `json:"user_id"`
	Tier         string    `json:"tier"`
	MessagesUsed int       `json:"messages_used"`
	MessageLimit int       `json:"message_limit"`
	TokensUsed   int64     `json:"tokens_used"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
	CanSend      bool      `json:"can_send"`
}

// DB is the database contract Tracker depends on. Satisfied by
// *pgxpool.Pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cacheEntry struct {
	messages int
	tokens   int64
	expires  time.Time
}

// Tracker records message usage and answers quota questions.
type Tracker struct {
	db     DB
	cfg    *config.Config
	logger log.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

// New creates a usage tracker backed by db.
func New(db DB, cfg *config.Config, logger log.Logger) *Tracker {
	ttl := cfg.UsageCacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Tracker{
		db:     db,
		cfg:    cfg,
		logger: logger,
		cache:  make(map[string]cacheEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// PeriodBounds returns the UTC calendar month containing t.
func PeriodBounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// CheckLimit reports whether userID may send another message under
// tier. A zero limit means unlimited.
func (t *Tracker) CheckLimit(ctx context.Context, userID, tier string) (bool, error) {
	limit := t.cfg.TierLimit(tier)
	if limit <= 0 {
		return true, nil
	}

	used, _, err := t.currentUsage(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("checking usage limit: %w", err)
	}
	return used < limit, nil
}

// Record bumps the current period's counters for userID.
func (t *Tracker) Record(ctx context.Context, userID string, tokens int) error {
	start, _ := PeriodBounds(t.now())

	const q = `
		INSERT INTO usage_tracking (user_id, period_start, message_count, tokens_used)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id, period_start) DO UPDATE SET
			message_count = usage_tracking.message_count + 1,
			tokens_used = usage_tracking.tokens_used + EXCLUDED.tokens_used,
			updated_at = now()`
	if _, err := t.db.Exec(ctx, q, userID, start, tokens); err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}

	t.mu.Lock()
	delete(t.cache, userID)
	t.mu.Unlock()
	return nil
}

// Status returns the user's position in the current period.
func (t *Tracker) Status(ctx context.Context, userID, tier string) (Status, error) {
	start, end := PeriodBounds(t.now())
	limit := t.cfg.TierLimit(tier)

	used, tokens, err := t.currentUsage(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("loading usage status: %w", err)
	}

	return Status{
		UserID:       userID,
		Tier:         tier,
		MessagesUsed: used,
		MessageLimit: limit,
		TokensUsed:   tokens,
		PeriodStart:  start,
		PeriodEnd:    end,
		CanSend:      limit <= 0 || used < limit,
	}, nil
}

func (t *Tracker) currentUsage(ctx context.Context, userID string) (int, int64, error) {
	now := t.now()

	t.mu.Lock()
	if entry, ok := t.cache[userID]; ok && now.Before(entry.expires) {
		t.mu.Unlock()
		return entry.messages, entry.tokens, nil
	}
	t.mu.Unlock()

	start, _ := PeriodBounds(now)
	var messages int
	var tokens int64
	const q = `
		SELECT COALESCE(sum(message_count), 0), COALESCE(sum(tokens_used), 0)
		FROM usage_tracking
		WHERE user_id = $1 AND period_start = $2`
	if err := t.db.QueryRow(ctx, q, userID, start).Scan(&messages, &tokens); err != nil {
		return 0, 0, err
	}

	t.mu.Lock()
	t.cache[userID] = cacheEntry{messages: messages, tokens: tokens, expires: now.Add(t.ttl)}
	t.mu.Unlock()
	return messages, tokens, nil
}
