package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taysluxe/tayai/internal/log"
	"github.com/taysluxe/tayai/internal/topic"
)

// Message is one persisted conversation entry.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	UserID    string      `json:"user_id"`
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	Topic     topic.Topic `json:"topic,omitempty"`
	Tokens    int         `json:"tokens_used"`
	CreatedAt time.Time   `json:"created_at"`
}

// Querier is the database contract Store depends on. Satisfied by
// *pgxpool.Pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists chat messages in Postgres.
type Store struct {
	db     Querier
	logger log.Logger
}

// NewStore creates a chat message store.
func NewStore(db Querier, logger log.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Save inserts one message and returns its id.
func (s *Store) Save(ctx context.Context, userID, role, content string, t topic.Topic, tokens int) (uuid.UUID, error) {
	if !validRole(role) {
		return uuid.Nil, fmt.Errorf("%w: %q", errInvalidRole, role)
	}
	const q = `
		INSERT INTO chat_messages (user_id, role, content, topic, tokens_used)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id uuid.UUID
	if err := s.db.QueryRow(ctx, q, userID, role, content, string(t), tokens).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("saving chat message: %w", err)
	}
	return id, nil
}

// History returns the user's messages, newest first.
func (s *Store) History(ctx context.Context, userID string, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT id, user_id, role, content, topic, tokens_used, created_at
		FROM chat_messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := s.db.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("loading chat history: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var topicStr string
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &topicStr, &m.Tokens, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		m.Topic = topic.Topic(topicStr)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading chat history: %w", err)
	}
	return messages, nil
}

// Recent returns the user's last n messages in chronological order.
func (s *Store) Recent(ctx context.Context, userID string, n int) ([]Message, error) {
	if n <= 0 {
		n = 10
	}
	messages, err := s.History(ctx, userID, n, 0)
	if err != nil {
		return nil, err
	}
	// History is newest first; reverse for conversation order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Clear deletes all of the user's messages and returns how many were
// removed.
func (s *Store) Clear(ctx context.Context, userID string) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM chat_messages WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing chat history: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// errInvalidRole guards against persisting roles the schema rejects.
var errInvalidRole = errors.New("invalid message role")

func validRole(role string) bool {
	switch role {
	case "user", "assistant", "system":
		return true
	}
	return false
}
