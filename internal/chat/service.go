// Package chat implements the conversation pipeline: topic detection,
// context retrieval, prompt composition, model generation, and
// persistence of the resulting exchange.
//
// Generation failures never surface to the end user as errors. The
// service answers with a graceful in-persona fallback instead, so a
// provider outage degrades the experience rather than breaking it.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/taysluxe/tayai/internal/config"
	"github.com/taysluxe/tayai/internal/log"
	"github.com/taysluxe/tayai/internal/persona"
	"github.com/taysluxe/tayai/internal/rag"
	"github.com/taysluxe/tayai/internal/topic"
)

// maxHistoryMessages caps the conversation window when the config does
// not set one.
const maxHistoryMessages = 10

// Turn is one prior conversation entry supplied by the caller.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the outcome of processing one user message.
type Response struct {
	Text       string       `json:"response"`
	TokensUsed int          `json:"tokens_used"`
	MessageID  *uuid.UUID   `json:"message_id,omitempty"`
	Topic      topic.Topic  `json:"topic"`
	Sources    []rag.Source `json:"sources,omitempty"`
}

// PersonaTestResult is the outcome of a persona dry run.
type PersonaTestResult struct {
	Text          string       `json:"response"`
	TokensUsed    int          `json:"tokens_used"`
	Topic         topic.Topic  `json:"topic"`
	Sources       []rag.Source `json:"sources,omitempty"`
	PromptPreview string       `json:"system_prompt_preview"`
}

// Retriever supplies knowledge context for a query. Satisfied by
// *rag.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts ...rag.SearchOption) (rag.ContextBundle, error)
}

// Repository persists conversation messages. Satisfied by *Store.
type Repository interface {
	Save(ctx context.Context, userID, role, content string, t topic.Topic, tokens int) (uuid.UUID, error)
	History(ctx context.Context, userID string, limit, offset int) ([]Message, error)
	Recent(ctx context.Context, userID string, n int) ([]Message, error)
	Clear(ctx context.Context, userID string) (int, error)
}

// UsageRecorder tracks message consumption. Satisfied by
// *usage.Tracker.
type UsageRecorder interface {
	Record(ctx context.Context, userID string, tokens int) error
}

// Service runs the conversation pipeline.
type Service struct {
	g          *genkit.Genkit
	modelName  string
	cfg        *config.Config
	profile    *persona.Profile
	retriever  Retriever
	store      Repository
	usage      UsageRecorder
	logger     log.Logger
	retry      RetryConfig
	historyCap int
}

// NewService creates a chat service. profile may be nil to use the
// default persona.
func NewService(
	g *genkit.Genkit,
	cfg *config.Config,
	profile *persona.Profile,
	retriever Retriever,
	store Repository,
	usage UsageRecorder,
	logger log.Logger,
) *Service {
	if profile == nil {
		profile = persona.Default()
	}
	historyCap := cfg.MaxHistoryMessages
	if historyCap <= 0 {
		historyCap = maxHistoryMessages
	}
	return &Service{
		g:          g,
		modelName:  cfg.FullModelName(),
		cfg:        cfg,
		profile:    profile,
		retriever:  retriever,
		store:      store,
		usage:      usage,
		logger:     logger,
		retry:      DefaultRetryConfig(),
		historyCap: historyCap,
	}
}

// Process answers one user message and persists the exchange.
func (s *Service) Process(ctx context.Context, userID, message string, history []Turn, includeSources bool) (Response, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Response{}, fmt.Errorf("message is empty")
	}

	t := topic.Detect(message)

	bundle, err := s.retriever.Retrieve(ctx, message,
		rag.WithTopK(s.cfg.RetrievalTopK),
		rag.WithScoreThreshold(s.cfg.ScoreThreshold),
		rag.WithSource(rag.SourceKnowledgeBase),
	)
	if err != nil {
		// Retrieve degrades internally; an error here is unexpected
		// but still must not break the conversation.
		s.logger.Warn("context retrieval failed", "error", err)
		bundle = rag.ContextBundle{}
	}

	text, tokens, genErr := s.generate(ctx, t, bundle.Context, history, message)
	if genErr != nil {
		s.logger.Error("generation failed, answering with fallback",
			"user_id", userID, "topic", t, "error", genErr)
		resp := Response{
			Text:  persona.Fallback(persona.FallbackErrorGraceful),
			Topic: t,
		}
		return resp, nil
	}

	resp := Response{Text: text, TokensUsed: tokens, Topic: t}
	if includeSources {
		resp.Sources = bundle.Sources
	}

	if _, err := s.store.Save(ctx, userID, "user", message, t, 0); err != nil {
		s.logger.Warn("failed to persist user message", "user_id", userID, "error", err)
	}
	id, err := s.store.Save(ctx, userID, "assistant", text, t, tokens)
	if err != nil {
		s.logger.Warn("failed to persist assistant message", "user_id", userID, "error", err)
	} else {
		resp.MessageID = &id
	}

	if err := s.usage.Record(ctx, userID, tokens); err != nil {
		s.logger.Warn("failed to record usage", "user_id", userID, "error", err)
	}

	return resp, nil
}

// TestPersona runs the pipeline without persisting anything. An empty
// forcedTopic means detect from the message.
func (s *Service) TestPersona(ctx context.Context, message string, forcedTopic topic.Topic) (PersonaTestResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return PersonaTestResult{}, fmt.Errorf("message is empty")
	}

	t := forcedTopic
	if t == "" {
		t = topic.Detect(message)
	}

	bundle, err := s.retriever.Retrieve(ctx, message,
		rag.WithTopK(3),
		rag.WithScoreThreshold(s.cfg.ScoreThreshold),
		rag.WithSource(rag.SourceKnowledgeBase),
	)
	if err != nil {
		bundle = rag.ContextBundle{}
	}

	text, tokens, genErr := s.generate(ctx, t, bundle.Context, nil, message)
	if genErr != nil {
		return PersonaTestResult{}, fmt.Errorf("generating persona test response: %w", genErr)
	}

	prompt := persona.SystemPrompt(s.profile, t, bundle.Context != "")
	return PersonaTestResult{
		Text:          text,
		TokensUsed:    tokens,
		Topic:         t,
		Sources:       bundle.Sources,
		PromptPreview: promptPreview(prompt, 500),
	}, nil
}

// History returns the user's messages, newest first.
func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]Message, error) {
	return s.store.History(ctx, userID, limit, offset)
}

// RecentContext returns the user's last n messages in chronological
// order, as caller-shaped turns.
func (s *Service) RecentContext(ctx context.Context, userID string, n int) ([]Turn, error) {
	messages, err := s.store.Recent(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns, nil
}

// ClearHistory deletes the user's conversation and returns the count.
func (s *Service) ClearHistory(ctx context.Context, userID string) (int, error) {
	return s.store.Clear(ctx, userID)
}

func (s *Service) generate(ctx context.Context, t topic.Topic, contextText string, history []Turn, message string) (string, int, error) {
	system := persona.SystemPrompt(s.profile, t, contextText != "")

	var messages []*ai.Message
	if injection := persona.ContextInjection(contextText); injection != "" {
		messages = append(messages, ai.NewSystemTextMessage(injection))
	}
	messages = append(messages, historyMessages(history, s.historyCap)...)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(message)))

	resp, err := s.generateWithRetry(ctx,
		ai.WithModelName(s.modelName),
		ai.WithSystem(system),
		ai.WithMessages(messages...),
		ai.WithConfig(map[string]any{
			"temperature":     s.cfg.Temperature,
			"maxOutputTokens": s.cfg.MaxTokens,
		}),
	)
	if err != nil {
		return "", 0, err
	}

	text := resp.Text()
	return text, responseTokens(resp, text), nil
}

// historyMessages converts the last limit valid turns into model
// messages, dropping unknown roles.
func historyMessages(history []Turn, limit int) []*ai.Message {
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	var messages []*ai.Message
	for _, turn := range history {
		if turn.Content == "" {
			continue
		}
		switch turn.Role {
		case "user":
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(turn.Content)))
		case "assistant":
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(turn.Content)))
		case "system":
			messages = append(messages, ai.NewSystemTextMessage(turn.Content))
		}
	}
	return messages
}

// responseTokens reads provider token usage, estimating when the
// provider reports none.
func responseTokens(resp *ai.ModelResponse, text string) int {
	if resp.Usage != nil && resp.Usage.TotalTokens > 0 {
		return resp.Usage.TotalTokens
	}
	return len(text) / 4
}

func promptPreview(prompt string, n int) string {
	if len(prompt) <= n {
		return prompt
	}
	return prompt[:n] + "..."
}
