package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/taysluxe/tayai/internal/chat"
	"github.com/taysluxe/tayai/internal/log"
	"github.com/taysluxe/tayai/internal/topic"
	"github.com/taysluxe/tayai/internal/usage"
)

const maxChatBodyBytes = 64 << 10

// ChatService is the conversation pipeline the handlers call into.
// Satisfied by *chat.Service.
type ChatService interface {
	Process(ctx context.Context, userID, message string, history []chat.Turn, includeSources bool) (chat.Response, error)
	TestPersona(ctx context.Context, message string, forcedTopic topic.Topic) (chat.PersonaTestResult, error)
	History(ctx context.Context, userID string, limit, offset int) ([]chat.Message, error)
	ClearHistory(ctx context.Context, userID string) (int, error)
}

// UsageService answers quota questions. Satisfied by *usage.Tracker.
type UsageService interface {
	CheckLimit(ctx context.Context, userID, tier string) (bool, error)
	Status(ctx context.Context, userID, tier string) (usage.Status, error)
}

type chatHandler struct {
	chat   ChatService
	usage  UsageService
	logger log.Logger
}

type chatRequest struct {
	Message        string      `json:"message"`
	History        []chat.Turn `json:"history,omitempty"`
	IncludeSources bool        `json:"include_sources,omitempty"`
}

// send handles POST /api/v1/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	userID, tier, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user_required", "X-User-ID header required", h.logger)
		return
	}

	var req chatRequest
	if err := decodeBody(r, maxChatBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error(), h.logger)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required", h.logger)
		return
	}

	allowed, err := h.usage.CheckLimit(r.Context(), userID, tier)
	if err != nil {
		h.logger.Error("quota check failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "quota_check_failed", "failed to check usage limit", h.logger)
		return
	}
	if !allowed {
		writeError(w, http.StatusTooManyRequests, "quota_exceeded",
			"monthly message limit reached for your tier", h.logger)
		return
	}

	resp, err := h.chat.Process(r.Context(), userID, req.Message, req.History, req.IncludeSources)
	if err != nil {
		writeError(w, http.StatusBadRequest, "chat_failed", err.Error(), h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

// history handles GET /api/v1/chat/history.
func (h *chatHandler) history(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user_required", "X-User-ID header required", h.logger)
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 200 {
		writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 200", h.logger)
		return
	}
	if offset < 0 {
		writeError(w, http.StatusBadRequest, "invalid_offset", "offset must not be negative", h.logger)
		return
	}

	messages, err := h.chat.History(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("history lookup failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "history_failed", "failed to load history", h.logger)
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages}, h.logger)
}

// clearHistory handles DELETE /api/v1/chat/history.
func (h *chatHandler) clearHistory(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user_required", "X-User-ID header required", h.logger)
		return
	}

	n, err := h.chat.ClearHistory(r.Context(), userID)
	if err != nil {
		h.logger.Error("history clear failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "clear_failed", "failed to clear history", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n}, h.logger)
}

type personaTestRequest struct {
	Message string `json:"message"`
	Topic   string `json:"topic,omitempty"`
}

// personaTest handles POST /api/v1/chat/test. Admin tooling: runs the
// pipeline without persisting anything.
func (h *chatHandler) personaTest(w http.ResponseWriter, r *http.Request) {
	var req personaTestRequest
	if err := decodeBody(r, maxChatBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error(), h.logger)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required", h.logger)
		return
	}
	if req.Topic != "" && !topic.Valid(req.Topic) {
		writeError(w, http.StatusBadRequest, "invalid_topic", "unknown topic", h.logger)
		return
	}

	result, err := h.chat.TestPersona(r.Context(), req.Message, topic.Topic(req.Topic))
	if err != nil {
		h.logger.Error("persona test failed", "error", err)
		writeError(w, http.StatusInternalServerError, "test_failed", "persona test failed", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result, h.logger)
}

// usageStatus handles GET /api/v1/usage.
func (h *chatHandler) usageStatus(w http.ResponseWriter, r *http.Request) {
	userID, tier, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user_required", "X-User-ID header required", h.logger)
		return
	}

	status, err := h.usage.Status(r.Context(), userID, tier)
	if err != nil {
		h.logger.Error("usage status failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "usage_failed", "failed to load usage", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, status, h.logger)
}

// decodeBody reads a JSON body with a size cap, rejecting unknown
// fields.
func decodeBody(r *http.Request, maxBytes int64, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}
