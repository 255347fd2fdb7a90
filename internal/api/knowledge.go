package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/taysluxe/tayai/internal/knowledge"
	"github.com/taysluxe/tayai/internal/log"
)

const maxKnowledgeBodyBytes = 1 << 20

// KnowledgeService is the content management surface the handlers call
// into. Satisfied by *knowledge.Service.
type KnowledgeService interface {
	Create(ctx context.Context, in knowledge.CreateInput) (knowledge.Item, error)
	Get(ctx context.Context, id uuid.UUID) (knowledge.Item, error)
	Update(ctx context.Context, id uuid.UUID, patch knowledge.Patch) (knowledge.Item, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, category string, activeOnly bool, limit, offset int) ([]knowledge.Item, error)
	BulkCreate(ctx context.Context, inputs []knowledge.CreateInput) knowledge.BulkResult
	ReindexAll(ctx context.Context) (knowledge.ReindexReport, error)
	Categories(ctx context.Context) (map[string]int, error)
	Stats(ctx context.Context) (knowledge.Stats, error)
	Search(ctx context.Context, query string, topK int, category string) ([]knowledge.SearchResult, error)
}

type knowledgeHandler struct {
	svc    KnowledgeService
	logger log.Logger
}

// create handles POST /api/v1/knowledge.
func (h *knowledgeHandler) create(w http.ResponseWriter, r *http.Request) {
	var in knowledge.CreateInput
	if err := decodeBody(r, maxKnowledgeBodyBytes, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error(), h.logger)
		return
	}

	item, err := h.svc.Create(r.Context(), in)
	if err != nil {
		if errors.Is(err, knowledge.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), h.logger)
			return
		}
		h.logger.Error("knowledge create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create item", h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, item, h.logger)
}

// get handles GET /api/v1/knowledge/{id}.
func (h *knowledgeHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	item, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "item not found", h.logger)
			return
		}
		h.logger.Error("knowledge get failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "get_failed", "failed to load item", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, item, h.logger)
}

// update handles PATCH /api/v1/knowledge/{id}.
func (h *knowledgeHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	var patch knowledge.Patch
	if err := decodeBody(r, maxKnowledgeBodyBytes, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error(), h.logger)
		return
	}

	item, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "item not found", h.logger)
			return
		}
		h.logger.Error("knowledge update failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "update_failed", "failed to update item", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, item, h.logger)
}

// delete handles DELETE /api/v1/knowledge/{id}.
func (h *knowledgeHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "item not found", h.logger)
			return
		}
		h.logger.Error("knowledge delete failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete item", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// list handles GET /api/v1/knowledge.
func (h *knowledgeHandler) list(w http.ResponseWriter, r *http.Request) {
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
	category := r.URL.Query().Get("category")
	activeOnly := r.URL.Query().Get("include_inactive") != "true"

	items, err := h.svc.List(r.Context(), category, activeOnly, limit, offset)
	if err != nil {
		h.logger.Error("knowledge list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list items", h.logger)
		return
	}
	if items == nil {
		items = []knowledge.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items}, h.logger)
}

// bulk handles POST /api/v1/knowledge/bulk.
func (h *knowledgeHandler) bulk(w http.ResponseWriter, r *http.Request) {
	var inputs []knowledge.CreateInput
	if err := decodeBody(r, maxKnowledgeBodyBytes, &inputs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error(), h.logger)
		return
	}
	if len(inputs) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch", "at least one item required", h.logger)
		return
	}

	result := h.svc.BulkCreate(r.Context(), inputs)
	status := http.StatusCreated
	if len(result.Created) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result, h.logger)
}

// reindex handles POST /api/v1/knowledge/reindex.
func (h *knowledgeHandler) reindex(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.ReindexAll(r.Context())
	if err != nil {
		h.logger.Error("reindex failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reindex_failed", "reindex failed", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, report, h.logger)
}

// search handles GET /api/v1/knowledge/search.
func (h *knowledgeHandler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "q parameter is required", h.logger)
		return
	}
	topK := queryInt(r, "top_k", 5)
	if topK < 1 || topK > 50 {
		writeError(w, http.StatusBadRequest, "invalid_top_k", "top_k must be between 1 and 50", h.logger)
		return
	}

	results, err := h.svc.Search(r.Context(), query, topK, r.URL.Query().Get("category"))
	if err != nil {
		h.logger.Error("knowledge search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search_failed", "search failed", h.logger)
		return
	}
	if results == nil {
		results = []knowledge.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results}, h.logger)
}

// stats handles GET /api/v1/knowledge/stats.
func (h *knowledgeHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.Error("knowledge stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "stats_failed", "failed to load stats", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, stats, h.logger)
}

// categories handles GET /api/v1/knowledge/categories.
func (h *knowledgeHandler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		h.logger.Error("knowledge categories failed", "error", err)
		writeError(w, http.StatusInternalServerError, "categories_failed", "failed to load categories", h.logger)
		return
	}
	if cats == nil {
		cats = map[string]int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats}, h.logger)
}

func pathID(w http.ResponseWriter, r *http.Request, logger log.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID", logger)
		return uuid.Nil, false
	}
	return id, true
}
