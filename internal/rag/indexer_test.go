package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/taysluxe/tayai/internal/chunk"
	"github.com/taysluxe/tayai/internal/log"
)

func newTestIndexer(embedder *fakeEmbedder, index *fakeIndex) *Indexer {
	return NewIndexer(chunk.New(100), embedder, index, log.NewNop())
}

func TestIndexChunked(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	ix := newTestIndexer(embedder, index)

	content := strings.Repeat("a", 80) + "\n\n" + strings.Repeat("b", 80)
	metadata := map[string]any{
		MetaTitle:    "Curl Guide",
		MetaCategory: "styling",
		MetaSource:   SourceKnowledgeBase,
	}

	ok, ids := ix.Index(context.Background(), content, metadata, "kb_1", true)
	if !ok {
		t.Fatal("Index() = false, want true")
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2: %v", len(ids), ids)
	}
	if ids[0] != "kb_1_chunk_0" || ids[1] != "kb_1_chunk_1" {
		t.Errorf("ids = %v", ids)
	}

	// All chunks embedded in one batch call.
	if embedder.batchCalls != 1 {
		t.Errorf("batch calls = %d, want 1", embedder.batchCalls)
	}
	if len(embedder.lastBatch) != 2 {
		t.Errorf("batch size = %d, want 2", len(embedder.lastBatch))
	}

	if len(index.upserted) != 2 {
		t.Fatalf("upserted %d records, want 2", len(index.upserted))
	}
	first := index.upserted[0]
	if first.Metadata[MetaParentID] != "kb_1" {
		t.Errorf("parent_id = %v", first.Metadata[MetaParentID])
	}
	if first.Metadata[MetaChunkIndex] != 0 || first.Metadata[MetaTotalChunks] != 2 {
		t.Errorf("chunk position metadata = %v", first.Metadata)
	}
	if first.Metadata[MetaCategory] != "styling" {
		t.Errorf("caller metadata lost: %v", first.Metadata)
	}
	if text, _ := first.Metadata[MetaContent].(string); !strings.HasPrefix(text, "Curl Guide\n\n") {
		t.Errorf("first chunk missing title prefix: %q", text)
	}

	// The caller's metadata map must stay untouched.
	if _, ok := metadata[MetaParentID]; ok {
		t.Error("Index mutated the caller's metadata map")
	}
}

func TestIndexUnchunked(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	ix := newTestIndexer(embedder, index)

	ok, ids := ix.Index(context.Background(), "short fact", map[string]any{MetaTitle: "Fact"}, "fact_1", false)
	if !ok {
		t.Fatal("Index() = false, want true")
	}
	if len(ids) != 1 || ids[0] != "fact_1" {
		t.Errorf("ids = %v, want [fact_1]", ids)
	}
	if embedder.embedCalls != 1 || embedder.batchCalls != 0 {
		t.Errorf("embed/batch calls = %d/%d, want 1/0", embedder.embedCalls, embedder.batchCalls)
	}
	if index.upserted[0].Metadata[MetaContent] != "short fact" {
		t.Errorf("content metadata = %v", index.upserted[0].Metadata)
	}
	if _, ok := index.upserted[0].Metadata[MetaParentID]; ok {
		t.Error("unchunked record should not carry parent_id")
	}
}

func TestIndexEmptyContent(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	ix := newTestIndexer(embedder, index)

	ok, ids := ix.Index(context.Background(), "   ", nil, "kb_1", true)
	if ok || ids != nil {
		t.Errorf("Index(empty) = %v, %v; want false, nil", ok, ids)
	}
	if embedder.embedCalls != 0 || embedder.batchCalls != 0 {
		t.Error("provider called for empty content")
	}
}

func TestIndexEmbedFailure(t *testing.T) {
	index := &fakeIndex{}
	ix := newTestIndexer(&fakeEmbedder{batchErr: errors.New("provider down")}, index)

	ok, ids := ix.Index(context.Background(), strings.Repeat("x. ", 100), nil, "kb_1", true)
	if ok || ids != nil {
		t.Errorf("Index() = %v, %v; want false, nil", ok, ids)
	}
	if len(index.upserted) != 0 {
		t.Error("records upserted despite embed failure")
	}
}

func TestIndexUpsertFailure(t *testing.T) {
	ix := newTestIndexer(&fakeEmbedder{}, &fakeIndex{upsertErr: errors.New("index down")})

	ok, _ := ix.Index(context.Background(), "content", nil, "kb_1", false)
	if ok {
		t.Error("Index() = true despite upsert failure")
	}
}

func TestDelete(t *testing.T) {
	index := &fakeIndex{}
	ix := newTestIndexer(&fakeEmbedder{}, index)

	if !ix.Delete(context.Background(), "kb_1") {
		t.Fatal("Delete() = false, want true")
	}
	if len(index.deletedIDs) != 1 || index.deletedIDs[0] != "kb_1" {
		t.Errorf("deleted ids = %v", index.deletedIDs)
	}
	if index.deletedFilter[MetaParentID] != "kb_1" {
		t.Errorf("deleted filter = %v", index.deletedFilter)
	}
}

func TestDeleteFailure(t *testing.T) {
	ix := newTestIndexer(&fakeEmbedder{}, &fakeIndex{deleteErr: errors.New("index down")})

	if ix.Delete(context.Background(), "kb_1") {
		t.Error("Delete() = true despite provider failure")
	}
}

func TestUpdate(t *testing.T) {
	index := &fakeIndex{}
	ix := newTestIndexer(&fakeEmbedder{}, index)

	if !ix.Update(context.Background(), "new content", map[string]any{MetaTitle: "T"}, "kb_1") {
		t.Fatal("Update() = false, want true")
	}
	if index.deletedFilter[MetaParentID] != "kb_1" {
		t.Error("old vectors not deleted before reindex")
	}
	if len(index.upserted) == 0 {
		t.Error("no records upserted on update")
	}
}

func TestUpdateDeleteFailure(t *testing.T) {
	index := &fakeIndex{deleteErr: errors.New("index down")}
	ix := newTestIndexer(&fakeEmbedder{}, index)

	if ix.Update(context.Background(), "content", nil, "kb_1") {
		t.Error("Update() = true despite delete failure")
	}
	if len(index.upserted) != 0 {
		t.Error("reindexed despite failed delete")
	}
}

func TestSearchSimilarPropagatesErrors(t *testing.T) {
	wantErr := errors.New("provider down")
	ix := newTestIndexer(&fakeEmbedder{embedErr: wantErr}, &fakeIndex{})

	if _, err := ix.SearchSimilar(context.Background(), "query", 5, nil); !errors.Is(err, wantErr) {
		t.Errorf("SearchSimilar() = %v, want %v", err, wantErr)
	}
}

func TestSearchSimilarDefaultTopK(t *testing.T) {
	index := &fakeIndex{}
	ix := newTestIndexer(&fakeEmbedder{}, index)

	if _, err := ix.SearchSimilar(context.Background(), "query", 0, nil); err != nil {
		t.Fatalf("SearchSimilar() = %v", err)
	}
	if index.lastTopK != DefaultTopK {
		t.Errorf("topK = %d, want %d", index.lastTopK, DefaultTopK)
	}
}

func TestStatsDegrades(t *testing.T) {
	ix := newTestIndexer(&fakeEmbedder{}, &fakeIndex{describeErr: errors.New("index down")})

	stats := ix.Stats(context.Background())
	if stats.TotalVectorCount != 0 || stats.Namespaces == nil {
		t.Errorf("Stats() = %+v, want zero stats", stats)
	}
}
