package qdrantDB

import (
	"context"
	"testing"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/qdrant/go-client/qdrant"
)

func TestToChunkReadsPayload(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		payloadContent: "connection reset by peer",
		payloadSource:  "doc-7",
		payloadPage:    4,
		payloadOrder:   2,
	})

	got := toChunk(payload, []float32{0.1, 0.2})

	want := commonModels.Chunk{
		Content:  "connection reset by peer",
		Vector:   []float32{0.1, 0.2},
		Metadata: commonModels.ChunkMetadata{Source: "doc-7", Page: 4},
		Order:    2,
	}
	if got.Content != want.Content || got.Metadata != want.Metadata || got.Order != want.Order || len(got.Vector) != 2 {
		t.Errorf("toChunk = %+v, want %+v", got, want)
	}
}

func TestToChunkMissingFields(t *testing.T) {
	got := toChunk(map[string]*qdrant.Value{}, nil)
	if got.Content != "" || got.Metadata.Page != 0 {
		t.Errorf("expected zero chunk, got %+v", got)
	}
}

func TestNewStoreRejectsZeroDimension(t *testing.T) {
	if _, err := NewStore(context.Background(), config.QdrantSettings{Host: "localhost", Port: 6334, Collection: "kb"}, 0); err == nil {
		t.Fatal("expected error for zero dimension")
	}
}
