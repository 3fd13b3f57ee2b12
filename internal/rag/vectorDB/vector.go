package vectorDB

import (
	"context"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
)

// ChunkStore persists embedded chunks. Implementations must make InsertMany
// all-or-nothing and return chunks from FindAll in insertion order.
type ChunkStore interface {
	InsertMany(ctx context.Context, chunks []commonModels.Chunk) (int, error)
	FindAll(ctx context.Context) ([]commonModels.Chunk, error)
	// DeleteByDocumentId removes every chunk whose metadata.source is documentId.
	// Unknown ids remove nothing and are not an error.
	DeleteByDocumentId(ctx context.Context, documentId string) (int, error)
}

// NativeSearcher is implemented by stores with their own vector index. The
// returned candidates carry vectors so the engine can score them itself.
type NativeSearcher interface {
	SearchCandidates(ctx context.Context, vector []float32, limit int) ([]commonModels.Chunk, error)
}

// AnswerCache holds previous solutions keyed by the question embedding.
type AnswerCache interface {
	GetCachedAnswer(ctx context.Context, queryVector []float32) (string, bool, error)
	SaveToCache(ctx context.Context, id string, vector []float32, answer string) error
}

// Closer is implemented by stores holding network connections or files.
type Closer interface {
	Close(ctx context.Context) error
}
