package memoryDB

import (
	"context"
	"slices"
	"sync"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
)

// Store keeps chunks in process memory in insertion order.
type Store struct {
	mu     sync.RWMutex
	chunks []commonModels.Chunk
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) InsertMany(ctx context.Context, chunks []commonModels.Chunk) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	copied := make([]commonModels.Chunk, len(chunks))
	for i, c := range chunks {
		c.Vector = slices.Clone(c.Vector)
		copied[i] = c
	}

	s.mu.Lock()
	s.chunks = append(s.chunks, copied...)
	s.mu.Unlock()
	return len(copied), nil
}

// FindAll returns a snapshot. Vectors are shared with the store and must not be modified.
func (s *Store) FindAll(ctx context.Context) ([]commonModels.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.chunks), nil
}

func (s *Store) DeleteByDocumentId(ctx context.Context, documentId string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.chunks)
	s.chunks = slices.DeleteFunc(s.chunks, func(c commonModels.Chunk) bool {
		return c.Metadata.Source == documentId
	})
	return before - len(s.chunks), nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
