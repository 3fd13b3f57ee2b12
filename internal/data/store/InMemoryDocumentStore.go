package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
)

type InMemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]commonModels.Document
}

func InitInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{docs: make(map[string]commonModels.Document)}
}

func (s *InMemoryDocumentStore) SaveDocument(ctx context.Context, doc commonModels.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.Id] = doc
	return nil
}

func (s *InMemoryDocumentStore) GetDocument(ctx context.Context, id string) (commonModels.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok, nil
}

func (s *InMemoryDocumentStore) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	s.mu.RLock()
	docs := make([]commonModels.Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	s.mu.RUnlock()
	sortDocuments(docs)
	return docs, nil
}

func (s *InMemoryDocumentStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[id]
	delete(s.docs, id)
	return ok, nil
}

// sortDocuments orders newest upload first, then by id.
func sortDocuments(docs []commonModels.Document) {
	slices.SortFunc(docs, func(a, b commonModels.Document) int {
		if c := b.UploadDate.Compare(a.UploadDate); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})
}
