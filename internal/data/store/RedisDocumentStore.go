package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/data/redisStore"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

const (
	documentKeyPrefix = "document:"
	documentIndexKey  = "documents"
)

// RedisDocumentStore keeps one JSON value per document plus a set of all ids.
type RedisDocumentStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func NewRedisDocumentStore(store *redisStore.Store) *RedisDocumentStore {
	return &RedisDocumentStore{
		store:  store,
		logger: logger_i.NewLogger("document_store"),
	}
}

func (s *RedisDocumentStore) SaveDocument(ctx context.Context, doc commonModels.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, documentKeyPrefix+doc.Id, data, 0)
		pipe.SAdd(ctx, documentIndexKey, doc.Id)
		return nil
	})
	if err != nil {
		s.logger.With("traceId", config.TraceId(ctx)).Error("Failed to save document", "documentId", doc.Id, "error", err)
	}
	return err
}

func (s *RedisDocumentStore) GetDocument(ctx context.Context, id string) (commonModels.Document, bool, error) {
	var doc commonModels.Document
	val, err := s.store.Get(ctx, documentKeyPrefix+id)
	if s.store.IsNil(err) {
		return doc, false, nil
	} else if err != nil {
		return doc, false, err
	}
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return doc, false, fmt.Errorf("decode document %s: %w", id, err)
	}
	return doc, true, nil
}

func (s *RedisDocumentStore) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	ids, err := s.store.SetMembers(ctx, documentIndexKey)
	if err != nil {
		return nil, err
	}
	docs := make([]commonModels.Document, 0, len(ids))
	for _, id := range ids {
		doc, found, err := s.GetDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			docs = append(docs, doc)
		}
	}
	sortDocuments(docs)
	return docs, nil
}

func (s *RedisDocumentStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	n, err := s.store.Del(ctx, documentKeyPrefix+id)
	if err != nil {
		return false, err
	}
	if err := s.store.SetRemove(ctx, documentIndexKey, id); err != nil {
		return n > 0, err
	}
	return n > 0, nil
}
