package qdrantDB

import (
	"context"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/qdrant/go-client/qdrant"
)

// GetCachedAnswer returns the stored solution of the closest previous question
// when it scores at least config.CacheSimilarityCutoff.
func (s *Store) GetCachedAnswer(ctx context.Context, queryVector []float32) (string, bool, error) {
	loggr := s.logger.With("traceId", config.TraceId(ctx))

	searchResult, err := s.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: config.SemanticCacheCollection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Cache query failed", "error", err)
		return "", false, err
	}
	if len(searchResult) == 0 {
		return "", false, nil
	}

	loggr.Debug("Closest cached answer", "score", searchResult[0].Score)
	if searchResult[0].Score < config.CacheSimilarityCutoff {
		return "", false, nil
	}

	loggr.Info("Semantic cache hit")
	return searchResult[0].Payload["answer"].GetStringValue(), true, nil
}

func (s *Store) SaveToCache(ctx context.Context, id string, vector []float32, answer string) error {
	loggr := s.logger.With("traceId", config.TraceId(ctx))

	_, err := s.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: config.SemanticCacheCollection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"answer":    answer,
					"timestamp": time.Now().Unix(),
				}),
			},
		},
	})
	if err != nil {
		loggr.Error("Saving answer to cache failed", "error", err)
		return err
	}
	loggr.Debug("Saved answer to cache")
	return nil
}
