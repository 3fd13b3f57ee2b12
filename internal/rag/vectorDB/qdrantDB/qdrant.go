package qdrantDB

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	payloadContent    = "content"
	payloadSource     = "source"
	payloadPage       = "page"
	payloadOrder      = "chunk_order"
	payloadIngestedAt = "ingested_at"
)

// Store is a ChunkStore and NativeSearcher over one Qdrant collection. It also
// serves the semantic answer cache from a second collection.
type Store struct {
	QObj       *qdrant.Client
	collection string
	dimension  uint64
	logger     *logger_i.Logger
}

func NewStore(ctx context.Context, settings config.QdrantSettings, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, errors.New("qdrant needs a positive vector dimension")
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     settings.Host,
		Port:     settings.Port,
		APIKey:   settings.APIKey,
		UseTLS:   settings.UseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}

	s := &Store{
		QObj:       client,
		collection: settings.Collection,
		dimension:  uint64(dimension),
		logger:     logger_i.NewLogger("Qdrant"),
	}

	initCtx, cancel := context.WithTimeout(ctx, config.QdrantConnectionTimeout)
	defer cancel()
	if err := s.createCollection(initCtx, s.collection); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	if err := s.createCollection(initCtx, config.SemanticCacheCollection); err != nil {
		s.logger.Error("Semantic cache collection creation failed", "error", err)
	}
	return s, nil
}

func (s *Store) Close(context.Context) error {
	s.logger.Info("Closing Qdrant")
	return s.QObj.Close()
}

func (s *Store) createCollection(ctx context.Context, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}
	exists, err := s.QObj.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = s.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}
	_, err = s.QObj.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collectionName,
		FieldName:      payloadSource,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	return err
}

// InsertMany upserts every chunk in a single waited request.
func (s *Store) InsertMany(ctx context.Context, chunks []commonModels.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	ingestedAt := time.Now().UnixNano()
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(c.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadContent:    c.Content,
				payloadSource:     c.Metadata.Source,
				payloadPage:       c.Metadata.Page,
				payloadOrder:      c.Order,
				payloadIngestedAt: ingestedAt,
			}),
		}
	}

	_, err := s.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return len(points), nil
}

// FindAll scrolls the whole collection and restores insertion order from the payload.
func (s *Store) FindAll(ctx context.Context) ([]commonModels.Chunk, error) {
	type ordered struct {
		chunk      commonModels.Chunk
		ingestedAt int64
	}
	var all []ordered
	var offset *qdrant.PointId
	for {
		points, err := s.QObj.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(config.QdrantScrollPageSize + 1)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant scroll failed: %w", err)
		}
		page := points
		if len(points) > config.QdrantScrollPageSize {
			page = points[:config.QdrantScrollPageSize]
		}
		for _, p := range page {
			all = append(all, ordered{
				chunk:      toChunk(p.GetPayload(), p.GetVectors().GetVector().GetData()),
				ingestedAt: p.GetPayload()[payloadIngestedAt].GetIntegerValue(),
			})
		}
		if len(points) <= config.QdrantScrollPageSize {
			break
		}
		// the offset point is included in the next page
		offset = points[config.QdrantScrollPageSize].GetId()
	}

	slices.SortStableFunc(all, func(a, b ordered) int {
		if c := cmp.Compare(a.ingestedAt, b.ingestedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.chunk.Order, b.chunk.Order)
	})
	out := make([]commonModels.Chunk, len(all))
	for i, o := range all {
		out[i] = o.chunk
	}
	return out, nil
}

func (s *Store) DeleteByDocumentId(ctx context.Context, documentId string) (int, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(payloadSource, documentId)},
	}
	count, err := s.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count failed: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	_, err = s.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant delete failed: %w", err)
	}
	return int(count), nil
}

// SearchCandidates asks the cosine index for the nearest limit points. Ranking and
// thresholding still happen in the engine.
func (s *Store) SearchCandidates(ctx context.Context, vector []float32, limit int) ([]commonModels.Chunk, error) {
	loggr := s.logger.With("traceId", config.TraceId(ctx))
	result, err := s.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		loggr.Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	out := make([]commonModels.Chunk, 0, len(result))
	for _, hit := range result {
		out = append(out, toChunk(hit.GetPayload(), hit.GetVectors().GetVector().GetData()))
	}
	loggr.Debug("Qdrant candidates", "count", len(out))
	return out, nil
}

func toChunk(payload map[string]*qdrant.Value, vector []float32) commonModels.Chunk {
	return commonModels.Chunk{
		Content: payload[payloadContent].GetStringValue(),
		Vector:  vector,
		Metadata: commonModels.ChunkMetadata{
			Source: payload[payloadSource].GetStringValue(),
			Page:   int(payload[payloadPage].GetIntegerValue()),
		},
		Order: int(payload[payloadOrder].GetIntegerValue()),
	}
}
