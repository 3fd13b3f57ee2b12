package mongoDB

import (
	"context"
	"fmt"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// chunkDocument is the persisted shape {content, vector, metadata{source, page}}.
// BatchId groups one InsertMany call so a failed batch can be removed again.
type chunkDocument struct {
	ID       primitive.ObjectID         `bson:"_id,omitempty"`
	Content  string                     `bson:"content"`
	Vector   []float32                  `bson:"vector"`
	Metadata commonModels.ChunkMetadata `bson:"metadata"`
	Order    int                        `bson:"order"`
	BatchId  string                     `bson:"batch_id"`
}

type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *logger_i.Logger
}

func NewStore(ctx context.Context, settings config.MongoSettings) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(settings.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	collection := client.Database(settings.Database).Collection(settings.Collection)
	_, err = collection.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "metadata.source", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create source index: %w", err)
	}

	logger := logger_i.NewLogger("mongo_chunk_store")
	logger.Info("Mongo chunk store ready", "database", settings.Database, "collection", settings.Collection)
	return &Store{client: client, collection: collection, logger: logger}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) InsertMany(ctx context.Context, chunks []commonModels.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	batchId := uuid.NewString()
	docs := toDocuments(chunks, batchId)

	res, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		s.rollback(batchId)
		return 0, fmt.Errorf("insert chunks: %w", err)
	}
	return len(res.InsertedIDs), nil
}

// rollback removes whatever part of a failed batch made it to the server.
func (s *Store) rollback(batchId string) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	res, err := s.collection.DeleteMany(ctx, bson.M{"batch_id": batchId})
	if err != nil {
		s.logger.Error("Rollback of partial chunk batch failed", "batchId", batchId, "error", err)
		return
	}
	s.logger.Warn("Rolled back partial chunk batch", "batchId", batchId, "removed", res.DeletedCount)
}

func (s *Store) FindAll(ctx context.Context) ([]commonModels.Chunk, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find chunks: %w", err)
	}
	var docs []chunkDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}
	return fromDocuments(docs), nil
}

func (s *Store) DeleteByDocumentId(ctx context.Context, documentId string) (int, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{"metadata.source": documentId})
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	return int(res.DeletedCount), nil
}

func toDocuments(chunks []commonModels.Chunk, batchId string) []interface{} {
	docs := make([]interface{}, len(chunks))
	for i, c := range chunks {
		docs[i] = chunkDocument{
			Content:  c.Content,
			Vector:   c.Vector,
			Metadata: c.Metadata,
			Order:    c.Order,
			BatchId:  batchId,
		}
	}
	return docs
}

func fromDocuments(docs []chunkDocument) []commonModels.Chunk {
	out := make([]commonModels.Chunk, len(docs))
	for i, d := range docs {
		out[i] = commonModels.Chunk{
			Content:  d.Content,
			Vector:   d.Vector,
			Metadata: d.Metadata,
			Order:    d.Order,
		}
	}
	return out
}
