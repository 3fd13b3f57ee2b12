package redisDB

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/data/redisStore"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

const (
	segmentsKey    = "kb:segments"
	sequenceKey    = "kb:seq"
	chunksPrefix   = "kb:chunks:"
	documentPrefix = "kb:doc:"
)

// Store writes every InsertMany call as one list of JSON chunks per document
// (a segment). Segments are scored by a global sequence, so FindAll returns
// chunks in insertion order even when a document is ingested more than once.
type Store struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func NewStore(store *redisStore.Store) *Store {
	return &Store{
		store:  store,
		logger: logger_i.NewLogger("redis_chunk_store"),
	}
}

func segmentKey(documentId string, seq int64) string {
	return chunksPrefix + documentId + ":" + strconv.FormatInt(seq, 10)
}

// documentKey holds the segment keys of one document.
func documentKey(documentId string) string {
	return documentPrefix + documentId
}

func (s *Store) InsertMany(ctx context.Context, chunks []commonModels.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	log := s.logger.With("traceId", config.TraceId(ctx))

	var order []string
	encoded := make(map[string][]interface{})
	for i, c := range chunks {
		data, err := json.Marshal(c)
		if err != nil {
			return 0, fmt.Errorf("encode chunk %d: %w", i, err)
		}
		src := c.Metadata.Source
		if _, seen := encoded[src]; !seen {
			order = append(order, src)
		}
		encoded[src] = append(encoded[src], data)
	}

	last, err := s.store.IncrBy(ctx, sequenceKey, int64(len(order)))
	if err != nil {
		return 0, err
	}
	first := last - int64(len(order)) + 1

	_, err = s.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, src := range order {
			seq := first + int64(i)
			key := segmentKey(src, seq)
			pipe.RPush(ctx, key, encoded[src]...)
			pipe.SAdd(ctx, documentKey(src), key)
			pipe.ZAdd(ctx, segmentsKey, redis.Z{Score: float64(seq), Member: key})
		}
		return nil
	})
	if err != nil {
		log.Error("Redis chunk insert failed", "error", err)
		return 0, err
	}
	log.Debug("Inserted chunks", "count", len(chunks), "documents", len(order))
	return len(chunks), nil
}

func (s *Store) FindAll(ctx context.Context) ([]commonModels.Chunk, error) {
	keys, err := s.store.SortedSetRange(ctx, segmentsKey)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []commonModels.Chunk{}, nil
	}

	cmds := make([]*redis.StringSliceCmd, len(keys))
	_, err = s.store.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.LRange(ctx, key, 0, -1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []commonModels.Chunk
	for i, cmd := range cmds {
		for j, raw := range cmd.Val() {
			var c commonModels.Chunk
			if err := json.Unmarshal([]byte(raw), &c); err != nil {
				return nil, fmt.Errorf("decode chunk %d of %s: %w", j, keys[i], err)
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) DeleteByDocumentId(ctx context.Context, documentId string) (int, error) {
	keys, err := s.store.SetMembers(ctx, documentKey(documentId))
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	counts := make([]*redis.IntCmd, len(keys))
	members := make([]interface{}, len(keys))
	_, err = s.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			counts[i] = pipe.LLen(ctx, key)
			members[i] = key
		}
		pipe.Del(ctx, append(keys, documentKey(documentId))...)
		pipe.ZRem(ctx, segmentsKey, members...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, c := range counts {
		removed += int(c.Val())
	}
	return removed, nil
}
