package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/data/redisStore"
	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
)

const chatKeyPrefix = "chat:"

var ErrUnknownChat = errors.New("invalid chat id")

type RedisMessageStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func NewRedisMessageStore(store *redisStore.Store) *RedisMessageStore {
	return &RedisMessageStore{
		store:  store,
		logger: logger_i.NewLogger("message_store"),
	}
}

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	isFound, err := s.store.Exists(ctx, chatKeyPrefix+chatId)
	if err != nil {
		s.logger.With("traceId", config.TraceId(ctx)).Error("Failed to check if chatId exists", "chatId", chatId, "error", err)
		return false
	}
	return isFound
}

func (s *RedisMessageStore) TrySaveChat(ctx context.Context, id string, conversation jobModel.JobPayload) error {
	if !s.ValidateChatId(ctx, id) {
		return ErrUnknownChat
	}
	return s.saveChat(ctx, id, conversation)
}

func (s *RedisMessageStore) saveChat(ctx context.Context, id string, conversation jobModel.JobPayload) error {
	log := s.logger.With("traceId", config.TraceId(ctx), "chatId", id)
	data, err := json.Marshal(conversation)
	if err != nil {
		return err
	}
	if err := s.store.ListPush(ctx, chatKeyPrefix+id, data); err != nil {
		log.Error("Error saving chat", "error", err)
		return err
	}
	if err := s.store.Expire(ctx, chatKeyPrefix+id, config.RedisMessageStoreTTL); err != nil {
		log.Warn("Error refreshing chat ttl", "error", err)
	}
	return nil
}

// InitNewChat resets the chat. The empty first entry makes the key exist so
// ValidateChatId succeeds before any answer is stored.
func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string) error {
	if _, err := s.store.Del(ctx, chatKeyPrefix+id); err != nil {
		return err
	}
	return s.saveChat(ctx, id, jobModel.JobPayload{})
}

func (s *RedisMessageStore) GetMessageHistory(ctx context.Context, chatId string) ([]string, error) {
	log := s.logger.With("traceId", config.TraceId(ctx), "chatId", chatId)

	res, err := s.store.ListGetLast(ctx, chatKeyPrefix+chatId, config.MessageHistoryLength)
	if err != nil {
		log.Error("Error getting history", "error", err)
		return nil, err
	}

	history := make([]string, 0, len(res))
	for _, raw := range res {
		var turn jobModel.JobPayload
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			log.Warn("Skipping corrupt chat entry", "error", err)
			continue
		}
		if line, ok := formatTurn(turn); ok {
			history = append(history, line)
		}
	}
	return history, nil
}
