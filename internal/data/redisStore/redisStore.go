package redisStore

import (
	"context"
	"fmt"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
	Type   int
	logger *logger_i.Logger
}

// NewStore connects to one logical redis database and pings it.
func NewStore(ctx context.Context, settings config.RedisSettings, dbType int) (*Store, error) {
	logger := logger_i.NewLogger(fmt.Sprintf("redis_store_%d", dbType))
	client := redis.NewClient(&redis.Options{
		Addr:                  settings.Addr,
		Password:              settings.Password,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Error("Redis is offline", "addr", settings.Addr, "error", err)
		return nil, fmt.Errorf("redis %s db %d: %w", settings.Addr, dbType, err)
	}

	logger.Info("Redis store initialised", "addr", settings.Addr)
	return &Store{client: client, Type: dbType, logger: logger}, nil
}

func NewTestStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		logger: logger_i.NewLogger("redis_store_test"),
	}
}

func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		s.logger.Error("Error closing redis client", "error", err)
		return err
	}
	s.logger.Info("Redis store closed")
	return nil
}
