package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/criptofacil/criptofacil/config"
	"github.com/criptofacil/criptofacil/utils"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("error session not found")

const sessionKeyPrefix = "session:"

// RedisStore keeps bearer token -> user bindings with a sliding expiration.
type RedisStore struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisStore(redisClient *redis.Client, cfg *config.Config) *RedisStore {
	return &RedisStore{redis: redisClient, cfg: cfg}
}

func (s *RedisStore) Save(ctx context.Context, token, userID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("Save session start", slog.String("rqID", rqID), slog.String("userID", userID))

	err := s.redis.Set(ctx, sessionKeyPrefix+token, userID, s.cfg.SessionExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// Get resolves the token and renews its expiration.
func (s *RedisStore) Get(ctx context.Context, token string) (userID string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	userID, err = s.redis.GetEx(ctx, sessionKeyPrefix+token, s.cfg.SessionExpiration).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		slog.Error("failed on redis.GetEx", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return "", err
	}

	return userID, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	err := s.redis.Del(ctx, sessionKeyPrefix+token).Err()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	return nil
}
