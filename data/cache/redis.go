package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/criptofacil/criptofacil/config"
	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/criptofacil/criptofacil/utils"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("error not found in cache")

const (
	cryptoKeyPrefix        = "crypto:"
	walletSummaryKeyPrefix = "portfolio:wallet:"
	ownerSummaryKeyPrefix  = "portfolio:owner:"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) SetCryptos(ctx context.Context, cryptos []model.CryptoInfo) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetCryptos start", slog.String("rqID", rqID), slog.Int("count", len(cryptos)))

	pipe := r.redis.Pipeline()
	for _, crypto := range cryptos {
		cryptoJson, err := json.Marshal(crypto)
		if err != nil {
			slog.Error(
				"can't marshall crypto in SetCryptos",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("crypto", crypto),
			)
			return errors.New("can't marshall crypto")
		}

		pipe.Set(ctx, cryptoKeyPrefix+crypto.Symbol, cryptoJson, r.cfg.Cache.CryptosExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetCryptos completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetCrypto(ctx context.Context, symbol string) (model.CryptoInfo, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetCrypto start", slog.String("rqID", rqID), slog.String("symbol", symbol))

	res, err := r.redis.Get(ctx, cryptoKeyPrefix+symbol).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.CryptoInfo{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("symbol", symbol))
		return model.CryptoInfo{}, err
	}

	cryptoInfo := model.CryptoInfo{}
	err = json.Unmarshal([]byte(res), &cryptoInfo)
	if err != nil {
		slog.Error(
			"can't unmarshall crypto in GetCrypto",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.CryptoInfo{}, errors.New("can't unmarshall crypto")
	}

	slog.Debug("GetCrypto finished", slog.String("rqID", rqID))

	return cryptoInfo, nil
}

// GetCryptos returns entries for the symbols present in cache; absent symbols
// are simply missing from the result map, not an error.
func (r *RedisCache) GetCryptos(ctx context.Context, symbols []string) (map[string]model.CryptoInfo, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetCryptos start", slog.String("rqID", rqID), slog.Int("count", len(symbols)))

	if len(symbols) == 0 {
		return map[string]model.CryptoInfo{}, nil
	}

	keys := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		keys = append(keys, cryptoKeyPrefix+symbol)
	}

	values, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Error("failed on redis.MGet", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil, err
	}

	res := make(map[string]model.CryptoInfo, len(values))
	for _, value := range values {
		strValue, ok := value.(string)
		if !ok {
			continue
		}

		cryptoInfo := model.CryptoInfo{}
		if err := json.Unmarshal([]byte(strValue), &cryptoInfo); err != nil {
			slog.Error("can't unmarshall crypto in GetCryptos", slog.String("rqID", rqID), slog.String("err", err.Error()))
			continue
		}
		res[cryptoInfo.Symbol] = cryptoInfo
	}

	slog.Debug("GetCryptos finished", slog.String("rqID", rqID), slog.Int("found", len(res)))

	return res, nil
}

func (r *RedisCache) SetWalletSummary(ctx context.Context, walletID string, summary model.PortfolioSummary) error {
	return r.setSummary(ctx, walletSummaryKeyPrefix+walletID, summary)
}

func (r *RedisCache) GetWalletSummary(ctx context.Context, walletID string) (model.PortfolioSummary, error) {
	return r.getSummary(ctx, walletSummaryKeyPrefix+walletID)
}

func (r *RedisCache) SetOwnerSummary(ctx context.Context, ownerID string, summary model.PortfolioSummary) error {
	return r.setSummary(ctx, ownerSummaryKeyPrefix+ownerID, summary)
}

func (r *RedisCache) GetOwnerSummary(ctx context.Context, ownerID string) (model.PortfolioSummary, error) {
	return r.getSummary(ctx, ownerSummaryKeyPrefix+ownerID)
}

// FlushPortfolioCache drops the cached snapshots touched by a write to the
// wallet. Called synchronously: a concurrent read right after the write must
// not see the stale snapshot.
func (r *RedisCache) FlushPortfolioCache(ctx context.Context, walletID, ownerID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("FlushPortfolioCache start", slog.String("rqID", rqID), slog.String("walletID", walletID))

	keys := []string{ownerSummaryKeyPrefix + ownerID}
	if walletID != "" {
		keys = append(keys, walletSummaryKeyPrefix+walletID)
	}

	err := r.redis.Del(ctx, keys...).Err()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (r *RedisCache) setSummary(ctx context.Context, key string, summary model.PortfolioSummary) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	summaryJson, err := json.Marshal(summary)
	if err != nil {
		slog.Error("can't marshall summary", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall summary")
	}

	err = r.redis.Set(ctx, key, summaryJson, r.cfg.Cache.SnapshotExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	return nil
}

func (r *RedisCache) getSummary(ctx context.Context, key string) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := r.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.PortfolioSummary{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return model.PortfolioSummary{}, err
	}

	summary := model.PortfolioSummary{}
	err = json.Unmarshal([]byte(res), &summary)
	if err != nil {
		slog.Error("can't unmarshall summary", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, errors.New("can't unmarshall summary")
	}

	return summary, nil
}
