package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tripgenie/agent-server/internal/agent/model"
	errx "github.com/tripgenie/agent-server/internal/core/error"
	logx "github.com/tripgenie/agent-server/pkg/logger"
)

// replanStore is the subset of redis.Cmdable the repository needs.
type replanStore interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

type RedisReplanRepository struct {
	rdb replanStore
	ttl time.Duration
}

func NewRedisReplanRepository(rdb replanStore, ttl time.Duration) *RedisReplanRepository {
	return &RedisReplanRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisReplanRepository) replanKey(userID, tripID string) string {
	return fmt.Sprintf("replan:%s:%s", userID, tripID)
}

func (r *RedisReplanRepository) SaveReplan(ctx context.Context, rec model.ReplanRecord) error {
	if rec.UserID == "" || rec.TripID == "" {
		return errx.Validation("userId and tripId are required to store a replan")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		logx.Error().Err(err).Str("tripID", rec.TripID).Msg("failed to marshal replan record")
		return fmt.Errorf("marshal replan record: %w", err)
	}

	key := r.replanKey(rec.UserID, rec.TripID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to store replan record in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisReplanRepository) LoadReplan(ctx context.Context, userID, tripID string) (*model.ReplanRecord, error) {
	key := r.replanKey(userID, tripID)

	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to load replan record from redis")
		}
		return nil, errx.WrapRedis(err)
	}

	var rec model.ReplanRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to unmarshal replan record")
		return nil, fmt.Errorf("unmarshal replan record: %w", err)
	}
	return &rec, nil
}

var _ model.ReplanRecordRepository = (*RedisReplanRepository)(nil)
