package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "riddle:progress:"

// RedisStore keeps records as JSON values that expire after ttl of inactivity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func redisKey(playerID string) string {
	return redisKeyPrefix + playerID
}

func (s *RedisStore) Load(ctx context.Context, playerID string) (*Record, error) {
	if err := checkPlayerID(playerID); err != nil {
		return nil, err
	}
	return s.get(ctx, s.client, playerID)
}

func (s *RedisStore) get(ctx context.Context, c redis.Cmdable, playerID string) (*Record, error) {
	data, err := c.Get(ctx, redisKey(playerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	rec = rec.Clone()
	return &rec, nil
}

// Save writes inside WATCH/MULTI so a concurrent writer on any instance
// turns into ErrVersionConflict.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	if err := checkPlayerID(rec.PlayerID); err != nil {
		return err
	}
	rec = rec.Clone()
	rec.UpdatedAt = s.now().UTC()
	key := redisKey(rec.PlayerID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := s.get(ctx, tx, rec.PlayerID)
		if err != nil {
			return err
		}
		var current int64
		if stored != nil {
			current = stored.Version
		}
		if current != rec.Version {
			return ErrVersionConflict
		}

		next := rec
		next.Version++
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode progress: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return ErrVersionConflict
	case errors.Is(err, ErrVersionConflict):
		return err
	case err != nil:
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
