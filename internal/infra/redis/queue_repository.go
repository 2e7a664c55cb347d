package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"battle-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	queueWaitingKey = "mm:queue:waiting" // zset scored by join time
	queuePlayersKey = "mm:queue:players" // hash id -> descriptor JSON
)

// QueueRepository is a Redis-backed waiting set. Descriptors live in a hash
// keyed by player id; join order lives in a sorted set scored by join time.
// Claim uses an optimistic WATCH transaction so two concurrent sweeps can
// never dequeue the same player twice.
type QueueRepository struct {
	client *redis.Client
}

func NewQueueRepository(client *redis.Client) *QueueRepository {
	return &QueueRepository{client: client}
}

// Upsert registers or refreshes a descriptor. A re-join keeps the original
// join timestamp so the wait clock never resets.
func (r *QueueRepository) Upsert(ctx context.Context, d domain.PlayerDescriptor) error {
	raw, err := r.client.HGet(ctx, queuePlayersKey, d.ID).Result()
	if err == nil {
		var existing domain.PlayerDescriptor
		if jsonErr := json.Unmarshal([]byte(raw), &existing); jsonErr == nil {
			d.JoinedAt = existing.JoinedAt
		}
	} else if err != redis.Nil {
		return fmt.Errorf("queue upsert lookup: %w", err)
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("queue upsert marshal: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, queuePlayersKey, d.ID, payload)
	pipe.ZAdd(ctx, queueWaitingKey, redis.Z{Score: float64(d.JoinedAt.UnixMilli()), Member: d.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue upsert: %w", err)
	}
	return nil
}

// Remove drops a descriptor; absent players are a no-op.
func (r *QueueRepository) Remove(ctx context.Context, playerID string) error {
	pipe := r.client.TxPipeline()
	pipe.ZRem(ctx, queueWaitingKey, playerID)
	pipe.HDel(ctx, queuePlayersKey, playerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue remove: %w", err)
	}
	return nil
}

// List returns the waiting set in join order, oldest first.
func (r *QueueRepository) List(ctx context.Context) ([]domain.PlayerDescriptor, error) {
	ids, err := r.client.ZRange(ctx, queueWaitingKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("queue list: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	raws, err := r.client.HMGet(ctx, queuePlayersKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("queue list descriptors: %w", err)
	}
	out := make([]domain.PlayerDescriptor, 0, len(raws))
	for _, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			continue // descriptor vanished between ZRANGE and HMGET
		}
		var d domain.PlayerDescriptor
		if err := json.Unmarshal([]byte(s), &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Claim removes all listed players if and only if every one is still
// queued. The sorted set is watched, so a concurrent claim aborts this one.
func (r *QueueRepository) Claim(ctx context.Context, playerIDs ...string) (bool, error) {
	claimed := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		for _, id := range playerIDs {
			if _, err := tx.ZScore(ctx, queueWaitingKey, id).Result(); err != nil {
				if err == redis.Nil {
					return nil // someone already took this player
				}
				return err
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range playerIDs {
				pipe.ZRem(ctx, queueWaitingKey, id)
				pipe.HDel(ctx, queuePlayersKey, id)
			}
			return nil
		})
		if err == nil {
			claimed = true
		}
		return err
	}, queueWaitingKey)

	if err == redis.TxFailedErr {
		// Lost the optimistic race; the competing pairing wins.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("queue claim: %w", err)
	}
	return claimed, nil
}
