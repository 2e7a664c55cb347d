package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"battle-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const resultsKey = "battle:results"

// ProfileStore keeps player victory streaks and appends finished battle
// results for the profile service to drain.
type ProfileStore struct {
	client *redis.Client
}

func NewProfileStore(client *redis.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func (s *ProfileStore) PlayerStreak(ctx context.Context, playerID string) (int, error) {
	raw, err := s.client.Get(ctx, s.streakKey(playerID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("streak lookup: %w", err)
	}
	streak, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return streak, nil
}

// PersistBattleResult appends the result and rolls the victory streak:
// a win extends it, anything else resets it.
func (s *ProfileStore) PersistBattleResult(ctx context.Context, result domain.BattleResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal battle result: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, resultsKey, payload)
	if result.Status == domain.StatusVictory {
		pipe.Incr(ctx, s.streakKey(result.PlayerID))
	} else {
		pipe.Del(ctx, s.streakKey(result.PlayerID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist battle result: %w", err)
	}
	return nil
}

func (s *ProfileStore) streakKey(playerID string) string {
	return "player:" + playerID + ":streak"
}
