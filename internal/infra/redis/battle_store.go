package redis

import (
	"context"
	"sync"
	"time"

	"battle-quiz-service/internal/battle"
	"github.com/redis/go-redis/v9"
)

// BattleStore is a Redis-aware implementation of app.BattleStore.
// Notes:
//   - Battle instances (timers, subscriber channels) are process-local, so
//     the store keeps an in-memory map and uses Redis only to mark battle
//     liveness across instances.
//   - For true distribution you'd pair this with a router that pins a
//     battle's websocket traffic to the owning instance.
type BattleStore struct {
	client  *redis.Client
	ttl     time.Duration
	mu      sync.RWMutex
	battles map[string]*battle.Battle
}

func NewBattleStore(client *redis.Client, ttl time.Duration) *BattleStore {
	return &BattleStore{
		client:  client,
		ttl:     ttl,
		battles: make(map[string]*battle.Battle),
	}
}

func (s *BattleStore) Put(b *battle.Battle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battles[b.ID()] = b
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(b.ID()), "1", s.ttl).Err()
}

func (s *BattleStore) Get(battleID string) (*battle.Battle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.battles[battleID]
	return b, ok
}

func (s *BattleStore) Delete(battleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.battles[battleID]; ok {
		b.Cancel()
		delete(s.battles, battleID)
		_ = s.client.Del(context.Background(), s.key(battleID)).Err()
	}
}

func (s *BattleStore) Each() []*battle.Battle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*battle.Battle, 0, len(s.battles))
	for _, b := range s.battles {
		out = append(out, b)
	}
	return out
}

func (s *BattleStore) key(battleID string) string {
	return "battle:live:" + battleID
}
