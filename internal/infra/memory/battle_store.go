package memory

import (
	"sync"

	"battle-quiz-service/internal/battle"
)

// BattleStore keeps live battle instances in process memory.
type BattleStore struct {
	mu      sync.RWMutex
	battles map[string]*battle.Battle
}

func NewBattleStore() *BattleStore {
	return &BattleStore{battles: make(map[string]*battle.Battle)}
}

func (s *BattleStore) Put(b *battle.Battle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battles[b.ID()] = b
}

func (s *BattleStore) Get(battleID string) (*battle.Battle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.battles[battleID]
	return b, ok
}

// Delete cancels and drops the battle; absent IDs are a no-op.
func (s *BattleStore) Delete(battleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.battles[battleID]; ok {
		b.Cancel()
		delete(s.battles, battleID)
	}
}

// Each returns a snapshot of the stored battles.
func (s *BattleStore) Each() []*battle.Battle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*battle.Battle, 0, len(s.battles))
	for _, b := range s.battles {
		out = append(out, b)
	}
	return out
}
