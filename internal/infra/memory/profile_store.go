package memory

import (
	"context"
	"sync"

	"battle-quiz-service/internal/domain"
)

// ProfileStore keeps victory streaks and finished results in process
// memory. Suited for development and tests.
type ProfileStore struct {
	mu      sync.Mutex
	streaks map[string]int
	results []domain.BattleResult
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{streaks: make(map[string]int)}
}

func (s *ProfileStore) PlayerStreak(_ context.Context, playerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaks[playerID], nil
}

// PersistBattleResult appends the result and rolls the victory streak:
// a win extends it, anything else resets it.
func (s *ProfileStore) PersistBattleResult(_ context.Context, result domain.BattleResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	if result.Status == domain.StatusVictory {
		s.streaks[result.PlayerID]++
	} else {
		delete(s.streaks, result.PlayerID)
	}
	return nil
}

// Results returns a snapshot of every persisted result.
func (s *ProfileStore) Results() []domain.BattleResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BattleResult, len(s.results))
	copy(out, s.results)
	return out
}
