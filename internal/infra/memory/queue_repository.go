package memory

import (
	"context"
	"sort"
	"sync"

	"battle-quiz-service/internal/domain"
)

// QueueRepository is an in-memory implementation of
// matchmaking.QueueRepository. Claim is atomic under the repository mutex.
type QueueRepository struct {
	mu      sync.Mutex
	waiting map[string]domain.PlayerDescriptor
}

func NewQueueRepository() *QueueRepository {
	return &QueueRepository{waiting: make(map[string]domain.PlayerDescriptor)}
}

// Upsert registers or refreshes a descriptor. A re-join keeps the original
// join timestamp so the wait clock never resets.
func (r *QueueRepository) Upsert(_ context.Context, d domain.PlayerDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.waiting[d.ID]; ok {
		d.JoinedAt = existing.JoinedAt
	}
	r.waiting[d.ID] = d
	return nil
}

func (r *QueueRepository) Remove(_ context.Context, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.waiting, playerID)
	return nil
}

func (r *QueueRepository) List(_ context.Context) ([]domain.PlayerDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PlayerDescriptor, 0, len(r.waiting))
	for _, d := range r.waiting {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Claim removes all listed players if and only if every one is still queued.
func (r *QueueRepository) Claim(_ context.Context, playerIDs ...string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range playerIDs {
		if _, ok := r.waiting[id]; !ok {
			return false, nil
		}
	}
	for _, id := range playerIDs {
		delete(r.waiting, id)
	}
	return true, nil
}
