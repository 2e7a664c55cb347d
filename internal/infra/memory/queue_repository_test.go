package memory

import (
	"context"
	"testing"
	"time"

	"battle-quiz-service/internal/domain"
)

func descriptor(id string, joined time.Time) domain.PlayerDescriptor {
	return domain.PlayerDescriptor{
		ID:       id,
		Rating:   1000,
		Level:    5,
		JoinedAt: joined,
		Preferences: domain.MatchPreferences{
			Mode:     "classic",
			Category: "general",
		},
	}
}

func TestUpsertKeepsJoinTimestamp(t *testing.T) {
	ctx := context.Background()
	repo := NewQueueRepository()

	joined := time.Now().Add(-time.Minute)
	if err := repo.Upsert(ctx, descriptor("p1", joined)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Re-join with a newer timestamp must not reset the wait clock.
	if err := repo.Upsert(ctx, descriptor("p1", time.Now())); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	waiting, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(waiting) != 1 {
		t.Fatalf("expected no duplicate entry, got %d", len(waiting))
	}
	if !waiting[0].JoinedAt.Equal(joined) {
		t.Fatalf("join timestamp reset: %v vs %v", waiting[0].JoinedAt, joined)
	}
}

func TestListSortedByJoinTime(t *testing.T) {
	ctx := context.Background()
	repo := NewQueueRepository()
	now := time.Now()

	_ = repo.Upsert(ctx, descriptor("newer", now))
	_ = repo.Upsert(ctx, descriptor("older", now.Add(-30*time.Second)))

	waiting, _ := repo.List(ctx)
	if len(waiting) != 2 || waiting[0].ID != "older" {
		t.Fatalf("expected oldest first, got %+v", waiting)
	}
}

func TestClaimIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewQueueRepository()
	now := time.Now()

	_ = repo.Upsert(ctx, descriptor("p1", now))
	_ = repo.Upsert(ctx, descriptor("p2", now))

	ok, err := repo.Claim(ctx, "p1", "p2")
	if err != nil || !ok {
		t.Fatalf("expected claim to succeed, ok=%v err=%v", ok, err)
	}

	// Both are gone; a second claim against either must fail without
	// touching anything else.
	_ = repo.Upsert(ctx, descriptor("p3", now))
	ok, err = repo.Claim(ctx, "p1", "p3")
	if err != nil || ok {
		t.Fatalf("expected claim to fail when a player is gone, ok=%v err=%v", ok, err)
	}
	waiting, _ := repo.List(ctx)
	if len(waiting) != 1 || waiting[0].ID != "p3" {
		t.Fatalf("failed claim must not remove anyone, got %+v", waiting)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewQueueRepository()

	_ = repo.Upsert(ctx, descriptor("p1", time.Now()))
	if err := repo.Remove(ctx, "p1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := repo.Remove(ctx, "p1"); err != nil {
		t.Fatalf("second remove must not error: %v", err)
	}
}
