package redis

import (
	"context"
	"testing"
	"time"

	"battle-quiz-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func descriptor(id string, joined time.Time) domain.PlayerDescriptor {
	return domain.PlayerDescriptor{
		ID:          id,
		Rating:      1000,
		Level:       5,
		JoinedAt:    joined,
		Preferences: domain.MatchPreferences{Mode: "classic", Category: "general"},
	}
}

func TestQueueUpsertAndListOrder(t *testing.T) {
	client, _ := newClient(t)
	repo := NewQueueRepository(client)
	ctx := context.Background()
	now := time.Now()

	if err := repo.Upsert(ctx, descriptor("newer", now)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(ctx, descriptor("older", now.Add(-30*time.Second))); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	waiting, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(waiting) != 2 || waiting[0].ID != "older" {
		t.Fatalf("expected oldest first, got %+v", waiting)
	}
}

func TestQueueUpsertPreservesJoinTime(t *testing.T) {
	client, _ := newClient(t)
	repo := NewQueueRepository(client)
	ctx := context.Background()

	joined := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	if err := repo.Upsert(ctx, descriptor("p1", joined)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(ctx, descriptor("p1", time.Now())); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	waiting, _ := repo.List(ctx)
	if len(waiting) != 1 {
		t.Fatalf("expected single entry, got %d", len(waiting))
	}
	if !waiting[0].JoinedAt.Equal(joined) {
		t.Fatalf("join timestamp reset: %v vs %v", waiting[0].JoinedAt, joined)
	}
}

func TestQueueClaimAtomicity(t *testing.T) {
	client, _ := newClient(t)
	repo := NewQueueRepository(client)
	ctx := context.Background()
	now := time.Now()

	_ = repo.Upsert(ctx, descriptor("p1", now))
	_ = repo.Upsert(ctx, descriptor("p2", now))

	ok, err := repo.Claim(ctx, "p1", "p2")
	if err != nil || !ok {
		t.Fatalf("expected claim success, ok=%v err=%v", ok, err)
	}

	// p1 is gone; claiming p1+p3 must fail and leave p3 queued.
	_ = repo.Upsert(ctx, descriptor("p3", now))
	ok, err = repo.Claim(ctx, "p1", "p3")
	if err != nil || ok {
		t.Fatalf("expected claim failure, ok=%v err=%v", ok, err)
	}
	waiting, _ := repo.List(ctx)
	if len(waiting) != 1 || waiting[0].ID != "p3" {
		t.Fatalf("failed claim must not remove anyone, got %+v", waiting)
	}
}

func TestQueueRemoveIdempotent(t *testing.T) {
	client, _ := newClient(t)
	repo := NewQueueRepository(client)
	ctx := context.Background()

	_ = repo.Upsert(ctx, descriptor("p1", time.Now()))
	if err := repo.Remove(ctx, "p1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := repo.Remove(ctx, "p1"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}
