package memory

import (
	"testing"

	"battle-quiz-service/internal/battle"
	"battle-quiz-service/internal/items"
	"battle-quiz-service/internal/scoring"
)

func TestBattleStoreLifecycle(t *testing.T) {
	store := NewBattleStore()

	b := battle.New("b1", "m1", "p1", scoring.NewEngine(scoring.DefaultConfig()), items.NewResolver(nil), battle.Options{})
	store.Put(b)

	if _, ok := store.Get("b1"); !ok {
		t.Fatalf("expected battle present")
	}

	store.Delete("b1")
	if _, ok := store.Get("b1"); ok {
		t.Fatalf("expected battle removed")
	}
	store.Delete("b1") // deleting twice is a no-op
}
