package items_test

import (
	"math/rand"
	"testing"

	"battle-quiz-service/internal/domain"
	"battle-quiz-service/internal/items"
)

func fourOptionQuestion() domain.Question {
	return domain.Question{
		ID:     "q1",
		Prompt: "Pick B",
		Options: []domain.Option{
			{Label: "a", Text: "wrong"},
			{Label: "b", Text: "right"},
			{Label: "c", Text: "wrong"},
			{Label: "d", Text: "wrong"},
		},
		CorrectLabel: "b",
	}
}

func TestEliminateWrongAnswersRemovesExactlyOne(t *testing.T) {
	resolver := items.NewResolver(rand.New(rand.NewSource(1)))
	q := fourOptionQuestion()

	labels, err := resolver.EliminateWrongAnswers(q, map[string]struct{}{}, 1)
	if err != nil {
		t.Fatalf("eliminate: %v", err)
	}
	if len(labels) != 1 {
		t.Fatalf("expected exactly 1 elimination, got %v", labels)
	}
	if labels[0] == q.CorrectLabel {
		t.Fatalf("correct answer must never be eliminated")
	}
}

func TestEliminateWrongAnswersNeverTouchesCorrect(t *testing.T) {
	resolver := items.NewResolver(rand.New(rand.NewSource(7)))
	q := fourOptionQuestion()

	labels, err := resolver.EliminateWrongAnswers(q, map[string]struct{}{}, 2)
	if err != nil {
		t.Fatalf("eliminate: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("expected 2 eliminations, got %v", labels)
	}
	for _, l := range labels {
		if l == q.CorrectLabel {
			t.Fatalf("correct answer eliminated: %v", labels)
		}
	}
}

func TestEliminateWrongAnswersSkipsAlreadyEliminated(t *testing.T) {
	resolver := items.NewResolver(rand.New(rand.NewSource(3)))
	q := fourOptionQuestion()

	gone := map[string]struct{}{"a": {}, "c": {}}
	labels, err := resolver.EliminateWrongAnswers(q, gone, 2)
	if err != nil {
		t.Fatalf("eliminate: %v", err)
	}
	if len(labels) != 1 || labels[0] != "d" {
		t.Fatalf("expected only d left to eliminate, got %v", labels)
	}
}

func TestEliminateWrongAnswersValueRange(t *testing.T) {
	resolver := items.NewResolver(rand.New(rand.NewSource(5)))
	q := fourOptionQuestion()

	if _, err := resolver.EliminateWrongAnswers(q, nil, 0); err != domain.ErrEffectValueOutOfRange {
		t.Fatalf("expected out-of-range for 0, got %v", err)
	}
	if _, err := resolver.EliminateWrongAnswers(q, nil, 3); err != domain.ErrEffectValueOutOfRange {
		t.Fatalf("expected out-of-range for 3, got %v", err)
	}
}

func TestValidateRanges(t *testing.T) {
	cases := []struct {
		effect domain.ItemEffect
		ok     bool
	}{
		{domain.EliminateWrongAnswer{Count: 1}, true},
		{domain.EliminateWrongAnswer{Count: 3}, false},
		{domain.TimeBonus{Seconds: 10}, true},
		{domain.TimeBonus{Seconds: 0}, false},
		{domain.BattleBoost{Multiplier: 2}, true},
		{domain.BattleBoost{Multiplier: 1}, false},
		{domain.XPBoost{Multiplier: 5}, false},
		{domain.CoinBoost{Multiplier: 1.5}, true},
		{domain.BattleHint{}, true},
	}
	for _, tc := range cases {
		err := items.Validate(tc.effect)
		if tc.ok && err != nil {
			t.Fatalf("expected %T to validate, got %v", tc.effect, err)
		}
		if !tc.ok && err != domain.ErrEffectValueOutOfRange {
			t.Fatalf("expected %T to be out of range, got %v", tc.effect, err)
		}
	}
}

func TestValidateCombination(t *testing.T) {
	// coin boost stacks with xp/battle boosts only.
	if err := items.ValidateCombination(domain.EffectCoinBoost, []domain.EffectKind{domain.EffectXPBoost}); err != nil {
		t.Fatalf("coin+xp boost should combine: %v", err)
	}
	if err := items.ValidateCombination(domain.EffectCoinBoost, []domain.EffectKind{domain.EffectBattleHint}); err != domain.ErrEffectCombination {
		t.Fatalf("coin boost next to hint should be rejected, got %v", err)
	}
	// a second effect of the same kind is a duplicate, not a combination issue.
	if err := items.ValidateCombination(domain.EffectEliminateWrongAnswer, []domain.EffectKind{domain.EffectEliminateWrongAnswer}); err != domain.ErrEffectAlreadyUsed {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	if err := items.ValidateCombination(domain.EffectBattleHint, nil); err != nil {
		t.Fatalf("empty active set should always combine: %v", err)
	}
}
