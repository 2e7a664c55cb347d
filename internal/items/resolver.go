package items

import (
	"math/rand"
	"time"

	"battle-quiz-service/internal/domain"
)

// allowedWith lists, per effect kind, the kinds it may be stacked with.
// Anything not listed is rejected.
var allowedWith = map[domain.EffectKind][]domain.EffectKind{
	domain.EffectEliminateWrongAnswer: {domain.EffectBattleHint, domain.EffectTimeBonus},
	domain.EffectBattleHint:           {domain.EffectEliminateWrongAnswer, domain.EffectTimeBonus},
	domain.EffectTimeBonus:            {domain.EffectEliminateWrongAnswer, domain.EffectBattleHint},
	domain.EffectBattleBoost:          {domain.EffectXPBoost, domain.EffectCoinBoost},
	domain.EffectXPBoost:              {domain.EffectBattleBoost, domain.EffectCoinBoost},
	domain.EffectCoinBoost:            {domain.EffectXPBoost, domain.EffectBattleBoost},
}

// MaxEliminations caps how many wrong alternatives one effect may remove.
const MaxEliminations = 2

// Resolver validates and applies consumable effects to in-flight battles.
type Resolver struct {
	rnd *rand.Rand
}

// NewResolver builds a resolver; rnd may be nil for a time-seeded source.
func NewResolver(rnd *rand.Rand) *Resolver {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Resolver{rnd: rnd}
}

// Validate checks the effect's own value ranges.
func Validate(effect domain.ItemEffect) error {
	switch e := effect.(type) {
	case domain.EliminateWrongAnswer:
		if e.Count < 1 || e.Count > MaxEliminations {
			return domain.ErrEffectValueOutOfRange
		}
	case domain.TimeBonus:
		if e.Seconds < 1 || e.Seconds > 60 {
			return domain.ErrEffectValueOutOfRange
		}
	case domain.BattleBoost:
		if e.Multiplier <= 1 || e.Multiplier > 3 {
			return domain.ErrEffectValueOutOfRange
		}
	case domain.XPBoost:
		if e.Multiplier <= 1 || e.Multiplier > 3 {
			return domain.ErrEffectValueOutOfRange
		}
	case domain.CoinBoost:
		if e.Multiplier <= 1 || e.Multiplier > 3 {
			return domain.ErrEffectValueOutOfRange
		}
	}
	return nil
}

// ValidateCombination rejects an effect whose kind is not compatible with
// every currently active effect kind.
func ValidateCombination(kind domain.EffectKind, active []domain.EffectKind) error {
	allowed := allowedWith[kind]
	for _, existing := range active {
		if existing == kind {
			return domain.ErrEffectAlreadyUsed
		}
		ok := false
		for _, a := range allowed {
			if a == existing {
				ok = true
				break
			}
		}
		if !ok {
			return domain.ErrEffectCombination
		}
	}
	return nil
}

// EliminateWrongAnswers picks up to count incorrect labels of q that are not
// already eliminated. Selection order is randomized so clients can't infer
// the correct answer from which option disappears first.
func (r *Resolver) EliminateWrongAnswers(q domain.Question, eliminated map[string]struct{}, count int) ([]string, error) {
	if count < 1 || count > MaxEliminations {
		return nil, domain.ErrEffectValueOutOfRange
	}

	candidates := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.Label == q.CorrectLabel {
			continue
		}
		if _, gone := eliminated[opt.Label]; gone {
			continue
		}
		candidates = append(candidates, opt.Label)
	}

	r.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates, nil
}
