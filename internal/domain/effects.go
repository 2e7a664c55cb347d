package domain

// EffectKind tags an item effect variant.
type EffectKind string

const (
	EffectEliminateWrongAnswer EffectKind = "eliminate_wrong_answer"
	EffectBattleHint           EffectKind = "battle_hint"
	EffectTimeBonus            EffectKind = "time_bonus"
	EffectBattleBoost          EffectKind = "battle_boost"
	EffectXPBoost              EffectKind = "xp_boost"
	EffectCoinBoost            EffectKind = "coin_boost"
)

// ItemEffect is the tagged union of consumable effects. Each variant
// carries only the fields it needs.
type ItemEffect interface {
	Kind() EffectKind
}

// EliminateWrongAnswer removes up to Count incorrect alternatives from
// the current question.
type EliminateWrongAnswer struct {
	Count int
}

func (EliminateWrongAnswer) Kind() EffectKind { return EffectEliminateWrongAnswer }

// BattleHint reveals a hint for the current question.
type BattleHint struct{}

func (BattleHint) Kind() EffectKind { return EffectBattleHint }

// TimeBonus adds Seconds to the current question's countdown.
type TimeBonus struct {
	Seconds int
}

func (TimeBonus) Kind() EffectKind { return EffectTimeBonus }

// BattleBoost multiplies the final XP and coin payout.
type BattleBoost struct {
	Multiplier float64
}

func (BattleBoost) Kind() EffectKind { return EffectBattleBoost }

// XPBoost multiplies the final XP payout only.
type XPBoost struct {
	Multiplier float64
}

func (XPBoost) Kind() EffectKind { return EffectXPBoost }

// CoinBoost multiplies the final coin payout only.
type CoinBoost struct {
	Multiplier float64
}

func (CoinBoost) Kind() EffectKind { return EffectCoinBoost }
