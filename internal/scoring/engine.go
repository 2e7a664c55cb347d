package scoring

import (
	"math"

	"battle-quiz-service/internal/domain"
)

// Config holds the reward constants (defaults match production tuning).
type Config struct {
	BaseXPRate          int     // XP per correct answer before multipliers
	BaseCoinRate        int     // coins per correct answer before multipliers
	StreakMultiplier    float64 // fraction of base XP granted per win streak
	TimeBonusMultiplier float64 // XP per second left on the clock
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BaseXPRate:          10,
		BaseCoinRate:        5,
		StreakMultiplier:    0.1,
		TimeBonusMultiplier: 2,
	}
}

// Engine computes battle scores and reward payouts. All methods are pure:
// identical inputs yield identical outputs.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// BattleScore returns the next score given both sides' correctness for the
// question just answered. Counters never decrease.
func BattleScore(current domain.Score, playerCorrect, opponentCorrect bool) domain.Score {
	next := current
	if playerCorrect {
		next.Player++
	}
	if opponentCorrect {
		next.Opponent++
	}
	return next
}

// Outcome maps a final score to a terminal battle status. Strictly greater
// means victory, equal means draw.
func Outcome(score domain.Score) domain.BattleStatus {
	switch {
	case score.Player > score.Opponent:
		return domain.StatusVictory
	case score.Player == score.Opponent:
		return domain.StatusDraw
	default:
		return domain.StatusDefeat
	}
}

// BattleRewards computes the payout for a finished battle. Fractional XP and
// coins are floored, never rounded up, so rounding can't inflate rewards.
func (e *Engine) BattleRewards(score, totalQuestions, difficulty, streak, timeLeft int) domain.Rewards {
	if totalQuestions <= 0 || score <= 0 {
		return domain.Rewards{}
	}
	if difficulty < 1 {
		difficulty = 1
	}
	if streak < 0 {
		streak = 0
	}
	if timeLeft < 0 {
		timeLeft = 0
	}

	// base = score * rate * difficulty * (score/total), computed with integer
	// division so the floor is exact rather than subject to float truncation.
	baseXP := score * score * e.cfg.BaseXPRate * difficulty / totalQuestions
	baseCoins := score * score * e.cfg.BaseCoinRate * difficulty / totalQuestions

	return domain.Rewards{
		XPEarned:    baseXP,
		CoinsEarned: baseCoins,
		StreakBonus: int(float64(streak) * e.cfg.StreakMultiplier * float64(baseXP)),
		TimeBonus:   int(float64(timeLeft) * e.cfg.TimeBonusMultiplier),
	}
}

// TournamentPayout is the result of a tournament-tier reward calculation.
type TournamentPayout struct {
	XP    int             `json:"xp"`
	Coins int             `json:"coins"`
	Items []domain.Reward `json:"items,omitempty"`
}

// tournament base payouts keyed by tier
var tournamentBase = map[int]struct{ xp, coins int }{
	1: {100, 50},
	2: {250, 125},
	3: {500, 250},
}

var trophyRarity = map[int]domain.Rarity{
	1: domain.RarityRare,
	2: domain.RarityEpic,
	3: domain.RarityLegendary,
}

var medalByPosition = map[int]string{
	1: "medal_gold",
	2: "medal_silver",
	3: "medal_bronze",
}

// TournamentRewards computes the payout for a tournament finisher.
// First place gets the full base, last place floors near 10% of it, and the
// performance ratio in [0,1] scales the result between 0.5x and 1.5x.
// Only the top three finishers receive special items.
func (e *Engine) TournamentRewards(position, totalParticipants, tier int, performance float64) TournamentPayout {
	if position < 1 || totalParticipants < 1 || position > totalParticipants {
		return TournamentPayout{}
	}
	base, ok := tournamentBase[tier]
	if !ok {
		tier = 1
		base = tournamentBase[tier]
	}
	if performance < 0 {
		performance = 0
	}
	if performance > 1 {
		performance = 1
	}

	positionMultiplier := 1 - (float64(position-1)/float64(totalParticipants))*0.9
	performanceMultiplier := 0.5 + performance

	payout := TournamentPayout{
		XP:    int(math.Round(float64(base.xp) * positionMultiplier * performanceMultiplier)),
		Coins: int(math.Round(float64(base.coins) * positionMultiplier * performanceMultiplier)),
	}

	if position <= 3 {
		payout.Items = append(payout.Items,
			domain.Reward{Kind: domain.RewardItem, Rarity: trophyRarity[tier], ItemID: trophyID(tier), Value: 1},
			domain.Reward{Kind: domain.RewardItem, Rarity: domain.RarityRare, ItemID: medalByPosition[position], Value: 1},
		)
	}
	return payout
}

func trophyID(tier int) string {
	switch tier {
	case 2:
		return "trophy_silver"
	case 3:
		return "trophy_gold"
	default:
		return "trophy_bronze"
	}
}
