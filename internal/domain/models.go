package domain

import "time"

// BattleStatus enumerates the lifecycle states of a battle.
type BattleStatus string

const (
	StatusIdle      BattleStatus = "idle"
	StatusPreparing BattleStatus = "preparing"
	StatusReady     BattleStatus = "ready"
	StatusActive    BattleStatus = "active"
	StatusPaused    BattleStatus = "paused"
	StatusCompleted BattleStatus = "completed"
	StatusVictory   BattleStatus = "victory"
	StatusDefeat    BattleStatus = "defeat"
	StatusDraw      BattleStatus = "draw"
	StatusError     BattleStatus = "error"
)

// Terminal reports whether no further transitions are allowed from s.
func (s BattleStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusVictory, StatusDefeat, StatusDraw, StatusError:
		return true
	}
	return false
}

// MatchPreferences narrow the pool of acceptable opponents. Mode and
// category are matched exactly and never relaxed.
type MatchPreferences struct {
	Mode     string `json:"mode"`
	Category string `json:"category"`
}

// PlayerDescriptor is the ephemeral identity of a player waiting in the
// matchmaking queue. Created on queue join, destroyed on match or exit.
type PlayerDescriptor struct {
	ID          string           `json:"id"`
	Rating      int              `json:"rating"`
	Level       int              `json:"level"`
	IsBot       bool             `json:"isBot"`
	JoinedAt    time.Time        `json:"joinedAt"`
	Preferences MatchPreferences `json:"preferences"`
}

// Match pairs two descriptors. Immutable once created; consumed exactly
// once to seed a battle.
type Match struct {
	ID        string           `json:"id"`
	PlayerA   PlayerDescriptor `json:"playerA"`
	PlayerB   PlayerDescriptor `json:"playerB"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Option is one labeled alternative of a question.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question models an MCQ question with exactly one correct option.
// Read-only within a battle.
type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []Option `json:"options"` // up to four
	CorrectLabel string   `json:"correctLabel"`
	Category     string   `json:"category"`
	Difficulty   int      `json:"difficulty"` // 1..3
}

// HasOption reports whether label is one of the question's alternatives.
func (q Question) HasOption(label string) bool {
	for _, opt := range q.Options {
		if opt.Label == label {
			return true
		}
	}
	return false
}

// Score holds the running counters for both sides. Counters only increase.
type Score struct {
	Player   int `json:"player"`
	Opponent int `json:"opponent"`
}

// Rewards is the accumulated payout of a battle, finalized at completion.
type Rewards struct {
	XPEarned    int `json:"xpEarned"`
	CoinsEarned int `json:"coinsEarned"`
	StreakBonus int `json:"streakBonus"`
	TimeBonus   int `json:"timeBonus"`
}

// BattleMetadata carries the fixed configuration of a battle instance.
type BattleMetadata struct {
	IsBot      bool   `json:"isBot"`
	Difficulty int    `json:"difficulty"`
	Mode       string `json:"mode"`
}

// BattleProgress is a snapshot-friendly view for presentation code.
type BattleProgress struct {
	CurrentQuestion int   `json:"currentQuestion"`
	TotalQuestions  int   `json:"totalQuestions"`
	TimeLeft        int   `json:"timeLeft"`
	Score           Score `json:"score"`
}

// RewardKind enumerates payout units.
type RewardKind string

const (
	RewardXP    RewardKind = "xp"
	RewardCoins RewardKind = "coins"
	RewardItem  RewardKind = "item"
)

// Rarity tiers for item rewards.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Reward is a single typed payout. Immutable once emitted.
type Reward struct {
	Kind   RewardKind `json:"kind"`
	Rarity Rarity     `json:"rarity"`
	Value  int        `json:"value"`
	ItemID string     `json:"itemId,omitempty"`
}

// BattleResult is persisted after a battle reaches a terminal state.
type BattleResult struct {
	BattleID    string       `json:"battleId"`
	MatchID     string       `json:"matchId"`
	PlayerID    string       `json:"playerId"`
	Status      BattleStatus `json:"status"`
	Score       Score        `json:"score"`
	Rewards     Rewards      `json:"rewards"`
	CompletedAt time.Time    `json:"completedAt"`
}

// Notification is the fire-and-forget event shape pushed to the
// notification dispatcher collaborator.
type Notification struct {
	Type    string `json:"type"` // achievement | success | error
	Message string `json:"message"`
	Payload any    `json:"payload,omitempty"`
}
