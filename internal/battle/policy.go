package battle

import (
	"math/rand"
	"sync"
	"time"

	"battle-quiz-service/internal/domain"
)

// DefaultBotAccuracy is the probability a bot opponent answers correctly.
const DefaultBotAccuracy = 0.6

// OpponentPolicy resolves the opponent's correctness for each question.
// Answer must never block: live opponents whose answer has not arrived yet
// return resolved=false and reconcile later through the report path.
type OpponentPolicy interface {
	Answer(index int, q domain.Question) (correct bool, resolved bool)
}

// BotPolicy simulates an opponent with a fixed correctness probability.
type BotPolicy struct {
	accuracy float64
	rnd      *rand.Rand
}

// NewBotPolicy builds a bot; accuracy outside (0,1] falls back to the
// default, rnd may be nil for a time-seeded source.
func NewBotPolicy(accuracy float64, rnd *rand.Rand) *BotPolicy {
	if accuracy <= 0 || accuracy > 1 {
		accuracy = DefaultBotAccuracy
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &BotPolicy{accuracy: accuracy, rnd: rnd}
}

func (p *BotPolicy) Answer(int, domain.Question) (bool, bool) {
	return p.rnd.Float64() < p.accuracy, true
}

// LivePlayerPolicy holds answers reported by a remote human opponent.
// Unreported questions resolve later (or count as missed at completion).
type LivePlayerPolicy struct {
	mu       sync.Mutex
	reported map[int]bool
}

func NewLivePlayerPolicy() *LivePlayerPolicy {
	return &LivePlayerPolicy{reported: make(map[int]bool)}
}

func (p *LivePlayerPolicy) Answer(index int, _ domain.Question) (bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	correct, ok := p.reported[index]
	return correct, ok
}

// Report records the remote opponent's answer for a question index.
func (p *LivePlayerPolicy) Report(index int, correct bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reported[index] = correct
}
