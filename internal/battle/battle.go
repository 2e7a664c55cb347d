package battle

import (
	"math"
	"sync"
	"time"

	"battle-quiz-service/internal/domain"
	"battle-quiz-service/internal/items"
	"battle-quiz-service/internal/scoring"
)

// DefaultTimePerQuestion is the countdown, in seconds, for each question.
const DefaultTimePerQuestion = 15

// Event is pushed to battle subscribers on every observable change.
type Event struct {
	Type     string                `json:"type"` // timer | answer | question | hint | paused | resumed | over
	Status   domain.BattleStatus   `json:"status"`
	Progress domain.BattleProgress `json:"progress"`
	Hint     string                `json:"hint,omitempty"`
	Rewards  *domain.Rewards       `json:"rewards,omitempty"`
}

// AnswerOutcome summarizes a single submission for the caller.
type AnswerOutcome struct {
	Index        int                 `json:"index"`
	Correct      bool                `json:"correct"`
	CorrectLabel string              `json:"correctLabel"`
	Score        domain.Score        `json:"score"`
	Done         bool                `json:"done"`
	Status       domain.BattleStatus `json:"status"`
	Rewards      domain.Rewards      `json:"rewards"`
}

// QuestionView is the current question plus its per-question effect state.
type QuestionView struct {
	Index      int             `json:"index"`
	Question   domain.Question `json:"question"`
	Eliminated []string        `json:"eliminated"`
}

// Options configure a battle instance.
type Options struct {
	TimePerQuestion int           // seconds; defaults to DefaultTimePerQuestion
	Streak          int           // the player's victory streak entering the battle
	TickInterval    time.Duration // countdown granularity; defaults to one second
	Clock           func() time.Time
}

// Battle owns the lifecycle of a single contest. All public methods are
// safe for concurrent use; no two questions are ever current at once.
type Battle struct {
	id       string
	matchID  string
	playerID string

	mu           sync.Mutex
	status       domain.BattleStatus
	questions    []domain.Question
	current      int
	score        domain.Score
	answers      []bool
	submitted    []bool
	streak       int
	timePerQ     int
	timeLeft     int
	lastTimeLeft int
	eliminated   map[string]struct{}
	questionFx   []domain.EffectKind
	battleFx     []domain.EffectKind
	xpMult       float64
	coinMult     float64
	hint         string
	rewards      domain.Rewards
	meta         domain.BattleMetadata
	opponent     OpponentPolicy
	pendingOpp   map[int]struct{}
	subscribers  map[chan Event]struct{}

	engine   *scoring.Engine
	resolver *items.Resolver
	now      func() time.Time
	tick     time.Duration

	stopTimer chan struct{}
	stopOnce  sync.Once
	started   bool
}

// New returns an idle battle bound to a match and player identity.
func New(id, matchID, playerID string, engine *scoring.Engine, resolver *items.Resolver, opts Options) *Battle {
	if opts.TimePerQuestion <= 0 {
		opts.TimePerQuestion = DefaultTimePerQuestion
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Battle{
		id:          id,
		matchID:     matchID,
		playerID:    playerID,
		status:      domain.StatusIdle,
		streak:      opts.Streak,
		timePerQ:    opts.TimePerQuestion,
		eliminated:  make(map[string]struct{}),
		xpMult:      1,
		coinMult:    1,
		pendingOpp:  make(map[int]struct{}),
		subscribers: make(map[chan Event]struct{}),
		engine:      engine,
		resolver:    resolver,
		now:         opts.Clock,
		tick:        opts.TickInterval,
		stopTimer:   make(chan struct{}),
	}
}

func (b *Battle) ID() string       { return b.id }
func (b *Battle) MatchID() string  { return b.matchID }
func (b *Battle) PlayerID() string { return b.playerID }

// Initialize populates the aggregate and moves idle -> ready. An empty
// question set is a fatal configuration error and lands in the error state.
func (b *Battle) Initialize(questions []domain.Question, opponent OpponentPolicy, meta domain.BattleMetadata) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status != domain.StatusIdle {
		return domain.ErrInvalidTransition
	}
	b.status = domain.StatusPreparing
	if len(questions) == 0 {
		b.status = domain.StatusError
		return domain.ErrEmptyQuestionSet
	}
	if opponent == nil {
		b.status = domain.StatusError
		return domain.ErrInvalidTransition
	}

	b.questions = questions
	b.opponent = opponent
	b.meta = meta
	b.current = 0
	b.score = domain.Score{}
	b.answers = b.answers[:0]
	b.submitted = b.submitted[:0]
	b.timeLeft = b.timePerQ
	b.status = domain.StatusReady
	return nil
}

// Start moves ready -> active and begins the countdown for question 0.
func (b *Battle) Start() error {
	b.mu.Lock()
	if b.status != domain.StatusReady {
		b.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	b.status = domain.StatusActive
	b.timeLeft = b.timePerQ
	start := !b.started
	b.started = true
	b.broadcastLocked(Event{Type: "question", Status: b.status, Progress: b.progressLocked()})
	b.mu.Unlock()

	if start {
		go b.runTimer()
	}
	return nil
}

// SubmitAnswer scores the player's answer for the question at index and
// advances the battle. Double submissions and stale indexes are rejected.
func (b *Battle) SubmitAnswer(index int, label string) (AnswerOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status.Terminal() {
		return AnswerOutcome{}, domain.ErrBattleTerminal
	}
	if b.status != domain.StatusActive {
		return AnswerOutcome{}, domain.ErrBattleNotActive
	}
	// The battle advances as soon as a question resolves, so a repeat
	// submission always targets a past index. Distinguish "you already
	// answered this" from a late submission for a timed-out question.
	if index < b.current {
		if index < len(b.submitted) && b.submitted[index] {
			return AnswerOutcome{}, domain.ErrAlreadyAnswered
		}
		return AnswerOutcome{}, domain.ErrStaleQuestion
	}
	if index > b.current {
		return AnswerOutcome{}, domain.ErrStaleQuestion
	}

	q := b.questions[b.current]
	if !q.HasOption(label) {
		return AnswerOutcome{}, domain.ErrUnknownOption
	}
	if _, gone := b.eliminated[label]; gone {
		return AnswerOutcome{}, domain.ErrUnknownOption
	}

	correct := label == q.CorrectLabel
	return b.applyAnswerLocked(correct, true), nil
}

// applyAnswerLocked records the player's answer, resolves the opponent
// through the policy, and advances. The player's local score never waits
// on a remote opponent: unresolved answers reconcile via ReportOpponentAnswer.
func (b *Battle) applyAnswerLocked(correct, viaPlayer bool) AnswerOutcome {
	q := b.questions[b.current]

	oppCorrect, resolved := b.opponent.Answer(b.current, q)
	if !resolved {
		b.pendingOpp[b.current] = struct{}{}
		oppCorrect = false
	}

	b.score = scoring.BattleScore(b.score, correct, oppCorrect)
	b.answers = append(b.answers, correct)
	b.submitted = append(b.submitted, viaPlayer)

	outcome := AnswerOutcome{
		Index:        b.current,
		Correct:      correct,
		CorrectLabel: q.CorrectLabel,
		Score:        b.score,
	}
	b.broadcastLocked(Event{Type: "answer", Status: b.status, Progress: b.progressLocked()})

	b.advanceLocked()
	outcome.Done = b.status.Terminal()
	outcome.Status = b.status
	if outcome.Done {
		outcome.Rewards = b.rewards
	}
	return outcome
}

// advanceLocked moves to the next question or completes the battle.
func (b *Battle) advanceLocked() {
	b.lastTimeLeft = b.timeLeft
	b.current++
	b.eliminated = make(map[string]struct{})
	b.questionFx = b.questionFx[:0]
	b.hint = ""
	b.timeLeft = b.timePerQ

	if b.current >= len(b.questions) {
		b.completeLocked()
		return
	}
	b.broadcastLocked(Event{Type: "question", Status: b.status, Progress: b.progressLocked()})
}

// completeLocked finalizes the outcome and rewards. Live opponent answers
// that never arrived count as missed.
func (b *Battle) completeLocked() {
	b.status = scoring.Outcome(b.score)

	rewards := b.engine.BattleRewards(b.score.Player, len(b.questions), b.meta.Difficulty, b.streak, b.lastTimeLeft)
	rewards.XPEarned = int(math.Floor(float64(rewards.XPEarned) * b.xpMult))
	rewards.CoinsEarned = int(math.Floor(float64(rewards.CoinsEarned) * b.coinMult))
	b.rewards = rewards

	b.stopTimerLocked()
	b.broadcastLocked(Event{Type: "over", Status: b.status, Progress: b.progressLocked(), Rewards: &rewards})
}

// ReportOpponentAnswer reconciles a live opponent's answer that was still
// in flight when the player answered. Late reports after the battle ended
// are rejected so finalized outcomes never change.
func (b *Battle) ReportOpponentAnswer(index int, correct bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status.Terminal() {
		return domain.ErrBattleTerminal
	}
	if live, ok := b.opponent.(*LivePlayerPolicy); ok {
		live.Report(index, correct)
	}
	if _, pending := b.pendingOpp[index]; !pending {
		return nil
	}
	delete(b.pendingOpp, index)
	if correct {
		b.score.Opponent++
		b.broadcastLocked(Event{Type: "answer", Status: b.status, Progress: b.progressLocked()})
	}
	return nil
}

// Pause suspends the countdown; counters and time left are preserved.
func (b *Battle) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status != domain.StatusActive {
		return domain.ErrInvalidTransition
	}
	b.status = domain.StatusPaused
	b.broadcastLocked(Event{Type: "paused", Status: b.status, Progress: b.progressLocked()})
	return nil
}

// Resume continues a paused battle exactly where it stopped.
func (b *Battle) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status != domain.StatusPaused {
		return domain.ErrInvalidTransition
	}
	b.status = domain.StatusActive
	b.broadcastLocked(Event{Type: "resumed", Status: b.status, Progress: b.progressLocked()})
	return nil
}

// Cancel tears the battle down: the countdown stops and a non-terminal
// battle returns to idle. Safe to call multiple times and from any state.
func (b *Battle) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopTimerLocked()
	if !b.status.Terminal() {
		b.status = domain.StatusIdle
	}
}

// UseItem validates and applies a consumable effect. Rejections leave the
// battle state untouched.
func (b *Battle) UseItem(effect domain.ItemEffect) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status.Terminal() {
		return domain.ErrBattleTerminal
	}
	if b.status != domain.StatusActive {
		return domain.ErrBattleNotActive
	}
	if err := items.Validate(effect); err != nil {
		return err
	}
	active := make([]domain.EffectKind, 0, len(b.questionFx)+len(b.battleFx))
	active = append(active, b.questionFx...)
	active = append(active, b.battleFx...)
	if err := items.ValidateCombination(effect.Kind(), active); err != nil {
		return err
	}

	q := b.questions[b.current]
	switch e := effect.(type) {
	case domain.EliminateWrongAnswer:
		labels, err := b.resolver.EliminateWrongAnswers(q, b.eliminated, e.Count)
		if err != nil {
			return err
		}
		for _, label := range labels {
			b.eliminated[label] = struct{}{}
		}
		b.questionFx = append(b.questionFx, e.Kind())
	case domain.BattleHint:
		labels, err := b.resolver.EliminateWrongAnswers(q, b.eliminated, 1)
		if err != nil {
			return err
		}
		hint := "no hint available"
		if len(labels) > 0 {
			hint = "the answer is not " + labels[0]
		}
		b.hint = hint
		b.questionFx = append(b.questionFx, e.Kind())
		b.broadcastLocked(Event{Type: "hint", Status: b.status, Progress: b.progressLocked(), Hint: hint})
	case domain.TimeBonus:
		b.timeLeft += e.Seconds
		b.questionFx = append(b.questionFx, e.Kind())
		b.broadcastLocked(Event{Type: "timer", Status: b.status, Progress: b.progressLocked()})
	case domain.BattleBoost:
		b.xpMult *= e.Multiplier
		b.coinMult *= e.Multiplier
		b.battleFx = append(b.battleFx, e.Kind())
	case domain.XPBoost:
		b.xpMult *= e.Multiplier
		b.battleFx = append(b.battleFx, e.Kind())
	case domain.CoinBoost:
		b.coinMult *= e.Multiplier
		b.battleFx = append(b.battleFx, e.Kind())
	default:
		return domain.ErrEffectCombination
	}
	return nil
}

// Status returns the current lifecycle state.
func (b *Battle) Status() domain.BattleStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// CurrentQuestion returns the question under play, or false once the
// battle has no current question.
func (b *Battle) CurrentQuestion() (QuestionView, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current >= len(b.questions) || b.status.Terminal() {
		return QuestionView{}, false
	}
	eliminated := make([]string, 0, len(b.eliminated))
	for label := range b.eliminated {
		eliminated = append(eliminated, label)
	}
	return QuestionView{Index: b.current, Question: b.questions[b.current], Eliminated: eliminated}, true
}

// Progress returns a snapshot for presentation code.
func (b *Battle) Progress() domain.BattleProgress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progressLocked()
}

// Rewards returns the finalized payout; zero until the battle completes.
func (b *Battle) Rewards() domain.Rewards {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rewards
}

// Hint returns the revealed hint for the current question, if any.
func (b *Battle) Hint() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hint
}

// PlayerAnswers returns the per-question correctness history so far.
func (b *Battle) PlayerAnswers() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]bool, len(b.answers))
	copy(out, b.answers)
	return out
}

// Result builds the persistable record for a finished battle.
func (b *Battle) Result() domain.BattleResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.BattleResult{
		BattleID:    b.id,
		MatchID:     b.matchID,
		PlayerID:    b.playerID,
		Status:      b.status,
		Score:       b.score,
		Rewards:     b.rewards,
		CompletedAt: b.now(),
	}
}

func (b *Battle) progressLocked() domain.BattleProgress {
	current := b.current
	if current > len(b.questions) {
		current = len(b.questions)
	}
	return domain.BattleProgress{
		CurrentQuestion: current,
		TotalQuestions:  len(b.questions),
		TimeLeft:        b.timeLeft,
		Score:           b.score,
	}
}

// Subscribe returns a channel of battle events. The caller must invoke the
// returned cancel function to avoid leaks.
func (b *Battle) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	initial := Event{Type: "question", Status: b.status, Progress: b.progressLocked()}
	b.mu.Unlock()

	ch <- initial

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Battle) broadcastLocked(ev Event) {
	for ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest update so a slow client never blocks the battle.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

// runTimer drives the per-question countdown until the battle ends.
func (b *Battle) runTimer() {
	ticker := time.NewTicker(b.tick)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopTimer:
			return
		case <-ticker.C:
			if !b.tickOnce() {
				return
			}
		}
	}
}

// tickOnce decrements the countdown and forces a missed answer at zero.
// Returns false once the battle no longer needs a timer.
func (b *Battle) tickOnce() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status.Terminal() || b.status == domain.StatusIdle {
		return false
	}
	if b.status != domain.StatusActive {
		return true
	}

	if b.timeLeft > 0 {
		b.timeLeft--
	}
	if b.timeLeft <= 0 {
		b.timeLeft = 0
		b.applyAnswerLocked(false, false)
		return !b.status.Terminal()
	}
	b.broadcastLocked(Event{Type: "timer", Status: b.status, Progress: b.progressLocked()})
	return true
}

func (b *Battle) stopTimerLocked() {
	b.stopOnce.Do(func() { close(b.stopTimer) })
}
