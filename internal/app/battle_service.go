package app

import (
	"context"
	"log"
	"sync"
	"time"

	"battle-quiz-service/internal/battle"
	"battle-quiz-service/internal/domain"
	"battle-quiz-service/internal/items"
	"battle-quiz-service/internal/matchmaking"
	"battle-quiz-service/internal/scoring"
	"github.com/google/uuid"
)

// QuestionRepository loads question sets (from cache/backing store).
type QuestionRepository interface {
	FetchQuestions(ctx context.Context, category string, difficulty, count int) ([]domain.Question, error)
}

// BattleStore abstracts how live battles are kept (in-memory, Redis-marked).
type BattleStore interface {
	Put(b *battle.Battle)
	Get(battleID string) (*battle.Battle, bool)
	Delete(battleID string)
	Each() []*battle.Battle
}

// ProfileStore supplies player progression and persists final rewards.
type ProfileStore interface {
	PlayerStreak(ctx context.Context, playerID string) (int, error)
	PersistBattleResult(ctx context.Context, result domain.BattleResult) error
}

// Notifier receives fire-and-forget notification events.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// MatchEvent tells a queued player their battle is ready.
type MatchEvent struct {
	Match    domain.Match `json:"match"`
	BattleID string       `json:"battleId"`
}

// Config tunes battle creation.
type Config struct {
	QuestionCount   int
	TimePerQuestion int
	BotAccuracy     float64
	TickInterval    time.Duration
}

// BattleService is the composition root: it consumes matchmaking results,
// owns the live battles, and exposes the command/query surface used by
// presentation code.
type BattleService struct {
	battles    BattleStore
	questions  QuestionRepository
	profiles   ProfileStore
	notifier   Notifier
	engine     *scoring.Engine
	resolver   *items.Resolver
	matchmaker *matchmaking.Service
	cfg        Config

	mu        sync.Mutex
	byPlayer  map[string]string   // playerID -> battleID
	byMatch   map[string][]string // matchID -> battleIDs (one per human side)
	matchSubs map[string]map[chan MatchEvent]struct{}
}

// NewBattleService wires the orchestration layer. The matchmaking service is
// constructed here so emitted matches are consumed exactly once.
func NewBattleService(queue matchmaking.QueueRepository, questions QuestionRepository, profiles ProfileStore, battles BattleStore, notifier Notifier, engine *scoring.Engine, mmOpts matchmaking.Options, cfg Config) *BattleService {
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = 5
	}
	if cfg.TimePerQuestion <= 0 {
		cfg.TimePerQuestion = battle.DefaultTimePerQuestion
	}
	if cfg.BotAccuracy <= 0 || cfg.BotAccuracy > 1 {
		cfg.BotAccuracy = battle.DefaultBotAccuracy
	}
	s := &BattleService{
		battles:   battles,
		questions: questions,
		profiles:  profiles,
		notifier:  notifier,
		engine:    engine,
		resolver:  items.NewResolver(nil),
		cfg:       cfg,
		byPlayer:  make(map[string]string),
		byMatch:   make(map[string][]string),
		matchSubs: make(map[string]map[chan MatchEvent]struct{}),
	}
	s.matchmaker = matchmaking.NewService(queue, notifier, s.consumeMatch, mmOpts)
	return s
}

// Matchmaker exposes the queue service for schedulers.
func (s *BattleService) Matchmaker() *matchmaking.Service { return s.matchmaker }

// JoinQueue registers a player for matchmaking.
func (s *BattleService) JoinQueue(ctx context.Context, player domain.PlayerDescriptor, prefs domain.MatchPreferences) error {
	return s.matchmaker.JoinQueue(ctx, player, prefs)
}

// LeaveQueue removes a player from matchmaking; idempotent.
func (s *BattleService) LeaveQueue(ctx context.Context, playerID string) error {
	return s.matchmaker.LeaveQueue(ctx, playerID)
}

// SubscribeMatches delivers the match event for a queued player. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *BattleService) SubscribeMatches(playerID string) (<-chan MatchEvent, func()) {
	ch := make(chan MatchEvent, 1)
	s.mu.Lock()
	subs, ok := s.matchSubs[playerID]
	if !ok {
		subs = make(map[chan MatchEvent]struct{})
		s.matchSubs[playerID] = subs
	}
	subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if subs, ok := s.matchSubs[playerID]; ok {
			if _, present := subs[ch]; present {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(s.matchSubs, playerID)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// InitializeBattle starts a battle outside the matchmaking queue, for a
// practice match against a bot or a direct challenge. It returns the
// caller's battle ID; a human challengee learns theirs via SubscribeMatches.
func (s *BattleService) InitializeBattle(ctx context.Context, player, opponent domain.PlayerDescriptor) (string, error) {
	match := domain.Match{
		ID:        uuid.NewString(),
		PlayerA:   player,
		PlayerB:   opponent,
		CreatedAt: time.Now(),
	}
	battleID, err := s.startBattle(ctx, match, player, opponent)
	if err != nil {
		return "", err
	}
	if !opponent.IsBot {
		peerID, err := s.startBattle(ctx, match, opponent, player)
		if err != nil {
			log.Printf("challengee battle for match %s failed: %v", match.ID, err)
		} else {
			s.publishMatch(opponent.ID, MatchEvent{Match: match, BattleID: peerID})
		}
	}
	return battleID, nil
}

// consumeMatch turns an emitted match into battle instances: one per human
// side. Human-vs-human sides get live opponent policies that the service
// cross-reconciles on every submission.
func (s *BattleService) consumeMatch(match domain.Match) {
	ctx := context.Background()
	for _, side := range []struct {
		player, opponent domain.PlayerDescriptor
	}{
		{match.PlayerA, match.PlayerB},
		{match.PlayerB, match.PlayerA},
	} {
		if side.player.IsBot {
			continue
		}
		battleID, err := s.startBattle(ctx, match, side.player, side.opponent)
		if err != nil {
			log.Printf("battle for match %s player %s failed: %v", match.ID, side.player.ID, err)
			s.notify(ctx, domain.Notification{Type: "error", Message: "battle initialization failed", Payload: match.ID})
			continue
		}
		s.publishMatch(side.player.ID, MatchEvent{Match: match, BattleID: battleID})
	}
}

func (s *BattleService) startBattle(ctx context.Context, match domain.Match, player, opponent domain.PlayerDescriptor) (string, error) {
	difficulty := difficultyFor(player.Level)
	questions, err := s.questions.FetchQuestions(ctx, player.Preferences.Category, difficulty, s.cfg.QuestionCount)
	if err != nil {
		return "", err
	}

	streak, err := s.profiles.PlayerStreak(ctx, player.ID)
	if err != nil {
		log.Printf("streak lookup for %s failed: %v", player.ID, err)
		streak = 0
	}

	var policy battle.OpponentPolicy
	if opponent.IsBot {
		policy = battle.NewBotPolicy(s.cfg.BotAccuracy, nil)
	} else {
		policy = battle.NewLivePlayerPolicy()
	}

	b := battle.New(uuid.NewString(), match.ID, player.ID, s.engine, s.resolver, battle.Options{
		TimePerQuestion: s.cfg.TimePerQuestion,
		Streak:          streak,
		TickInterval:    s.cfg.TickInterval,
	})
	meta := domain.BattleMetadata{
		IsBot:      opponent.IsBot,
		Difficulty: difficulty,
		Mode:       player.Preferences.Mode,
	}
	if err := b.Initialize(questions, policy, meta); err != nil {
		return "", err
	}

	s.battles.Put(b)
	s.mu.Lock()
	s.byPlayer[player.ID] = b.ID()
	s.byMatch[match.ID] = append(s.byMatch[match.ID], b.ID())
	s.mu.Unlock()

	if err := b.Start(); err != nil {
		return "", err
	}
	return b.ID(), nil
}

// SubmitAnswer scores the player's answer and, for human opponents,
// reconciles the peer battle with the result.
func (s *BattleService) SubmitAnswer(ctx context.Context, battleID string, index int, label string) (battle.AnswerOutcome, error) {
	b, ok := s.battles.Get(battleID)
	if !ok {
		return battle.AnswerOutcome{}, domain.ErrBattleNotFound
	}

	outcome, err := b.SubmitAnswer(index, label)
	if err != nil {
		return battle.AnswerOutcome{}, err
	}

	// The peer's local state never blocked on this submission; reconcile now.
	if peer, ok := s.peerBattle(b); ok {
		if reportErr := peer.ReportOpponentAnswer(index, outcome.Correct); reportErr != nil && reportErr != domain.ErrBattleTerminal {
			log.Printf("peer reconciliation for battle %s failed: %v", peer.ID(), reportErr)
		}
	}

	if outcome.Done {
		s.finishBattle(ctx, b)
	}
	return outcome, nil
}

// UseItem applies a consumable effect to a live battle.
func (s *BattleService) UseItem(_ context.Context, battleID string, effect domain.ItemEffect) error {
	b, ok := s.battles.Get(battleID)
	if !ok {
		return domain.ErrBattleNotFound
	}
	return b.UseItem(effect)
}

// PauseBattle suspends the countdown of an active battle.
func (s *BattleService) PauseBattle(_ context.Context, battleID string) error {
	b, ok := s.battles.Get(battleID)
	if !ok {
		return domain.ErrBattleNotFound
	}
	return b.Pause()
}

// ResumeBattle continues a paused battle.
func (s *BattleService) ResumeBattle(_ context.Context, battleID string) error {
	b, ok := s.battles.Get(battleID)
	if !ok {
		return domain.ErrBattleNotFound
	}
	return b.Resume()
}

// CancelBattle tears a battle down; safe to call repeatedly.
func (s *BattleService) CancelBattle(_ context.Context, battleID string) {
	if b, ok := s.battles.Get(battleID); ok {
		s.forget(b)
	}
	s.battles.Delete(battleID)
}

// GetCurrentQuestion returns the question under play.
func (s *BattleService) GetCurrentQuestion(battleID string) (battle.QuestionView, error) {
	b, ok := s.battles.Get(battleID)
	if !ok {
		return battle.QuestionView{}, domain.ErrBattleNotFound
	}
	view, ok := b.CurrentQuestion()
	if !ok {
		return battle.QuestionView{}, domain.ErrBattleTerminal
	}
	return view, nil
}

// GetBattleStatus returns the lifecycle state.
func (s *BattleService) GetBattleStatus(battleID string) (domain.BattleStatus, error) {
	b, ok := s.battles.Get(battleID)
	if !ok {
		return "", domain.ErrBattleNotFound
	}
	return b.Status(), nil
}

// GetBattleProgress returns the presentation snapshot.
func (s *BattleService) GetBattleProgress(battleID string) (domain.BattleProgress, error) {
	b, ok := s.battles.Get(battleID)
	if !ok {
		return domain.BattleProgress{}, domain.ErrBattleNotFound
	}
	return b.Progress(), nil
}

// GetRewards returns the finalized payout; zero until completion.
func (s *BattleService) GetRewards(battleID string) (domain.Rewards, error) {
	b, ok := s.battles.Get(battleID)
	if !ok {
		return domain.Rewards{}, domain.ErrBattleNotFound
	}
	return b.Rewards(), nil
}

// BattleFor returns the live battle owned by a player, if any.
func (s *BattleService) BattleFor(playerID string) (*battle.Battle, bool) {
	s.mu.Lock()
	battleID, ok := s.byPlayer[playerID]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.battles.Get(battleID)
}

// Subscribe attaches to a battle's event stream.
func (s *BattleService) Subscribe(battleID string) (<-chan battle.Event, func(), error) {
	b, ok := s.battles.Get(battleID)
	if !ok {
		return nil, nil, domain.ErrBattleNotFound
	}
	ch, cancel := b.Subscribe()
	return ch, cancel, nil
}

// ReapStaleBattles cancels battles that finished or errored out; intended
// to run on a scheduler so abandoned instances never leak timers.
func (s *BattleService) ReapStaleBattles(_ context.Context) {
	for _, b := range s.battles.Each() {
		status := b.Status()
		if status.Terminal() || status == domain.StatusIdle {
			s.forget(b)
			s.battles.Delete(b.ID())
		}
	}
}

func (s *BattleService) finishBattle(ctx context.Context, b *battle.Battle) {
	result := b.Result()
	if err := s.profiles.PersistBattleResult(ctx, result); err != nil {
		log.Printf("persist battle result %s: %v", result.BattleID, err)
	}
	switch result.Status {
	case domain.StatusVictory:
		s.notify(ctx, domain.Notification{Type: "achievement", Message: "battle won", Payload: result})
	default:
		s.notify(ctx, domain.Notification{Type: "success", Message: "battle finished", Payload: result})
	}
}

func (s *BattleService) peerBattle(b *battle.Battle) (*battle.Battle, bool) {
	s.mu.Lock()
	ids := s.byMatch[b.MatchID()]
	s.mu.Unlock()
	for _, id := range ids {
		if id == b.ID() {
			continue
		}
		if peer, ok := s.battles.Get(id); ok {
			return peer, true
		}
	}
	return nil, false
}

func (s *BattleService) forget(b *battle.Battle) {
	s.mu.Lock()
	if s.byPlayer[b.PlayerID()] == b.ID() {
		delete(s.byPlayer, b.PlayerID())
	}
	ids := s.byMatch[b.MatchID()]
	kept := ids[:0]
	for _, id := range ids {
		if id != b.ID() {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		delete(s.byMatch, b.MatchID())
	} else {
		s.byMatch[b.MatchID()] = kept
	}
	s.mu.Unlock()
}

func (s *BattleService) publishMatch(playerID string, ev MatchEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.matchSubs[playerID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *BattleService) notify(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Printf("notification failed: %v", err)
	}
}

// difficultyFor maps player level to a question difficulty tier.
func difficultyFor(level int) int {
	switch {
	case level >= 20:
		return 3
	case level >= 10:
		return 2
	default:
		return 1
	}
}
