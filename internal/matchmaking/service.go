package matchmaking

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"battle-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// DefaultQueueTimeout is how long a player waits before a bot opponent is
// assigned instead.
const DefaultQueueTimeout = 60 * time.Second

// QueueRepository is the explicit waiting set. Claim must be atomic: either
// every listed player is still queued and all are removed, or none are.
type QueueRepository interface {
	Upsert(ctx context.Context, d domain.PlayerDescriptor) error
	Remove(ctx context.Context, playerID string) error
	List(ctx context.Context) ([]domain.PlayerDescriptor, error) // join-time ascending
	Claim(ctx context.Context, playerIDs ...string) (bool, error)
}

// Notifier receives fire-and-forget match notifications.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Options tune the service; zero values pick production defaults.
type Options struct {
	QueueTimeout time.Duration
	Clock        func() time.Time
	Rand         *rand.Rand
}

// Service pairs waiting players fairly and promptly. Tolerance windows widen
// with wait time; players stuck past the queue timeout get a bot opponent.
type Service struct {
	queue    QueueRepository
	notifier Notifier
	onMatch  func(domain.Match)
	timeout  time.Duration
	now      func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewService wires the queue service. onMatch is invoked once per emitted
// match; the match record is the source of truth, notifications are
// best-effort.
func NewService(queue QueueRepository, notifier Notifier, onMatch func(domain.Match), opts Options) *Service {
	if opts.QueueTimeout <= 0 {
		opts.QueueTimeout = DefaultQueueTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		queue:    queue,
		notifier: notifier,
		onMatch:  onMatch,
		timeout:  opts.QueueTimeout,
		now:      opts.Clock,
		rnd:      opts.Rand,
	}
}

// JoinQueue registers the player's descriptor and immediately attempts a
// match. Joining twice with the same identity refreshes preferences without
// duplicating the entry or resetting the wait clock.
func (s *Service) JoinQueue(ctx context.Context, player domain.PlayerDescriptor, prefs domain.MatchPreferences) error {
	player.Preferences = prefs
	if player.JoinedAt.IsZero() {
		player.JoinedAt = s.now()
	}
	if err := s.queue.Upsert(ctx, player); err != nil {
		return err
	}
	return s.Sweep(ctx)
}

// LeaveQueue removes the descriptor. Always succeeds, even if absent.
func (s *Service) LeaveQueue(ctx context.Context, playerID string) error {
	return s.queue.Remove(ctx, playerID)
}

// Sweep runs one matching pass over the waiting set: pair compatible
// players oldest-first, then fall back to bots for anyone past the queue
// timeout. Safe to call concurrently; the repository's atomic claim keeps a
// player out of two simultaneous pairings.
func (s *Service) Sweep(ctx context.Context) error {
	waiting, err := s.queue.List(ctx)
	if err != nil {
		return err
	}
	now := s.now()

	matched := make(map[string]bool, len(waiting))
	for i := 0; i < len(waiting); i++ {
		a := waiting[i]
		if matched[a.ID] {
			continue
		}
		for j := i + 1; j < len(waiting); j++ {
			b := waiting[j]
			if matched[b.ID] || !Compatible(a, b, now) {
				continue
			}
			// Optimistic check: both must still be queued at removal time.
			claimed, err := s.queue.Claim(ctx, a.ID, b.ID)
			if err != nil {
				return err
			}
			if !claimed {
				continue
			}
			matched[a.ID], matched[b.ID] = true, true
			s.emit(ctx, a, b)
			break
		}
	}

	// Nobody gets stranded: pair long waiters against a bot.
	for _, d := range waiting {
		if matched[d.ID] || now.Sub(d.JoinedAt) < s.timeout {
			continue
		}
		claimed, err := s.queue.Claim(ctx, d.ID)
		if err != nil {
			return err
		}
		if !claimed {
			continue
		}
		matched[d.ID] = true
		s.emit(ctx, d, s.botOpponent(d, now))
	}
	return nil
}

// Compatible reports whether two descriptors may be paired at the given
// time. Rating and level tolerances grow with the wait of whoever queued
// first; mode and category never relax.
func Compatible(a, b domain.PlayerDescriptor, now time.Time) bool {
	if a.Preferences != b.Preferences {
		return false
	}
	older := a.JoinedAt
	if b.JoinedAt.Before(older) {
		older = b.JoinedAt
	}
	waitSeconds := int(now.Sub(older).Seconds())
	if waitSeconds < 0 {
		waitSeconds = 0
	}

	maxRatingDiff := 200 + 50*(waitSeconds/10)
	maxLevelDiff := 2 + waitSeconds/15
	return abs(a.Rating-b.Rating) <= maxRatingDiff && abs(a.Level-b.Level) <= maxLevelDiff
}

func (s *Service) emit(ctx context.Context, a, b domain.PlayerDescriptor) {
	match := domain.Match{
		ID:        uuid.NewString(),
		PlayerA:   a,
		PlayerB:   b,
		CreatedAt: s.now(),
	}
	if s.onMatch != nil {
		s.onMatch(match)
	}
	if s.notifier == nil {
		return
	}
	for _, d := range []domain.PlayerDescriptor{a, b} {
		if d.IsBot {
			continue
		}
		n := domain.Notification{Type: "success", Message: "match found", Payload: match}
		if err := s.notifier.Notify(ctx, n); err != nil {
			// The match record is the source of truth; clients reconcile by
			// polling, so a dropped notification is logged and ignored.
			log.Printf("match notification for %s failed: %v", d.ID, err)
		}
	}
}

// botOpponent fabricates a descriptor close to the player's skill.
func (s *Service) botOpponent(player domain.PlayerDescriptor, now time.Time) domain.PlayerDescriptor {
	s.mu.Lock()
	ratingJitter := s.rnd.Intn(201) - 100
	levelJitter := s.rnd.Intn(3) - 1
	s.mu.Unlock()

	rating := player.Rating + ratingJitter
	if rating < 0 {
		rating = 0
	}
	level := player.Level + levelJitter
	if level < 1 {
		level = 1
	}
	return domain.PlayerDescriptor{
		ID:          "bot-" + uuid.NewString(),
		Rating:      rating,
		Level:       level,
		IsBot:       true,
		JoinedAt:    now,
		Preferences: player.Preferences,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
