package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"battle-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question sets from a backing store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, category string, difficulty, count int) ([]domain.Question, error)
}

// QuestionRepository caches question sets with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *QuestionRepository) FetchQuestions(ctx context.Context, category string, difficulty, count int) ([]domain.Question, error) {
	key := cacheKey(category, difficulty, count)
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.loader.LoadQuestions(ctx, category, difficulty, count)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return nil, domain.ErrQuestionSetNotFound
		}

		r.mu.Lock()
		r.cache[key] = cachedSet{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func cacheKey(category string, difficulty, count int) string {
	return fmt.Sprintf("%s:%d:%d", category, difficulty, count)
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a simple loader backed by an in-memory bank
// (useful for tests/demos). Questions are keyed by category.
type StaticQuestionLoader struct {
	bank map[string][]domain.Question
}

func NewStaticQuestionLoader(bank map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{bank: bank}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, category string, difficulty, count int) ([]domain.Question, error) {
	pool, ok := l.bank[category]
	if !ok {
		return nil, domain.ErrQuestionSetNotFound
	}
	out := make([]domain.Question, 0, count)
	for _, q := range pool {
		if difficulty > 0 && q.Difficulty != difficulty {
			continue
		}
		out = append(out, q)
		if len(out) == count {
			break
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrQuestionSetNotFound
	}
	return out, nil
}
