package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"battle-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question sets from a backing store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, category string, difficulty, count int) ([]domain.Question, error)
}

// QuestionRepository caches question sets in Redis (JSON blob per set) and
// falls back to a loader on cache miss.
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) FetchQuestions(ctx context.Context, category string, difficulty, count int) ([]domain.Question, error) {
	key := r.setKey(category, difficulty, count)

	if cached, err := r.client.Get(ctx, key).Result(); err == nil {
		var questions []domain.Question
		if jsonErr := json.Unmarshal([]byte(cached), &questions); jsonErr == nil && len(questions) > 0 {
			return questions, nil
		}
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, err := r.client.Get(ctx, key).Result(); err == nil {
			var questions []domain.Question
			if jsonErr := json.Unmarshal([]byte(cached), &questions); jsonErr == nil && len(questions) > 0 {
				return questions, nil
			}
		}

		questions, err := r.loader.LoadQuestions(ctx, category, difficulty, count)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return nil, domain.ErrQuestionSetNotFound
		}

		payload, err := json.Marshal(questions)
		if err != nil {
			return nil, fmt.Errorf("marshal question set: %w", err)
		}
		// best-effort cache fill
		_ = r.client.Set(ctx, key, payload, r.ttlWithJitter()).Err()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) setKey(category string, difficulty, count int) string {
	return fmt.Sprintf("questions:%s:%d:%d", category, difficulty, count)
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
