package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"quiz-battle-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches a subject's question bank from the backing store.
type BankLoader interface {
	LoadQuestions(ctx context.Context, subject string) ([]domain.QuestionRecord, error)
}

// QuestionRepository caches whole question banks in Redis as JSON
// (SET questions:{subject}) and falls back to the loader on cache miss.
type QuestionRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) LoadQuestions(ctx context.Context, subject string) ([]domain.QuestionRecord, error) {
	key := r.bankKey(subject)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		if questions, err := decodeBank(raw); err == nil {
			return questions, nil
		}
		// Corrupt cache entries fall through to a reload.
	}

	result, err, _ := r.sf.Do(subject, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			if questions, err := decodeBank(raw); err == nil {
				return questions, nil
			}
		}

		questions, err := r.loader.LoadQuestions(ctx, subject)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(questions)
		if err != nil {
			return nil, err
		}
		_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionRecord), nil
}

// Subjects passes through to the loader when it can enumerate banks.
func (r *QuestionRepository) Subjects(ctx context.Context) ([]string, error) {
	if catalog, ok := r.loader.(interface {
		Subjects(ctx context.Context) ([]string, error)
	}); ok {
		return catalog.Subjects(ctx)
	}
	return nil, nil
}

func (r *QuestionRepository) bankKey(subject string) string {
	return "questions:" + subject
}

func decodeBank(raw []byte) ([]domain.QuestionRecord, error) {
	var questions []domain.QuestionRecord
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
