package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches a subject's question bank from a backing store
// (CSV files, Postgres, ...).
type BankLoader interface {
	LoadQuestions(ctx context.Context, subject string) ([]domain.QuestionRecord, error)
}

// QuestionRepository caches question banks with TTL so every session start
// does not re-read the backing store.
type QuestionRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	questions []domain.QuestionRecord
	expiresAt time.Time
}

func NewQuestionRepository(loader BankLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *QuestionRepository) LoadQuestions(ctx context.Context, subject string) ([]domain.QuestionRecord, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[subject]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(subject, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[subject]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.loader.LoadQuestions(ctx, subject)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[subject] = cachedBank{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
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

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticBankLoader serves banks from an in-memory map (tests and demos).
type StaticBankLoader struct {
	banks map[string][]domain.QuestionRecord
}

func NewStaticBankLoader(banks map[string][]domain.QuestionRecord) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadQuestions(_ context.Context, subject string) ([]domain.QuestionRecord, error) {
	return l.banks[subject], nil
}

func (l *StaticBankLoader) Subjects(_ context.Context) ([]string, error) {
	subjects := make([]string, 0, len(l.banks))
	for subject := range l.banks {
		subjects = append(subjects, subject)
	}
	return subjects, nil
}
