package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"quiz-battle-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

type countingLoader struct {
	calls int64
	banks map[string][]domain.QuestionRecord
}

func (l *countingLoader) LoadQuestions(_ context.Context, subject string) ([]domain.QuestionRecord, error) {
	atomic.AddInt64(&l.calls, 1)
	return l.banks[subject], nil
}

func newTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
}

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	loader := &countingLoader{banks: map[string][]domain.QuestionRecord{
		"geo": {
			{Prompt: "Capital of France?", CorrectAnswer: "Paris", Distractors: [3]string{"Lyon", "Nice", "Lille"}, Subject: "geo"},
		},
	}}
	repo := NewQuestionRepository(client, loader, time.Minute)

	questions, err := repo.LoadQuestions(ctx, "geo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 1 || questions[0].CorrectAnswer != "Paris" {
		t.Fatalf("unexpected bank: %+v", questions)
	}

	if exists := client.Exists(ctx, "questions:geo").Val(); exists != 1 {
		t.Fatalf("expected cached bank key in redis")
	}

	if _, err := repo.LoadQuestions(ctx, "geo"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if calls := atomic.LoadInt64(&loader.calls); calls != 1 {
		t.Fatalf("second load should hit the cache, got %d loader calls", calls)
	}
}

func TestQuestionRepositoryRecoversFromCorruptCache(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	loader := &countingLoader{banks: map[string][]domain.QuestionRecord{
		"geo": {
			{Prompt: "p", CorrectAnswer: "a", Distractors: [3]string{"b", "c", "d"}, Subject: "geo"},
		},
	}}
	repo := NewQuestionRepository(client, loader, time.Minute)

	if err := client.Set(ctx, "questions:geo", "{not json", 0).Err(); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	questions, err := repo.LoadQuestions(ctx, "geo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected reload past corrupt entry, got %+v", questions)
	}
	if calls := atomic.LoadInt64(&loader.calls); calls != 1 {
		t.Fatalf("expected one reload, got %d", calls)
	}
}
