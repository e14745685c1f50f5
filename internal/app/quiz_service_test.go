package app_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
	"quiz-battle-service/internal/infra/memory"
)

func geoBank() map[string][]domain.QuestionRecord {
	return map[string][]domain.QuestionRecord{
		"geo": {
			{Prompt: "Capital of France?", CorrectAnswer: "Paris", Distractors: [3]string{"Lyon", "Nice", "Lille"}, Subject: "geo"},
			{Prompt: "Capital of Japan?", CorrectAnswer: "Tokyo", Distractors: [3]string{"Osaka", "Kyoto", "Nagoya"}, Subject: "geo"},
		},
	}
}

type quizFixture struct {
	service  *app.QuizService
	progress *memory.ProgressTracker
	archive  *memory.GameArchive
	bank     map[string]string // prompt -> correct answer
	now      *time.Time
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()
	banks := geoBank()
	progress := memory.NewProgressTracker()
	archive := memory.NewGameArchive()
	repo := memory.NewQuestionRepository(memory.NewStaticBankLoader(banks), 5*time.Minute)
	service := app.NewQuizService(memory.NewSessionStore(), repo, progress, archive, repo)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixture := &quizFixture{service: service, progress: progress, archive: archive, now: &at}
	fixture.bank = make(map[string]string)
	for _, q := range banks["geo"] {
		fixture.bank[q.Prompt] = q.CorrectAnswer
	}

	seed := int64(0)
	service.WithClock(
		func() time.Time { return *fixture.now },
		func() string { seed++; return "id-" + string(rune('a'+seed)) },
		func() *rand.Rand { return rand.New(rand.NewSource(42)) },
	)
	return fixture
}

// answer drives the current question to a decided outcome through the service.
func (f *quizFixture) answer(t *testing.T, sessionID, userID string, wantCorrect bool) domain.AnswerOutcome {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		view, err := f.service.CurrentQuestion(ctx, sessionID, userID)
		if err != nil {
			t.Fatalf("current question: %v", err)
		}
		if view.Finished {
			t.Fatalf("session finished mid-answer")
		}
		correct := f.bank[view.Prompt]
		proposedIsCorrect := view.ProposedCandidate == correct
		if proposedIsCorrect != wantCorrect {
			if _, err := f.service.SubmitAnswer(ctx, sessionID, userID, false); err != nil {
				t.Fatalf("reject: %v", err)
			}
			continue
		}
		outcome, err := f.service.SubmitAnswer(ctx, sessionID, userID, true)
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		return outcome
	}
	t.Fatalf("wanted candidate never proposed")
	return domain.AnswerOutcome{}
}

func TestStartAndFullRun(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(t)

	result, err := f.service.Start(ctx, "u1", "geo", 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if result.TotalQuestions != 2 || result.TimerMinutes != 0 {
		t.Fatalf("unexpected start result: %+v", result)
	}

	f.answer(t, result.SessionID, "u1", true)
	outcome := f.answer(t, result.SessionID, "u1", true)
	if outcome.Score != 20 {
		t.Fatalf("two correct answers should score 20, got %+v", outcome)
	}

	view, err := f.service.CurrentQuestion(ctx, result.SessionID, "u1")
	if err != nil {
		t.Fatalf("current question: %v", err)
	}
	if !view.Finished || view.HasRevision {
		t.Fatalf("clean run should finish without revision, got %+v", view)
	}
}

func TestStartUnknownSubject(t *testing.T) {
	f := newQuizFixture(t)
	if _, err := f.service.Start(context.Background(), "u1", "nope", 0); err != domain.ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestTimedStartFiltersMasteredQuestions(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(t)

	if err := f.progress.RecordOutcome(ctx, "u1", "geo", "Capital of France?", domain.StatusSuccess); err != nil {
		t.Fatalf("record: %v", err)
	}

	result, err := f.service.Start(ctx, "u1", "geo", 5)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if result.TotalQuestions != 1 {
		t.Fatalf("timed start should skip mastered questions, got %d", result.TotalQuestions)
	}

	// With everything mastered the full bank is used instead of an empty run.
	if err := f.progress.RecordOutcome(ctx, "u1", "geo", "Capital of Japan?", domain.StatusSuccess); err != nil {
		t.Fatalf("record: %v", err)
	}
	result, err = f.service.Start(ctx, "u1", "geo", 5)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if result.TotalQuestions != 2 {
		t.Fatalf("fully mastered bank should fall back to all questions, got %d", result.TotalQuestions)
	}
}

func TestSessionOwnership(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(t)

	result, err := f.service.Start(ctx, "u1", "geo", 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.CurrentQuestion(ctx, result.SessionID, "u2"); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden for another user, got %v", err)
	}
	if _, err := f.service.CurrentQuestion(ctx, "missing", "u1"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSaveAndRestore(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(t)

	if _, err := f.service.Restore(ctx, "u1", "geo"); err != domain.ErrNoSavedGame {
		t.Fatalf("expected ErrNoSavedGame, got %v", err)
	}

	result, err := f.service.Start(ctx, "u1", "geo", 5)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	f.answer(t, result.SessionID, "u1", true)

	*f.now = f.now.Add(90 * time.Second)
	if err := f.service.Save(ctx, result.SessionID, "u1"); err != nil {
		t.Fatalf("save: %v", err)
	}

	has, err := f.service.HasSaved(ctx, "u1", "geo")
	if err != nil || !has {
		t.Fatalf("expected a saved game, got has=%v err=%v", has, err)
	}

	restored, err := f.service.Restore(ctx, "u1", "geo")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Score != 10 || restored.CurrentIndex != 1 || restored.TimerMinutes != 5 {
		t.Fatalf("restore lost progress: %+v", restored)
	}
	if restored.SessionID == result.SessionID {
		t.Fatalf("restore should mint a fresh session id")
	}

	status, err := f.service.TimeRemaining(ctx, restored.SessionID, "u1")
	if err != nil {
		t.Fatalf("time remaining: %v", err)
	}
	if status.RemainingSeconds != 210 {
		t.Fatalf("restored countdown should resume at 210s, got %+v", status)
	}
}

func TestCompleteCreditsAccountTotal(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(t)

	result, err := f.service.Start(ctx, "u1", "geo", 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	f.answer(t, result.SessionID, "u1", true)

	if err := f.service.Complete(ctx, result.SessionID, "u1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if total := f.archive.TotalScore("u1"); total != 10 {
		t.Fatalf("expected account total 10, got %d", total)
	}
	if _, err := f.service.CurrentQuestion(ctx, result.SessionID, "u1"); err != domain.ErrSessionNotFound {
		t.Fatalf("completed session should be gone, got %v", err)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(t)

	result, err := f.service.Start(ctx, "u1", "geo", 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	f.answer(t, result.SessionID, "u1", true)
	f.answer(t, result.SessionID, "u1", false)

	stats, err := f.service.Stats(ctx, "u1", "geo")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.SuccessCount != 1 || stats.FailedCount != 1 || stats.NeverSeenCount != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.CompletionPercent != 50 {
		t.Fatalf("expected 50%% completion, got %v", stats.CompletionPercent)
	}
}

func TestListSubjects(t *testing.T) {
	f := newQuizFixture(t)
	infos, err := f.service.ListSubjects(context.Background())
	if err != nil {
		t.Fatalf("list subjects: %v", err)
	}
	if len(infos) != 1 || infos[0].Code != "geo" || infos[0].QuestionCount != 2 {
		t.Fatalf("unexpected subjects: %+v", infos)
	}
}
