package app

import (
	"context"

	"quiz-battle-service/internal/domain"

	"golang.org/x/sync/errgroup"
)

// SessionRepository abstracts how solo sessions are stored. Entries live
// until explicitly removed or process exit; there is no TTL, so long-running
// processes can accumulate abandoned sessions (documented limitation).
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Remove(id string)
}

// BattleRepository stores battles keyed by id, with code and matchmaking
// lookups. Insert fails if the code is already taken so the code generator
// can retry.
type BattleRepository interface {
	Insert(battle *Battle) error
	Get(id string) (*Battle, bool)
	GetByCode(code string) (*Battle, bool)
	// FindWaitingPublic returns any public waiting battle for the subject not
	// owned by excludeUserID. Which one, among several, is unspecified.
	FindWaitingPublic(subject, excludeUserID string) (*Battle, bool)
	Remove(id string)
}

// QuestionSource supplies the ordered question bank for a subject.
// Implementations return an empty slice for unknown subjects.
type QuestionSource interface {
	LoadQuestions(ctx context.Context, subject string) ([]domain.QuestionRecord, error)
}

// ProgressTracker persists per-question success/failure so timed practice
// can skip already-mastered questions.
type ProgressTracker interface {
	RecordOutcome(ctx context.Context, userID, subject, questionText string, status domain.ProgressStatus) error
	GetOutcome(ctx context.Context, userID, subject, questionText string) (domain.ProgressStatus, error)
	CountByStatus(ctx context.Context, userID, subject string) (success, failed int, err error)
}

// GameArchive persists saved games, battle history, and account score totals.
// Account totals never go below zero; the clamp lives in the archive, not in
// session scoring.
type GameArchive interface {
	SaveUnfinished(ctx context.Context, game domain.SavedGame) error
	LatestUnfinished(ctx context.Context, userID, subject string) (domain.SavedGame, bool, error)
	HasUnfinished(ctx context.Context, userID, subject string) (bool, error)
	RecordCompleted(ctx context.Context, game domain.SavedGame) error
	RecordBattle(ctx context.Context, result domain.BattleResult) error
	AddTotalScore(ctx context.Context, userID string, delta int) error
}

// EventBus delivers room-scoped battle events. Publish must not be called
// while holding a battle lock.
type EventBus interface {
	Publish(ctx context.Context, room string, event domain.Event) error
}

// MultiBus fans one publish out to several buses (in-process hub plus the
// Redis bridge when configured).
type MultiBus []EventBus

func (m MultiBus) Publish(ctx context.Context, room string, event domain.Event) error {
	var eg errgroup.Group
	for _, bus := range m {
		eg.Go(func() error {
			return bus.Publish(ctx, room, event)
		})
	}
	return eg.Wait()
}
